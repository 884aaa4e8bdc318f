/*
 * Copyright 2025 The StreamFilter Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"errors"
	"testing"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/test/assert"
)

func newTestEngine() *Engine {
	return New(types.NewConfig(), newTestRegistry())
}

func TestSubscribeAndOnEvent(t *testing.T) {
	e := newTestEngine()
	var matchedIds []string
	subscriptionId, err := e.Subscribe(validFilter(), func(filterId string, record types.Record) {
		matchedIds = append(matchedIds, filterId)
	})
	assert.Nil(t, err)
	assert.NotEqual(t, "", subscriptionId)

	e.OnEvent("order", types.Record{"amount": float64(150)})
	e.OnEvent("order", types.Record{"amount": float64(50)})
	assert.Equal(t, []string{"f1"}, matchedIds)

	snapshot := e.Stats().Snapshot("f1")
	assert.Equal(t, int64(2), snapshot.Received)
	assert.Equal(t, int64(1), snapshot.Matched)
}

func TestSubscribeRejectsInvalidFilter(t *testing.T) {
	e := newTestEngine()
	filter := validFilter()
	filter.Name = ""
	_, err := e.Subscribe(filter, nil)
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestOnEventEntityTypeIsolation(t *testing.T) {
	e := newTestEngine()
	e.Registry().RegisterEntityType(types.EntityType{
		Id:     "device",
		Label:  "Device",
		Fields: []types.Field{{Id: "temperature", Label: "Temperature", DataType: types.Number}},
	})
	matched := 0
	_, err := e.Subscribe(validFilter(), func(string, types.Record) { matched++ })
	assert.Nil(t, err)

	// an order filter never sees device events, matching values or not
	e.OnEvent("device", types.Record{"amount": float64(150), "temperature": float64(42)})
	assert.Equal(t, 0, matched)
	e.OnEvent("order", types.Record{"amount": float64(150)})
	assert.Equal(t, 1, matched)
}

func TestUnsubscribe(t *testing.T) {
	e := newTestEngine()
	matched := 0
	subscriptionId, err := e.Subscribe(validFilter(), func(string, types.Record) { matched++ })
	assert.Nil(t, err)

	assert.Nil(t, e.Unsubscribe(subscriptionId))
	e.OnEvent("order", types.Record{"amount": float64(150)})
	assert.Equal(t, 0, matched)

	assert.Equal(t, ErrSubscriptionNotFound, e.Unsubscribe(subscriptionId))
	assert.Equal(t, ErrSubscriptionNotFound, e.Unsubscribe("nope"))
}

func TestCompiledAndInterpretedSubscriptionsAgree(t *testing.T) {
	compiled := New(types.NewConfig(types.WithCompileFilters(true)), newTestRegistry())
	interpreted := New(types.NewConfig(types.WithCompileFilters(false)), newTestRegistry())

	var fromCompiled, fromInterpreted int
	_, err := compiled.Subscribe(validFilter(), func(string, types.Record) { fromCompiled++ })
	assert.Nil(t, err)
	_, err = interpreted.Subscribe(validFilter(), func(string, types.Record) { fromInterpreted++ })
	assert.Nil(t, err)

	records := []types.Record{
		{"amount": float64(150)},
		{"amount": float64(50)},
		{"amount": "150"},
		{"amount": nil},
		{},
	}
	for _, record := range records {
		compiled.OnEvent("order", record)
		interpreted.OnEvent("order", record)
	}
	assert.Equal(t, fromInterpreted, fromCompiled)
	// 150 and the coerced "150", not 50/nil/missing
	assert.Equal(t, 3, fromCompiled)
}

func TestTestFilter(t *testing.T) {
	e := newTestEngine()
	records := []types.Record{
		{"amount": float64(150)},
		{"amount": float64(50)},
		{"amount": float64(300)},
		{"amount": float64(20)},
	}
	result, err := e.TestFilter(validFilter(), records, 10)
	assert.Nil(t, err)
	assert.Equal(t, 4, result.TotalMessages)
	assert.Equal(t, 2, result.MatchedMessages)
	assert.Equal(t, float64(50), result.MatchRate)
	assert.Equal(t, 2, len(result.Examples))
	assert.Equal(t, float64(150), result.Examples[0]["amount"])
}

func TestTestFilterCapsExamples(t *testing.T) {
	e := newTestEngine()
	var records []types.Record
	for i := 0; i < 20; i++ {
		records = append(records, types.Record{"amount": float64(200)})
	}
	result, err := e.TestFilter(validFilter(), records, 3)
	assert.Nil(t, err)
	assert.Equal(t, 20, result.MatchedMessages)
	assert.Equal(t, 3, len(result.Examples))
}

func TestTestFilterRejectsInvalidFilter(t *testing.T) {
	e := newTestEngine()
	filter := validFilter()
	filter.EntityType = ""
	_, err := e.TestFilter(filter, nil, 10)
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestTestFilterEmptySample(t *testing.T) {
	e := newTestEngine()
	result, err := e.TestFilter(validFilter(), nil, 10)
	assert.Nil(t, err)
	assert.Equal(t, 0, result.TotalMessages)
	assert.Equal(t, float64(0), result.MatchRate)
	assert.Equal(t, 0, len(result.Examples))
}
