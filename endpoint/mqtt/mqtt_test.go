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

package mqtt

import (
	"testing"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/test/assert"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool { return false }
func (m *fakeMessage) Qos() byte { return 0 }
func (m *fakeMessage) Retained() bool { return false }
func (m *fakeMessage) Topic() string { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack() {}

func newTestEngine() *engine.Engine {
	registry := engine.NewRegistry()
	registry.RegisterEntityType(types.EntityType{
		Id:     "order",
		Label:  "Order",
		Fields: []types.Field{{Id: "amount", Label: "Amount", DataType: types.Number}},
	})
	return engine.New(types.NewConfig(), registry)
}

func TestHandlerDeliversRecords(t *testing.T) {
	e := newTestEngine()
	var matched []types.Record
	_, err := e.Subscribe(&types.Filter{
		Id:         "f1",
		Name:       "big orders",
		EntityType: "order",
		Conditions: &types.FilterNode{
			Id:       "root",
			Type:     types.NodeTypeGroup,
			Operator: types.GroupAnd,
			Conditions: []*types.FilterNode{
				{Id: "c1", Type: types.NodeTypeCondition, Field: "amount", Operator: types.OperatorGreaterThan, Value: float64(100)},
			},
		},
	}, func(filterId string, record types.Record) {
		matched = append(matched, record)
	})
	assert.Nil(t, err)

	m := New(Config{}, types.NewConfig(), e)
	handle := m.handlerFor("order")

	handle(nil, &fakeMessage{topic: "events/order", payload: []byte(`{"amount": 150}`)})
	handle(nil, &fakeMessage{topic: "events/order", payload: []byte(`{"amount": 50}`)})
	assert.Equal(t, 1, len(matched))
	assert.Equal(t, float64(150), matched[0]["amount"])
}

func TestHandlerDropsMalformedPayload(t *testing.T) {
	e := newTestEngine()
	matched := 0
	_, err := e.Subscribe(&types.Filter{
		Id:         "f1",
		Name:       "any amount",
		EntityType: "order",
		Conditions: &types.FilterNode{
			Id:       "root",
			Type:     types.NodeTypeGroup,
			Operator: types.GroupAnd,
			Conditions: []*types.FilterNode{
				{Id: "c1", Type: types.NodeTypeCondition, Field: "amount", Operator: types.OperatorIsNotEmpty},
			},
		},
	}, func(string, types.Record) { matched++ })
	assert.Nil(t, err)

	m := New(Config{}, types.NewConfig(), e)
	handle := m.handlerFor("order")
	handle(nil, &fakeMessage{topic: "events/order", payload: []byte(`not json`)})
	assert.Equal(t, 0, matched)
	handle(nil, &fakeMessage{topic: "events/order", payload: []byte(`{"amount": 1}`)})
	assert.Equal(t, 1, matched)
}
