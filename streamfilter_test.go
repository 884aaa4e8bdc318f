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

package streamfilter

import (
	"testing"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/test/assert"
)

func newOrderRegistry() *engine.Registry {
	registry := engine.NewRegistry()
	registry.RegisterEntityType(types.EntityType{
		Id:     "order",
		Label:  "Order",
		Fields: []types.Field{{Id: "amount", Label: "Amount", DataType: types.Number}},
	})
	return registry
}

func bigOrderFilter() *types.Filter {
	return &types.Filter{
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
	}
}

func TestPool(t *testing.T) {
	pool := &StreamFilter{}
	e := pool.New("tenant-a", types.NewConfig(), newOrderRegistry())
	assert.NotNil(t, e)

	// same id returns the existing instance
	assert.Equal(t, e, pool.New("tenant-a", types.NewConfig(), nil))

	got, ok := pool.Get("tenant-a")
	assert.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = pool.Get("tenant-b")
	assert.False(t, ok)

	pool.Del("tenant-a")
	_, ok = pool.Get("tenant-a")
	assert.False(t, ok)

	// an empty id creates an unpooled engine
	anonymous := pool.New("", types.NewConfig(), nil)
	assert.NotNil(t, anonymous)
	_, ok = pool.Get("")
	assert.False(t, ok)
}

func TestPoolOnEvent(t *testing.T) {
	pool := &StreamFilter{}
	e := pool.New("tenant-a", types.NewConfig(), newOrderRegistry())

	matched := 0
	_, err := e.Subscribe(bigOrderFilter(), func(string, types.Record) { matched++ })
	assert.Nil(t, err)

	pool.OnEvent("order", types.Record{"amount": float64(150)})
	pool.OnEvent("order", types.Record{"amount": float64(50)})
	assert.Equal(t, 1, matched)
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(types.NewConfig())
	assert.NotNil(t, e)
	assert.NotNil(t, e.Registry())
	assert.NotNil(t, e.Builder())

	// the fresh registry starts with an empty catalog
	assert.Equal(t, 0, len(e.Registry().EntityTypes()))
}
