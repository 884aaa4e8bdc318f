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

package storage

import (
	"testing"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/test/assert"
)

func orderFilter(name string) *types.Filter {
	return &types.Filter{
		Name:       name,
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

func TestMemoryStoreSaveAssignsIdAndTimestamps(t *testing.T) {
	store := NewMemoryStore()
	saved, err := store.Save(orderFilter("big orders"))
	assert.Nil(t, err)
	assert.NotEqual(t, "", saved.Id)
	assert.True(t, saved.CreatedAt > 0)
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	// a resave keeps the id and the creation time
	saved.Name = "bigger orders"
	resaved, err := store.Save(saved)
	assert.Nil(t, err)
	assert.Equal(t, saved.Id, resaved.Id)
	assert.Equal(t, saved.CreatedAt, resaved.CreatedAt)
}

func TestMemoryStoreGet(t *testing.T) {
	store := NewMemoryStore()
	saved, err := store.Save(orderFilter("big orders"))
	assert.Nil(t, err)

	loaded, err := store.Get(saved.Id)
	assert.Nil(t, err)
	assert.Equal(t, "big orders", loaded.Name)
	assert.Equal(t, float64(100), loaded.Conditions.Conditions[0].Value)

	_, err = store.Get("nope")
	assert.Equal(t, ErrFilterNotFound, err)
}

func TestMemoryStoreSaveCopies(t *testing.T) {
	store := NewMemoryStore()
	filter := orderFilter("big orders")
	saved, err := store.Save(filter)
	assert.Nil(t, err)

	// later edits to the caller's filter must not leak into the store
	filter.Name = "edited"
	filter.Conditions.Conditions[0].Value = float64(999)
	loaded, err := store.Get(saved.Id)
	assert.Nil(t, err)
	assert.Equal(t, "big orders", loaded.Name)
	assert.Equal(t, float64(100), loaded.Conditions.Conditions[0].Value)
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Save(orderFilter("a"))
	assert.Nil(t, err)
	_, err = store.Save(orderFilter("b"))
	assert.Nil(t, err)
	device := orderFilter("c")
	device.EntityType = "device"
	_, err = store.Save(device)
	assert.Nil(t, err)

	all, err := store.List("")
	assert.Nil(t, err)
	assert.Equal(t, 3, len(all))

	orders, err := store.List("order")
	assert.Nil(t, err)
	assert.Equal(t, 2, len(orders))

	none, err := store.List("unknown")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(none))
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	saved, err := store.Save(orderFilter("a"))
	assert.Nil(t, err)

	assert.Nil(t, store.Delete(saved.Id))
	_, err = store.Get(saved.Id)
	assert.Equal(t, ErrFilterNotFound, err)
	assert.Equal(t, ErrFilterNotFound, store.Delete(saved.Id))
}

func TestMemoryStoreSaveNil(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Save(nil)
	assert.NotNil(t, err)
}

func TestNewDbStoreFromConfiguration(t *testing.T) {
	store, err := NewDbStoreFromConfiguration(types.Configuration{
		"driverName": "postgres",
		"dsn":        "postgres://localhost/filters",
		"poolSize":   5,
	})
	assert.Nil(t, err)
	assert.Equal(t, "postgres", store.Config.DriverName)
	assert.Equal(t, 5, store.Config.PoolSize)

	// the driver defaults to mysql
	store, err = NewDbStoreFromConfiguration(types.Configuration{"dsn": "root@/filters"})
	assert.Nil(t, err)
	assert.Equal(t, "mysql", store.Config.DriverName)
}

func TestDbStoreRequiresInit(t *testing.T) {
	store := NewDbStore(DbStoreConfig{Dsn: "root@/filters"})
	_, err := store.Save(orderFilter("a"))
	assert.NotNil(t, err)
	_, err = store.List("")
	assert.NotNil(t, err)
	_, err = store.Get("x")
	assert.NotNil(t, err)
	assert.NotNil(t, store.Delete("x"))
}
