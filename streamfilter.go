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

// Package streamfilter provides an embeddable filter-subscription engine.
//
// A filter is a tree of conditions and and/or/not groups over the typed fields
// of an entity type. Filters are built with the tree builder, validated,
// optionally compiled to expression programs, and then matched against the
// record stream: every record delivered to OnEvent is evaluated against all
// active subscriptions for its entity type and match callbacks fire for the
// filters it satisfies.
//
// Create an engine, describe the catalog, and subscribe:
//
//	config := types.NewConfig()
//	e := streamfilter.NewEngine(config)
//	e.Registry().RegisterEntityType(types.EntityType{
//		Id: "order",
//		Fields: []types.Field{
//			{Id: "amount", Label: "Amount", DataType: types.Number},
//			{Id: "status", Label: "Status", DataType: types.String},
//		},
//	})
//
//	filter, _ := engine.DecodeFilter(definition)
//	subscriptionId, err := e.Subscribe(filter, func(filterId string, record types.Record) {
//		// matched
//	})
//
//	e.OnEvent("order", types.Record{"amount": 120.5, "status": "paid"})
//
// Engines can also be pooled by id through the package-level Default pool,
// so endpoints and schedulers can look them up by name.
package streamfilter

import (
	"sync"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
)

var Default = &StreamFilter{}

// StreamFilter 引擎实例池
type StreamFilter struct {
	engines sync.Map
}

// New 创建一个引擎并放入实例池，同ID已存在时返回已有实例
func (s *StreamFilter) New(id string, config types.Config, registry *engine.Registry) *engine.Engine {
	if v, ok := s.engines.Load(id); ok {
		return v.(*engine.Engine)
	}
	e := engine.New(config, registry)
	if id != "" {
		s.engines.Store(id, e)
	}
	return e
}

// Get 获取指定ID的引擎实例
func (s *StreamFilter) Get(id string) (*engine.Engine, bool) {
	v, ok := s.engines.Load(id)
	if ok {
		return v.(*engine.Engine), ok
	}
	return nil, false
}

// Del 删除指定ID的引擎实例
func (s *StreamFilter) Del(id string) {
	s.engines.Delete(id)
}

// OnEvent 把记录投递给池中全部引擎
func (s *StreamFilter) OnEvent(entityType string, record types.Record) {
	s.engines.Range(func(key, value any) bool {
		if item, ok := value.(*engine.Engine); ok {
			item.OnEvent(entityType, record)
		}
		return true
	})
}

// NewEngine creates a standalone engine outside the pool, with a fresh
// registry.
func NewEngine(config types.Config) *engine.Engine {
	return engine.New(config, nil)
}

// New 在默认实例池创建引擎
func New(id string, config types.Config, registry *engine.Registry) *engine.Engine {
	return Default.New(id, config, registry)
}

// Get 从默认实例池获取引擎
func Get(id string) (*engine.Engine, bool) {
	return Default.Get(id)
}

// Del 从默认实例池删除引擎
func Del(id string) {
	Default.Del(id)
}

// OnEvent 把记录投递给默认实例池全部引擎
func OnEvent(entityType string, record types.Record) {
	Default.OnEvent(entityType, record)
}
