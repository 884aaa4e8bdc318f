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

// Package storage persists filters. It implements the save/list/delete
// collaborator contract: callers treat any error as an external failure to
// surface, never as a reason to discard the in-memory filter being edited.
package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
)

var ErrFilterNotFound = errors.New("filter not found")

// Store 过滤器持久化接口
// Store is the filter persistence contract. Save assigns id/timestamps when
// missing and returns the persisted form; last write wins on concurrent saves
// of the same id.
type Store interface {
	Save(filter *types.Filter) (*types.Filter, error)
	List(entityType string) ([]*types.Filter, error)
	Get(id string) (*types.Filter, error)
	Delete(id string) error
}

// MemoryStore 内存实现，用于测试和嵌入式运行
type MemoryStore struct {
	sync.RWMutex
	filters map[string]*types.Filter
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{filters: make(map[string]*types.Filter)}
}

func (s *MemoryStore) Save(filter *types.Filter) (*types.Filter, error) {
	if filter == nil {
		return nil, errors.New("filter can not be nil")
	}
	stamp(filter)
	// copy through the wire form so later edits don't leak into the store
	def, err := engine.EncodeFilter(filter)
	if err != nil {
		return nil, err
	}
	stored, err := engine.DecodeFilter(def)
	if err != nil {
		return nil, err
	}
	s.Lock()
	s.filters[stored.Id] = stored
	s.Unlock()
	return stored, nil
}

func (s *MemoryStore) List(entityType string) ([]*types.Filter, error) {
	s.RLock()
	defer s.RUnlock()
	result := make([]*types.Filter, 0, len(s.filters))
	for _, filter := range s.filters {
		if entityType == "" || filter.EntityType == entityType {
			result = append(result, filter)
		}
	}
	return result, nil
}

func (s *MemoryStore) Get(id string) (*types.Filter, error) {
	s.RLock()
	defer s.RUnlock()
	if filter, ok := s.filters[id]; ok {
		return filter, nil
	}
	return nil, ErrFilterNotFound
}

func (s *MemoryStore) Delete(id string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.filters[id]; !ok {
		return ErrFilterNotFound
	}
	delete(s.filters, id)
	return nil
}

// stamp 补齐ID和时间戳
func stamp(filter *types.Filter) {
	now := time.Now().UnixMilli()
	if filter.Id == "" {
		filter.Id = engine.NewId()
	}
	if filter.CreatedAt == 0 {
		filter.CreatedAt = now
	}
	filter.UpdatedAt = now
}
