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

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/utils/json"
)

var ErrEmptyDefinition = errors.New("filter definition can not be empty")

// EncodeFilter 序列化过滤器
// EncodeFilter serializes a filter to its JSON wire form.
func EncodeFilter(filter *types.Filter) ([]byte, error) {
	if filter == nil {
		return nil, ErrEmptyDefinition
	}
	return json.Marshal(filter)
}

// DecodeFilter 反序列化过滤器并归一化
// DecodeFilter parses a filter from its JSON wire form, assigning fresh ids to
// nodes that lack one, dropping `null` entries from conditions arrays and
// lifting list values serialized under the legacy `value` key into `values`.
// A missing root is replaced by an empty and-group so the root-is-a-group
// invariant always holds after decode.
func DecodeFilter(def []byte) (*types.Filter, error) {
	if len(def) == 0 {
		return nil, ErrEmptyDefinition
	}
	var filter types.Filter
	if err := json.Unmarshal(def, &filter); err != nil {
		return nil, err
	}
	normalizeFilter(&filter)
	return &filter, nil
}

func normalizeFilter(filter *types.Filter) {
	if filter.Id == "" {
		filter.Id = NewId()
	}
	if filter.Conditions == nil {
		filter.Conditions = &types.FilterNode{
			Id:       NewId(),
			Type:     types.NodeTypeGroup,
			Operator: types.GroupAnd,
		}
	}
	normalizeNode(filter.Conditions)
}

func normalizeNode(node *types.FilterNode) {
	if node.Id == "" {
		node.Id = NewId()
	}
	if node.IsCondition() && len(node.Values) == 0 {
		if list, ok := node.Value.([]interface{}); ok && ArityOf(node.Operator) == types.ArityList {
			node.Values = list
			node.Value = nil
		}
	}
	// JSON `null` entries are dropped so every consumer sees the same tree
	children := node.Conditions[:0]
	for _, child := range node.Conditions {
		if child == nil {
			continue
		}
		normalizeNode(child)
		children = append(children, child)
	}
	node.Conditions = children
}
