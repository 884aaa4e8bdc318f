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
	"github.com/gofrs/uuid/v5"

	"github.com/streamfilter/streamfilter/api/types"
)

// Builder 过滤树结构编辑器
// Builder constructs and structurally edits one Filter's condition tree.
//
// All nodes are indexed in a flat map keyed by node id with a parent-id index,
// so every mutation locates its target in O(1) instead of re-walking the tree.
// The serialized tree shape is unchanged; the index is rebuilt on Load.
//
// Mutations are synchronous and in-memory. Operating on a nonexistent id is a
// caller bug, not a user-facing condition: it is absorbed as a no-op and logged.
type Builder struct {
	config   types.Config
	registry *Registry
	filter   *types.Filter
	// nodes 节点索引，id -> 节点
	nodes map[string]*types.FilterNode
	// parents 父节点索引，子id -> 父id，根节点无条目
	parents map[string]string
}

// NewBuilder creates a Builder bound to a registry. Call CreateEmptyFilter or
// Load before mutating.
func NewBuilder(config types.Config, registry *Registry) *Builder {
	return &Builder{
		config:   config,
		registry: registry,
		nodes:    make(map[string]*types.FilterNode),
		parents:  make(map[string]string),
	}
}

// CreateEmptyFilter 创建空过滤器，根节点是空的and组
// CreateEmptyFilter starts a fresh filter: an empty and-group as the root.
func (b *Builder) CreateEmptyFilter(entityType string) *types.Filter {
	root := &types.FilterNode{
		Id:       NewId(),
		Type:     types.NodeTypeGroup,
		Operator: types.GroupAnd,
	}
	b.filter = &types.Filter{
		Id:         NewId(),
		EntityType: entityType,
		Conditions: root,
	}
	b.reindex()
	return b.filter
}

// Load 装载已有过滤器并重建索引
// Load takes ownership of an existing filter and rebuilds the node index.
// Filters loaded from an external source are exclusively owned by this Builder
// while being edited.
func (b *Builder) Load(filter *types.Filter) {
	if filter == nil {
		return
	}
	if filter.Conditions == nil {
		filter.Conditions = &types.FilterNode{
			Id:       NewId(),
			Type:     types.NodeTypeGroup,
			Operator: types.GroupAnd,
		}
	}
	b.filter = filter
	b.reindex()
}

// Filter returns the filter being edited.
func (b *Builder) Filter() *types.Filter {
	return b.filter
}

// AddCondition 向指定组追加一个空条件
// AddCondition appends a new empty condition (no field/operator/value) to the
// group with the given id. No-op when the id does not name a group.
func (b *Builder) AddCondition(groupId string) *types.FilterNode {
	group := b.group(groupId)
	if group == nil {
		b.logf("builder: addCondition: group %s not found", groupId)
		return nil
	}
	condition := &types.FilterNode{
		Id:   NewId(),
		Type: types.NodeTypeCondition,
	}
	group.Conditions = append(group.Conditions, condition)
	b.nodes[condition.Id] = condition
	b.parents[condition.Id] = group.Id
	return condition
}

// AddGroup 向指定组追加一个子组，超过最大嵌套深度时拒绝
// AddGroup appends a new empty and-group to the parent group. Refused when the
// child would exceed the configured depth cap.
func (b *Builder) AddGroup(parentGroupId string) *types.FilterNode {
	parent := b.group(parentGroupId)
	if parent == nil {
		b.logf("builder: addGroup: group %s not found", parentGroupId)
		return nil
	}
	if b.depthOf(parentGroupId)+1 > b.maxDepth() {
		b.logf("builder: addGroup: max nesting depth %d reached", b.maxDepth())
		return nil
	}
	group := &types.FilterNode{
		Id:       NewId(),
		Type:     types.NodeTypeGroup,
		Operator: types.GroupAnd,
	}
	parent.Conditions = append(parent.Conditions, group)
	b.nodes[group.Id] = group
	b.parents[group.Id] = parent.Id
	return group
}

// RemoveNode 摘除条件或子组，根节点不可摘除
// RemoveNode splices a condition or group out of its parent's children.
// No-op for unknown ids and for the root.
func (b *Builder) RemoveNode(id string) {
	parentId, ok := b.parents[id]
	if !ok {
		b.logf("builder: removeNode: %s not found or is the root", id)
		return
	}
	parent := b.nodes[parentId]
	for i, child := range parent.Conditions {
		if child.Id == id {
			parent.Conditions = append(parent.Conditions[:i], parent.Conditions[i+1:]...)
			break
		}
	}
	b.forget(id)
}

// UpdateField 更新条件字段并重置操作符和值
// UpdateField sets the condition's field, resets the operator to the data
// type's default and seeds a type-appropriate value. The reset is mandatory:
// a field change invalidates whatever operator/value combination was entered.
func (b *Builder) UpdateField(conditionId, fieldId string, dataType types.DataType) {
	condition := b.condition(conditionId)
	if condition == nil {
		b.logf("builder: updateField: condition %s not found", conditionId)
		return
	}
	condition.Field = fieldId
	condition.Operator = b.registry.DefaultOperatorFor(dataType)
	arity := ArityOf(condition.Operator)
	switch arity {
	case types.ArityNone:
		condition.SetPayload(types.ValuePayload{Kind: types.ArityNone})
	case types.ArityList:
		condition.SetPayload(types.ValuePayload{Kind: types.ArityList, List: []interface{}{b.registry.DefaultValueFor(dataType)}})
	case types.ArityRange:
		condition.SetPayload(types.ValuePayload{Kind: types.ArityRange})
	default:
		condition.SetPayload(types.ValuePayload{Kind: types.AritySingle, Single: b.registry.DefaultValueFor(dataType)})
	}
}

// UpdateOperator 更新条件操作符并按新值形态重整值
// UpdateOperator sets the condition's operator and re-shapes the value payload
// to match the new arity class: a prior single value seeds the range minimum or
// becomes a one-element list; switching to a none operator clears the value.
func (b *Builder) UpdateOperator(conditionId, operatorId string) {
	condition := b.condition(conditionId)
	if condition == nil {
		b.logf("builder: updateOperator: condition %s not found", conditionId)
		return
	}
	oldPayload := condition.Payload(ArityOf(condition.Operator))
	condition.Operator = operatorId
	switch ArityOf(operatorId) {
	case types.ArityNone:
		condition.SetPayload(types.ValuePayload{Kind: types.ArityNone})
	case types.ArityRange:
		payload := types.ValuePayload{Kind: types.ArityRange}
		if oldPayload.Kind == types.AritySingle && oldPayload.Single != nil {
			payload.Min = oldPayload.Single
		} else if oldPayload.Kind == types.ArityRange {
			payload.Min, payload.Max = oldPayload.Min, oldPayload.Max
		}
		condition.SetPayload(payload)
	case types.ArityList:
		payload := types.ValuePayload{Kind: types.ArityList}
		switch oldPayload.Kind {
		case types.ArityList:
			payload.List = oldPayload.List
		case types.AritySingle:
			if oldPayload.Single != nil {
				payload.List = []interface{}{oldPayload.Single}
			}
		}
		if len(payload.List) == 0 {
			// keep one blank entry for the editing surface to bind to
			payload.List = []interface{}{""}
		}
		condition.SetPayload(payload)
	default:
		payload := types.ValuePayload{Kind: types.AritySingle}
		switch oldPayload.Kind {
		case types.AritySingle:
			payload.Single = oldPayload.Single
		case types.ArityRange:
			payload.Single = oldPayload.Min
		case types.ArityList:
			if len(oldPayload.List) > 0 {
				payload.Single = oldPayload.List[0]
			}
		}
		condition.SetPayload(payload)
	}
}

// UpdateValue 更新单值
func (b *Builder) UpdateValue(conditionId string, value interface{}) {
	if condition := b.condition(conditionId); condition != nil {
		condition.Value = value
	} else {
		b.logf("builder: updateValue: condition %s not found", conditionId)
	}
}

// UpdateRange 更新range操作符的上下界
func (b *Builder) UpdateRange(conditionId string, valueMin, valueMax interface{}) {
	if condition := b.condition(conditionId); condition != nil {
		condition.ValueMin = valueMin
		condition.ValueMax = valueMax
	} else {
		b.logf("builder: updateRange: condition %s not found", conditionId)
	}
}

// UpdateGroupOperator 更新组合方式 and/or/not
func (b *Builder) UpdateGroupOperator(groupId, operator string) {
	group := b.group(groupId)
	if group == nil {
		b.logf("builder: updateGroupOperator: group %s not found", groupId)
		return
	}
	switch operator {
	case types.GroupAnd, types.GroupOr, types.GroupNot:
		group.Operator = operator
	default:
		b.logf("builder: updateGroupOperator: unknown operator %s", operator)
	}
}

// AddListValue 追加一个列表值
func (b *Builder) AddListValue(conditionId string, value interface{}) {
	if condition := b.condition(conditionId); condition != nil {
		condition.Values = append(condition.Values, value)
	} else {
		b.logf("builder: addListValue: condition %s not found", conditionId)
	}
}

// RemoveListValue 删除指定下标的列表值，始终保留至少一个条目
// RemoveListValue removes the list entry at index. The last entry is replaced
// by a blank one instead of removed, so the editing surface keeps something to
// bind to.
func (b *Builder) RemoveListValue(conditionId string, index int) {
	condition := b.condition(conditionId)
	if condition == nil || index < 0 || index >= len(condition.Values) {
		b.logf("builder: removeListValue: condition %s index %d out of range", conditionId, index)
		return
	}
	if len(condition.Values) == 1 {
		condition.Values[0] = ""
		return
	}
	condition.Values = append(condition.Values[:index], condition.Values[index+1:]...)
}

// UpdateListValue 更新指定下标的列表值
func (b *Builder) UpdateListValue(conditionId string, index int, value interface{}) {
	condition := b.condition(conditionId)
	if condition == nil || index < 0 || index >= len(condition.Values) {
		b.logf("builder: updateListValue: condition %s index %d out of range", conditionId, index)
		return
	}
	condition.Values[index] = value
}

// Reparent 把节点移动到另一个组的末尾
// Reparent moves a node to the end of another group's children. Refused when
// the target is the node itself, one of its descendants, or when moving a
// group would exceed the depth cap.
func (b *Builder) Reparent(id, newParentGroupId string) {
	node, ok := b.nodes[id]
	if !ok || b.filter == nil || id == b.filter.Conditions.Id {
		b.logf("builder: reparent: %s not found or is the root", id)
		return
	}
	target := b.group(newParentGroupId)
	if target == nil {
		b.logf("builder: reparent: group %s not found", newParentGroupId)
		return
	}
	// reject cycles: the target must not live under the node being moved
	for cursor := newParentGroupId; cursor != ""; cursor = b.parents[cursor] {
		if cursor == id {
			b.logf("builder: reparent: %s is an ancestor of %s", id, newParentGroupId)
			return
		}
	}
	if node.IsGroup() && b.depthOf(newParentGroupId)+subtreeDepth(node) > b.maxDepth() {
		b.logf("builder: reparent: max nesting depth %d reached", b.maxDepth())
		return
	}
	oldParent := b.nodes[b.parents[id]]
	for i, child := range oldParent.Conditions {
		if child.Id == id {
			oldParent.Conditions = append(oldParent.Conditions[:i], oldParent.Conditions[i+1:]...)
			break
		}
	}
	target.Conditions = append(target.Conditions, node)
	b.parents[id] = target.Id
}

// NewId returns a fresh unique node/filter id.
func NewId() string {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Must(uuid.NewV7()).String()
	}
	return id.String()
}

func (b *Builder) maxDepth() int {
	if b.config.MaxDepth > 0 {
		return b.config.MaxDepth
	}
	return types.DefaultMaxDepth
}

// depthOf 节点深度，根为1
func (b *Builder) depthOf(id string) int {
	depth := 1
	for cursor, ok := b.parents[id]; ok; cursor, ok = b.parents[cursor] {
		depth++
	}
	return depth
}

// subtreeDepth 以该节点为根的子树高度
func subtreeDepth(node *types.FilterNode) int {
	if node == nil || !node.IsGroup() {
		return 0
	}
	max := 0
	for _, child := range node.Conditions {
		if d := subtreeDepth(child); d > max {
			max = d
		}
	}
	return max + 1
}

func (b *Builder) group(id string) *types.FilterNode {
	if node, ok := b.nodes[id]; ok && node.IsGroup() {
		return node
	}
	return nil
}

func (b *Builder) condition(id string) *types.FilterNode {
	if node, ok := b.nodes[id]; ok && node.IsCondition() {
		return node
	}
	return nil
}

// forget 从索引中移除节点及其整个子树
func (b *Builder) forget(id string) {
	node := b.nodes[id]
	delete(b.nodes, id)
	delete(b.parents, id)
	if node != nil {
		for _, child := range node.Conditions {
			b.forget(child.Id)
		}
	}
}

// reindex 重建节点和父节点索引，并给缺失的id补号
func (b *Builder) reindex() {
	b.nodes = make(map[string]*types.FilterNode)
	b.parents = make(map[string]string)
	if b.filter == nil || b.filter.Conditions == nil {
		return
	}
	var walk func(node *types.FilterNode, parentId string)
	walk = func(node *types.FilterNode, parentId string) {
		if node.Id == "" {
			node.Id = NewId()
		}
		b.nodes[node.Id] = node
		if parentId != "" {
			b.parents[node.Id] = parentId
		}
		for _, child := range node.Conditions {
			walk(child, node.Id)
		}
	}
	walk(b.filter.Conditions, "")
}

func (b *Builder) logf(format string, v ...interface{}) {
	if b.config.Logger != nil {
		b.config.Logger.Printf(format, v...)
	}
}
