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

package types

// node types
const (
	NodeTypeCondition = "condition"
	NodeTypeGroup     = "group"
)

// FilterNode 过滤树节点定义
// FilterNode is one node of the filter condition tree as it travels on the wire.
// A node is either a leaf condition (Type=condition, Field/Operator plus a value
// payload matching the operator's arity) or a group (Type=group, Operator is the
// combinator and/or/not, Conditions are the ordered children).
// Field names must stay stable for round-trip compatibility with the
// server-side evaluator and the persisted form.
type FilterNode struct {
	// Id 节点唯一标识，可以是任意字符串
	Id string `json:"id"`
	// Type 节点类型 condition/group
	Type string `json:"type"`
	// Field 条件字段，空表示条件未完成
	Field string `json:"field,omitempty"`
	// Operator 条件操作符，或者组合节点的组合方式(and/or/not)
	Operator string `json:"operator,omitempty"`
	// Value 单值操作符的值
	Value interface{} `json:"value,omitempty"`
	// ValueMin range操作符的下界，含边界
	ValueMin interface{} `json:"valueMin,omitempty"`
	// ValueMax range操作符的上界，含边界
	ValueMax interface{} `json:"valueMax,omitempty"`
	// Values list操作符的有序值列表
	Values []interface{} `json:"values,omitempty"`
	// Conditions 组合节点的有序子节点
	Conditions []*FilterNode `json:"conditions,omitempty"`
}

// IsGroup 是否组合节点
func (n *FilterNode) IsGroup() bool {
	return n != nil && n.Type == NodeTypeGroup
}

// IsCondition 是否条件节点
func (n *FilterNode) IsCondition() bool {
	return n != nil && n.Type == NodeTypeCondition
}

// Payload 返回按Arity归类的值
// Payload returns the node's value shaped by the given arity class.
// List payloads serialized under the legacy `value` key are accepted too.
func (n *FilterNode) Payload(arity Arity) ValuePayload {
	switch arity {
	case ArityNone:
		return ValuePayload{Kind: ArityNone}
	case ArityRange:
		return ValuePayload{Kind: ArityRange, Min: n.ValueMin, Max: n.ValueMax}
	case ArityList:
		values := n.Values
		if len(values) == 0 {
			if list, ok := n.Value.([]interface{}); ok {
				values = list
			}
		}
		return ValuePayload{Kind: ArityList, List: values}
	default:
		return ValuePayload{Kind: AritySingle, Single: n.Value}
	}
}

// SetPayload 重置节点的值形态，清空其它形态残留的值
// SetPayload replaces the node's value with the given payload, clearing every
// other shape so no stale valueMin/values survives an operator change.
func (n *FilterNode) SetPayload(p ValuePayload) {
	n.Value = nil
	n.ValueMin = nil
	n.ValueMax = nil
	n.Values = nil
	switch p.Kind {
	case AritySingle:
		n.Value = p.Single
	case ArityRange:
		n.ValueMin = p.Min
		n.ValueMax = p.Max
	case ArityList:
		n.Values = p.List
	}
}

// ValuePayload 条件值的带标签变体
// ValuePayload is the tagged variant of a condition's value. Kind selects
// which of the remaining fields is meaningful, so the validator and the
// evaluator can switch exhaustively instead of probing for nil fields.
type ValuePayload struct {
	Kind   Arity
	Single interface{}
	Min    interface{}
	Max    interface{}
	List   []interface{}
}

// Filter 持久化过滤器定义
// Filter is the full persisted unit: metadata plus the root condition group.
type Filter struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	// EntityType 过滤目标实体类型
	EntityType string `json:"entityType"`
	// Conditions 根节点，始终是group类型
	Conditions *FilterNode `json:"conditions"`
	// CreatedAt/UpdatedAt 毫秒时间戳
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// ValidationResult 校验结果
// ValidationResult lists every violation at once so the caller can fix them
// together. Errors are ordered by pre-order tree traversal.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// TestResult 过滤器样本测试结果
// TestResult is the shape returned by the test collaborator and by the local
// sample-run of the evaluator.
type TestResult struct {
	TotalMessages     int      `json:"totalMessages"`
	MatchedMessages   int      `json:"matchedMessages"`
	MatchRate         float64  `json:"matchRate"`
	AvgProcessingTime float64  `json:"avgProcessingTime"`
	Examples          []Record `json:"examples"`
}
