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
	"strings"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/utils/cast"
)

// Evaluator 过滤器解释执行器
// Evaluator computes the boolean match of a filter tree against one record.
//
// It is total and deterministic: a malformed or incomplete condition never
// matches and never fails, a missing record field makes the condition false
// (except is_empty, which treats missing as empty). Nothing is mutated.
//
// String comparisons are byte-wise case-sensitive. The wire payload is shared
// with a server-side re-evaluator and byte-wise comparison is the only
// locale-free semantic both sides reproduce exactly.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator creates an Evaluator bound to a registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate 评估过滤器对一条记录是否命中
func (e *Evaluator) Evaluate(filter *types.Filter, record types.Record) bool {
	if filter == nil || filter.Conditions == nil {
		return false
	}
	return e.evaluateNode(filter, filter.Conditions, record)
}

func (e *Evaluator) evaluateNode(filter *types.Filter, node *types.FilterNode, record types.Record) bool {
	if node == nil {
		return false
	}
	if node.IsGroup() {
		return e.evaluateGroup(filter, node, record)
	}
	return e.evaluateCondition(filter, node, record)
}

// evaluateGroup 组合子节点结果
// and: 全部命中，空组为真（AND的幺元）
// or: 任一命中，空组为假（OR的幺元）
// not: NOT(AND(children))，空组为假
func (e *Evaluator) evaluateGroup(filter *types.Filter, group *types.FilterNode, record types.Record) bool {
	switch group.Operator {
	case types.GroupOr:
		for _, child := range group.Conditions {
			if e.evaluateNode(filter, child, record) {
				return true
			}
		}
		return false
	case types.GroupNot:
		for _, child := range group.Conditions {
			if !e.evaluateNode(filter, child, record) {
				return true
			}
		}
		return false
	default:
		for _, child := range group.Conditions {
			if !e.evaluateNode(filter, child, record) {
				return false
			}
		}
		return true
	}
}

func (e *Evaluator) evaluateCondition(filter *types.Filter, condition *types.FilterNode, record types.Record) bool {
	if condition.Field == "" || condition.Operator == "" {
		// incomplete conditions never match
		return false
	}
	field, ok := e.registry.FieldOf(filter.EntityType, condition.Field)
	if !ok {
		return false
	}
	if _, legal := e.registry.ArityOf(condition.Operator, field.DataType); !legal {
		return false
	}
	value, present := record[condition.Field]
	payload := condition.Payload(ArityOf(condition.Operator))

	switch condition.Operator {
	case types.OperatorIsEmpty:
		return isEmptyValue(value, present)
	case types.OperatorIsNotEmpty:
		return !isEmptyValue(value, present)
	}
	if !present || value == nil {
		return false
	}

	switch field.DataType {
	case types.String:
		return evaluateString(condition.Operator, value, payload)
	case types.Number:
		return evaluateNumber(condition.Operator, value, payload)
	case types.Boolean:
		return evaluateBoolean(condition.Operator, value, payload)
	case types.Date:
		return evaluateDate(condition.Operator, value, payload)
	case types.Array:
		return evaluateArray(condition.Operator, value, payload)
	default:
		return false
	}
}

// isEmptyValue null/缺失/空串/空数组视为“空”
func isEmptyValue(value interface{}, present bool) bool {
	if !present || value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

func evaluateString(operator string, value interface{}, payload types.ValuePayload) bool {
	actual := cast.ToString(value)
	switch operator {
	case types.OperatorEquals:
		return actual == cast.ToString(payload.Single)
	case types.OperatorNotEquals:
		return actual != cast.ToString(payload.Single)
	case types.OperatorContains:
		return strings.Contains(actual, cast.ToString(payload.Single))
	case types.OperatorNotContains:
		return !strings.Contains(actual, cast.ToString(payload.Single))
	case types.OperatorStartsWith:
		return strings.HasPrefix(actual, cast.ToString(payload.Single))
	case types.OperatorEndsWith:
		return strings.HasSuffix(actual, cast.ToString(payload.Single))
	case types.OperatorIn:
		return containsString(payload.List, actual)
	case types.OperatorNotIn:
		return !containsString(payload.List, actual)
	default:
		return false
	}
}

func evaluateNumber(operator string, value interface{}, payload types.ValuePayload) bool {
	actual, err := cast.ToFloat64E(value)
	if err != nil {
		return false
	}
	switch operator {
	case types.OperatorEquals:
		expected, err := cast.ToFloat64E(payload.Single)
		return err == nil && actual == expected
	case types.OperatorNotEquals:
		expected, err := cast.ToFloat64E(payload.Single)
		return err == nil && actual != expected
	case types.OperatorGreaterThan:
		expected, err := cast.ToFloat64E(payload.Single)
		return err == nil && actual > expected
	case types.OperatorGreaterThanOrEquals:
		expected, err := cast.ToFloat64E(payload.Single)
		return err == nil && actual >= expected
	case types.OperatorLessThan:
		expected, err := cast.ToFloat64E(payload.Single)
		return err == nil && actual < expected
	case types.OperatorLessThanOrEquals:
		expected, err := cast.ToFloat64E(payload.Single)
		return err == nil && actual <= expected
	case types.OperatorBetween, types.OperatorNotBetween:
		min, errMin := cast.ToFloat64E(payload.Min)
		max, errMax := cast.ToFloat64E(payload.Max)
		if errMin != nil || errMax != nil {
			return false
		}
		// both bounds inclusive
		within := actual >= min && actual <= max
		if operator == types.OperatorBetween {
			return within
		}
		return !within
	case types.OperatorIn, types.OperatorNotIn:
		found := false
		for _, item := range payload.List {
			if expected, err := cast.ToFloat64E(item); err == nil && actual == expected {
				found = true
				break
			}
		}
		if operator == types.OperatorIn {
			return found
		}
		return !found
	default:
		return false
	}
}

func evaluateBoolean(operator string, value interface{}, payload types.ValuePayload) bool {
	actual, err := cast.ToBoolE(value)
	if err != nil {
		return false
	}
	expected, err := cast.ToBoolE(payload.Single)
	if err != nil {
		return false
	}
	switch operator {
	case types.OperatorEquals:
		return actual == expected
	case types.OperatorNotEquals:
		return actual != expected
	default:
		return false
	}
}

func evaluateDate(operator string, value interface{}, payload types.ValuePayload) bool {
	actual, err := cast.ToTimeE(value)
	if err != nil {
		return false
	}
	switch operator {
	case types.OperatorEquals, types.OperatorNotEquals,
		types.OperatorAfter, types.OperatorAfterOrEquals,
		types.OperatorBefore, types.OperatorBeforeOrEquals:
		expected, err := cast.ToTimeE(payload.Single)
		if err != nil {
			return false
		}
		switch operator {
		case types.OperatorEquals:
			return actual.Equal(expected)
		case types.OperatorNotEquals:
			return !actual.Equal(expected)
		case types.OperatorAfter:
			return actual.After(expected)
		case types.OperatorAfterOrEquals:
			return !actual.Before(expected)
		case types.OperatorBefore:
			return actual.Before(expected)
		default:
			return !actual.After(expected)
		}
	case types.OperatorBetween, types.OperatorNotBetween:
		min, errMin := cast.ToTimeE(payload.Min)
		max, errMax := cast.ToTimeE(payload.Max)
		if errMin != nil || errMax != nil {
			return false
		}
		within := !actual.Before(min) && !actual.After(max)
		if operator == types.OperatorBetween {
			return within
		}
		return !within
	default:
		return false
	}
}

func evaluateArray(operator string, value interface{}, payload types.ValuePayload) bool {
	items, err := cast.ToSliceE(value)
	if err != nil {
		return false
	}
	switch operator {
	case types.OperatorContains:
		return containsString(items, cast.ToString(payload.Single))
	case types.OperatorNotContains:
		return !containsString(items, cast.ToString(payload.Single))
	case types.OperatorContainsAny:
		for _, expected := range payload.List {
			if containsString(items, cast.ToString(expected)) {
				return true
			}
		}
		return false
	case types.OperatorContainsAll:
		for _, expected := range payload.List {
			if !containsString(items, cast.ToString(expected)) {
				return false
			}
		}
		return len(payload.List) > 0
	default:
		return false
	}
}

// containsString 按字符串表示做成员判断，屏蔽数字编码差异
func containsString(items []interface{}, expected string) bool {
	for _, item := range items {
		if cast.ToString(item) == expected {
			return true
		}
	}
	return false
}
