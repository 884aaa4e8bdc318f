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
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/utils/cast"
	"github.com/streamfilter/streamfilter/utils/json"
)

var ErrNotCompilable = errors.New("filter tree can not be compiled")

// Compiler 把过滤树编译成expr表达式程序
// Compiler translates a validated filter tree into a single expr program for
// the streaming hot path. The generated source references the record as `r`
// plus a fixed set of coercion helpers, so compiled and interpreted evaluation
// share the cast semantics and must agree on every record.
type Compiler struct {
	registry *Registry
}

// CompiledFilter 编译结果
type CompiledFilter struct {
	FilterId string
	// Source 生成的表达式源码，便于调试
	Source  string
	program *vm.Program
}

// NewCompiler creates a Compiler bound to a registry.
func NewCompiler(registry *Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Compile 编译过滤器，不可编译的树返回错误，调用方退回解释执行
func (c *Compiler) Compile(filter *types.Filter) (*CompiledFilter, error) {
	if filter == nil || filter.Conditions == nil {
		return nil, ErrNotCompilable
	}
	source := c.groupSource(filter, filter.Conditions)
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	return &CompiledFilter{FilterId: filter.Id, Source: source, program: program}, nil
}

// Run 对一条记录执行编译结果
func (c *CompiledFilter) Run(record types.Record) (bool, error) {
	env := newExprEnv(record)
	out, err := vm.Run(c.program, env)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	return ok && result, nil
}

// newExprEnv 表达式运行环境：记录本体加一组宽松转换助手
func newExprEnv(record types.Record) map[string]interface{} {
	return map[string]interface{}{
		"r":   map[string]interface{}(record),
		"str": func(v interface{}) string { return cast.ToString(v) },
		"num": func(v interface{}) float64 { return cast.ToFloat64(v) },
		"isNum": func(v interface{}) bool {
			_, err := cast.ToFloat64E(v)
			return err == nil
		},
		"truthy": func(v interface{}) bool { return cast.ToBool(v) },
		"isBool": func(v interface{}) bool {
			_, err := cast.ToBoolE(v)
			return err == nil
		},
		"ts": func(v interface{}) int64 {
			t, err := cast.ToTimeE(v)
			if err != nil {
				return 0
			}
			return t.UnixMilli()
		},
		"isDate": func(v interface{}) bool {
			_, err := cast.ToTimeE(v)
			return err == nil
		},
		"strs": func(v interface{}) []string {
			items, err := cast.ToSliceE(v)
			if err != nil {
				return nil
			}
			out := make([]string, len(items))
			for i, item := range items {
				out[i] = cast.ToString(item)
			}
			return out
		},
		"isArr": func(v interface{}) bool {
			_, err := cast.ToSliceE(v)
			return err == nil && v != nil
		},
		"empty": func(v interface{}) bool { return isEmptyValue(v, v != nil) },
	}
}

func (c *Compiler) groupSource(filter *types.Filter, group *types.FilterNode) string {
	var parts []string
	for _, child := range group.Conditions {
		if child == nil {
			// a nil child never matches
			parts = append(parts, "false")
			continue
		}
		if child.IsGroup() {
			parts = append(parts, c.groupSource(filter, child))
		} else {
			parts = append(parts, c.conditionSource(filter, child))
		}
	}
	switch group.Operator {
	case types.GroupOr:
		if len(parts) == 0 {
			return "false"
		}
		return "(" + strings.Join(parts, " || ") + ")"
	case types.GroupNot:
		if len(parts) == 0 {
			return "false"
		}
		return "!(" + strings.Join(parts, " && ") + ")"
	default:
		if len(parts) == 0 {
			return "true"
		}
		return "(" + strings.Join(parts, " && ") + ")"
	}
}

// conditionSource 单个条件的表达式，不完整或不合法的条件恒为false
func (c *Compiler) conditionSource(filter *types.Filter, condition *types.FilterNode) string {
	if condition.Field == "" || condition.Operator == "" {
		return "false"
	}
	field, ok := c.registry.FieldOf(filter.EntityType, condition.Field)
	if !ok {
		return "false"
	}
	if _, legal := c.registry.ArityOf(condition.Operator, field.DataType); !legal {
		return "false"
	}
	ref := "r[" + stringLit(condition.Field) + "]"
	payload := condition.Payload(ArityOf(condition.Operator))

	switch condition.Operator {
	case types.OperatorIsEmpty:
		return "empty(" + ref + ")"
	case types.OperatorIsNotEmpty:
		return "!empty(" + ref + ")"
	}

	guard := ref + " != nil"
	switch field.DataType {
	case types.String:
		return "(" + guard + " && " + stringOpSource(condition.Operator, ref, payload) + ")"
	case types.Number:
		return "(" + guard + " && isNum(" + ref + ") && " + numberOpSource(condition.Operator, ref, payload) + ")"
	case types.Boolean:
		return "(" + guard + " && isBool(" + ref + ") && " + booleanOpSource(condition.Operator, ref, payload) + ")"
	case types.Date:
		return "(" + guard + " && isDate(" + ref + ") && " + dateOpSource(condition.Operator, ref, payload) + ")"
	case types.Array:
		return "(" + guard + " && isArr(" + ref + ") && " + arrayOpSource(condition.Operator, ref, payload) + ")"
	default:
		return "false"
	}
}

func stringOpSource(operator, ref string, payload types.ValuePayload) string {
	actual := "str(" + ref + ")"
	single := stringLit(cast.ToString(payload.Single))
	switch operator {
	case types.OperatorEquals:
		return actual + " == " + single
	case types.OperatorNotEquals:
		return actual + " != " + single
	case types.OperatorContains:
		return actual + " contains " + single
	case types.OperatorNotContains:
		return "!(" + actual + " contains " + single + ")"
	case types.OperatorStartsWith:
		return actual + " startsWith " + single
	case types.OperatorEndsWith:
		return actual + " endsWith " + single
	case types.OperatorIn:
		return actual + " in " + stringListLit(payload.List)
	case types.OperatorNotIn:
		return "!(" + actual + " in " + stringListLit(payload.List) + ")"
	default:
		return "false"
	}
}

func numberOpSource(operator, ref string, payload types.ValuePayload) string {
	actual := "num(" + ref + ")"
	single, singleErr := cast.ToFloat64E(payload.Single)
	switch operator {
	case types.OperatorEquals, types.OperatorNotEquals,
		types.OperatorGreaterThan, types.OperatorGreaterThanOrEquals,
		types.OperatorLessThan, types.OperatorLessThanOrEquals:
		if singleErr != nil {
			return "false"
		}
		return actual + " " + comparisonToken(operator) + " " + numberLit(single)
	case types.OperatorBetween, types.OperatorNotBetween:
		min, errMin := cast.ToFloat64E(payload.Min)
		max, errMax := cast.ToFloat64E(payload.Max)
		if errMin != nil || errMax != nil {
			return "false"
		}
		within := "(" + actual + " >= " + numberLit(min) + " && " + actual + " <= " + numberLit(max) + ")"
		if operator == types.OperatorBetween {
			return within
		}
		return "!" + within
	case types.OperatorIn, types.OperatorNotIn:
		var lits []string
		for _, item := range payload.List {
			if v, err := cast.ToFloat64E(item); err == nil {
				lits = append(lits, numberLit(v))
			}
		}
		if len(lits) == 0 {
			// nothing comparable in the list: `in` can never match, `not_in` always does
			if operator == types.OperatorIn {
				return "false"
			}
			return "true"
		}
		membership := actual + " in [" + strings.Join(lits, ", ") + "]"
		if operator == types.OperatorIn {
			return membership
		}
		return "!(" + membership + ")"
	default:
		return "false"
	}
}

func booleanOpSource(operator, ref string, payload types.ValuePayload) string {
	expected, err := cast.ToBoolE(payload.Single)
	if err != nil {
		return "false"
	}
	actual := "truthy(" + ref + ")"
	switch operator {
	case types.OperatorEquals:
		return actual + " == " + strconv.FormatBool(expected)
	case types.OperatorNotEquals:
		return actual + " != " + strconv.FormatBool(expected)
	default:
		return "false"
	}
}

func dateOpSource(operator, ref string, payload types.ValuePayload) string {
	actual := "ts(" + ref + ")"
	switch operator {
	case types.OperatorEquals, types.OperatorNotEquals,
		types.OperatorAfter, types.OperatorAfterOrEquals,
		types.OperatorBefore, types.OperatorBeforeOrEquals:
		expected, err := cast.ToTimeE(payload.Single)
		if err != nil {
			return "false"
		}
		lit := strconv.FormatInt(expected.UnixMilli(), 10)
		switch operator {
		case types.OperatorEquals:
			return actual + " == " + lit
		case types.OperatorNotEquals:
			return actual + " != " + lit
		case types.OperatorAfter:
			return actual + " > " + lit
		case types.OperatorAfterOrEquals:
			return actual + " >= " + lit
		case types.OperatorBefore:
			return actual + " < " + lit
		default:
			return actual + " <= " + lit
		}
	case types.OperatorBetween, types.OperatorNotBetween:
		min, errMin := cast.ToTimeE(payload.Min)
		max, errMax := cast.ToTimeE(payload.Max)
		if errMin != nil || errMax != nil {
			return "false"
		}
		within := "(" + actual + " >= " + strconv.FormatInt(min.UnixMilli(), 10) +
			" && " + actual + " <= " + strconv.FormatInt(max.UnixMilli(), 10) + ")"
		if operator == types.OperatorBetween {
			return within
		}
		return "!" + within
	default:
		return "false"
	}
}

func arrayOpSource(operator, ref string, payload types.ValuePayload) string {
	items := "strs(" + ref + ")"
	switch operator {
	case types.OperatorContains:
		return stringLit(cast.ToString(payload.Single)) + " in " + items
	case types.OperatorNotContains:
		return "!(" + stringLit(cast.ToString(payload.Single)) + " in " + items + ")"
	case types.OperatorContainsAny:
		if len(payload.List) == 0 {
			return "false"
		}
		return "any(" + stringListLit(payload.List) + ", {# in " + items + "})"
	case types.OperatorContainsAll:
		if len(payload.List) == 0 {
			return "false"
		}
		return "all(" + stringListLit(payload.List) + ", {# in " + items + "})"
	default:
		return "false"
	}
}

func comparisonToken(operator string) string {
	switch operator {
	case types.OperatorEquals:
		return "=="
	case types.OperatorNotEquals:
		return "!="
	case types.OperatorGreaterThan:
		return ">"
	case types.OperatorGreaterThanOrEquals:
		return ">="
	case types.OperatorLessThan:
		return "<"
	default:
		return "<="
	}
}

// stringLit JSON编码兼作expr字符串字面量
func stringLit(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func stringListLit(items []interface{}) string {
	lits := make([]string, len(items))
	for i, item := range items {
		lits[i] = stringLit(cast.ToString(item))
	}
	return "[" + strings.Join(lits, ", ") + "]"
}

func numberLit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
