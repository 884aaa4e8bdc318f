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
	"fmt"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/utils/cast"
)

// Validator 过滤器校验器
// Validator checks a filter against the per-node invariants and produces the
// full ordered list of human-readable violations. It is a pure query: it never
// mutates the filter and never fails, whatever the tree's shape.
type Validator struct {
	registry *Registry
}

// NewValidator creates a Validator bound to a registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate 校验过滤器，返回全部错误而不是第一个
// Validate walks the tree pre-order (parent before children, children in list
// order) and reports every violation at once, so the user can fix them
// together. Messages identify conditions by field label, never by node id.
func (v *Validator) Validate(filter *types.Filter) types.ValidationResult {
	var errs []string
	if filter == nil {
		return types.ValidationResult{Valid: false, Errors: []string{"Filter is required"}}
	}
	if filter.Name == "" {
		errs = append(errs, "Filter name is required")
	}
	if filter.EntityType == "" {
		errs = append(errs, "Entity type is required")
	}
	if filter.Conditions != nil {
		position := 0
		errs = append(errs, v.validateGroup(filter, filter.Conditions, &position)...)
	}
	return types.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// validateGroup 递归校验组，空组合法（按组合方式的幺元匹配）
func (v *Validator) validateGroup(filter *types.Filter, group *types.FilterNode, position *int) []string {
	var errs []string
	for _, child := range group.Conditions {
		if child == nil {
			continue
		}
		if child.IsGroup() {
			errs = append(errs, v.validateGroup(filter, child, position)...)
		} else {
			*position++
			errs = append(errs, v.validateCondition(filter, child, *position)...)
		}
	}
	return errs
}

func (v *Validator) validateCondition(filter *types.Filter, condition *types.FilterNode, position int) []string {
	label := v.labelOf(filter, condition, position)
	if condition.Field == "" {
		return []string{fmt.Sprintf("%s: field is required", label)}
	}
	if condition.Operator == "" {
		return []string{fmt.Sprintf("%s: operator is required", label)}
	}
	field, known := v.registry.FieldOf(filter.EntityType, condition.Field)

	var errs []string
	switch payload := condition.Payload(ArityOf(condition.Operator)); payload.Kind {
	case types.ArityNone:
		// no value to check
	case types.ArityRange:
		if payload.Min == nil {
			errs = append(errs, fmt.Sprintf("%s: minimum value is required", label))
		}
		if payload.Max == nil {
			errs = append(errs, fmt.Sprintf("%s: maximum value is required", label))
		}
		if payload.Min != nil && payload.Max != nil && known {
			if !rangeOrdered(field.DataType, payload.Min, payload.Max) {
				errs = append(errs, fmt.Sprintf("%s: minimum value must be less than maximum value", label))
			}
		}
	case types.ArityList:
		if len(payload.List) == 0 {
			errs = append(errs, fmt.Sprintf("%s: at least one value is required", label))
		}
	default:
		if payload.Single == nil || payload.Single == "" {
			errs = append(errs, fmt.Sprintf("%s: value is required", label))
		}
	}
	return errs
}

// rangeOrdered min必须严格小于max，数字和日期之外的类型不做顺序检查
func rangeOrdered(dataType types.DataType, min, max interface{}) bool {
	switch dataType {
	case types.Number:
		minV, errMin := cast.ToFloat64E(min)
		maxV, errMax := cast.ToFloat64E(max)
		if errMin != nil || errMax != nil {
			return true
		}
		return minV < maxV
	case types.Date:
		minT, errMin := cast.ToTimeE(min)
		maxT, errMax := cast.ToTimeE(max)
		if errMin != nil || errMax != nil {
			return true
		}
		return minT.Before(maxT)
	default:
		return true
	}
}

// labelOf 用字段名定位条件，字段为空时退回序号
func (v *Validator) labelOf(filter *types.Filter, condition *types.FilterNode, position int) string {
	if condition.Field != "" {
		if field, ok := v.registry.FieldOf(filter.EntityType, condition.Field); ok {
			return field.Label
		}
		return condition.Field
	}
	return fmt.Sprintf("Condition %d", position)
}
