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
	"sync"
	"time"

	"github.com/streamfilter/streamfilter/api/types"
)

// operatorTable 每种数据类型的合法操作符，顺序即展示顺序
// operatorTable lists the legal operators per data type, in display order.
// The first entry of each list is the default operator for that type.
// This table is shared with the server-side evaluator; entries must not drift.
var operatorTable = map[types.DataType][]string{
	types.String: {
		types.OperatorEquals, types.OperatorNotEquals,
		types.OperatorContains, types.OperatorNotContains,
		types.OperatorStartsWith, types.OperatorEndsWith,
		types.OperatorIn, types.OperatorNotIn,
		types.OperatorIsEmpty, types.OperatorIsNotEmpty,
	},
	types.Number: {
		types.OperatorEquals, types.OperatorNotEquals,
		types.OperatorGreaterThan, types.OperatorGreaterThanOrEquals,
		types.OperatorLessThan, types.OperatorLessThanOrEquals,
		types.OperatorBetween, types.OperatorNotBetween,
		types.OperatorIn, types.OperatorNotIn,
		types.OperatorIsEmpty, types.OperatorIsNotEmpty,
	},
	types.Boolean: {
		types.OperatorEquals, types.OperatorNotEquals,
	},
	types.Date: {
		types.OperatorEquals, types.OperatorNotEquals,
		types.OperatorAfter, types.OperatorAfterOrEquals,
		types.OperatorBefore, types.OperatorBeforeOrEquals,
		types.OperatorBetween, types.OperatorNotBetween,
		types.OperatorIsEmpty, types.OperatorIsNotEmpty,
	},
	types.Array: {
		types.OperatorContains, types.OperatorNotContains,
		types.OperatorContainsAny, types.OperatorContainsAll,
		types.OperatorIsEmpty, types.OperatorIsNotEmpty,
	},
}

// ArityOf 操作符的值形态归类
// ArityOf returns the arity class of an operator id.
// none = is_empty/is_not_empty; range = between/not_between;
// list = in/not_in/contains_any/contains_all; everything else is single.
func ArityOf(operatorId string) types.Arity {
	switch operatorId {
	case types.OperatorIsEmpty, types.OperatorIsNotEmpty:
		return types.ArityNone
	case types.OperatorBetween, types.OperatorNotBetween:
		return types.ArityRange
	case types.OperatorIn, types.OperatorNotIn, types.OperatorContainsAny, types.OperatorContainsAll:
		return types.ArityList
	default:
		return types.AritySingle
	}
}

// Registry 操作符表和实体类型字段目录，实例级配置，不使用全局可变状态
// Registry carries the operator table and the per-entity-type field catalog.
// It is instance scoped so different tenants can run different catalogs;
// the operator table itself is fixed.
type Registry struct {
	sync.RWMutex
	entityTypes map[string]types.EntityType
}

// NewRegistry creates a Registry with an empty catalog.
func NewRegistry() *Registry {
	return &Registry{
		entityTypes: make(map[string]types.EntityType),
	}
}

// RegisterEntityType 注册实体类型及其字段目录，同ID覆盖
// RegisterEntityType adds or replaces an entity type's field catalog.
func (r *Registry) RegisterEntityType(entityType types.EntityType) {
	r.Lock()
	defer r.Unlock()
	r.entityTypes[entityType.Id] = entityType
}

// EntityTypes returns all registered entity types.
func (r *Registry) EntityTypes() []types.EntityType {
	r.RLock()
	defer r.RUnlock()
	var result []types.EntityType
	for _, item := range r.entityTypes {
		result = append(result, item)
	}
	return result
}

// FieldOf 查找实体类型下的字段定义
// FieldOf looks up a field definition within an entity type's catalog.
func (r *Registry) FieldOf(entityTypeId, fieldId string) (types.Field, bool) {
	r.RLock()
	defer r.RUnlock()
	entityType, ok := r.entityTypes[entityTypeId]
	if !ok {
		return types.Field{}, false
	}
	for _, field := range entityType.Fields {
		if field.Id == fieldId {
			return field, true
		}
	}
	return types.Field{}, false
}

// OperatorsFor 数据类型的合法操作符列表，未知类型返回空列表而不是错误
// OperatorsFor returns the ordered legal operators for a data type.
// An unknown data type yields an empty list so callers can degrade gracefully;
// the validator still reports a missing operator as a hard error.
func (r *Registry) OperatorsFor(dataType types.DataType) []types.Operator {
	ids, ok := operatorTable[dataType]
	if !ok {
		return nil
	}
	operators := make([]types.Operator, 0, len(ids))
	for _, id := range ids {
		operators = append(operators, types.Operator{
			Id:       id,
			DataType: dataType,
			Arity:    ArityOf(id),
		})
	}
	return operators
}

// ArityOf 校验操作符对数据类型是否合法并返回值形态
// ArityOf returns the arity class of operatorId for dataType, and whether the
// operator is legal for that type at all.
func (r *Registry) ArityOf(operatorId string, dataType types.DataType) (types.Arity, bool) {
	for _, id := range operatorTable[dataType] {
		if id == operatorId {
			return ArityOf(id), true
		}
	}
	return "", false
}

// DefaultOperatorFor 数据类型的默认操作符，未知类型返回空串
// DefaultOperatorFor returns the default operator id for a data type,
// or "" when the type has none.
func (r *Registry) DefaultOperatorFor(dataType types.DataType) string {
	if ids := operatorTable[dataType]; len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// DefaultValueFor 数据类型切换字段后的初始值
// DefaultValueFor returns the type-appropriate seed value used when a
// condition's field changes: "" for string, 0 for number, false for boolean,
// today's date for date, nil otherwise.
func (r *Registry) DefaultValueFor(dataType types.DataType) interface{} {
	switch dataType {
	case types.String:
		return ""
	case types.Number:
		return float64(0)
	case types.Boolean:
		return false
	case types.Date:
		return today()
	default:
		return nil
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}
