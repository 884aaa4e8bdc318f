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

// DataType 字段数据类型
// DataType is the data type of a filterable field.
type DataType string

const (
	String  DataType = "string"
	Number  DataType = "number"
	Boolean DataType = "boolean"
	Date    DataType = "date"
	Array   DataType = "array"
)

// Arity 操作符值形态
// Arity is the value shape an operator carries:
// none (no value), single (one value), range (valueMin/valueMax) or list (ordered values).
type Arity string

const (
	ArityNone   Arity = "none"
	AritySingle Arity = "single"
	ArityRange  Arity = "range"
	ArityList   Arity = "list"
)

// operator identifiers
// The operator set per data type is fixed; it is the wire contract shared with
// the server-side evaluator and must not drift.
const (
	OperatorEquals              = "equals"
	OperatorNotEquals           = "not_equals"
	OperatorContains            = "contains"
	OperatorNotContains         = "not_contains"
	OperatorStartsWith          = "starts_with"
	OperatorEndsWith            = "ends_with"
	OperatorGreaterThan         = "greater_than"
	OperatorGreaterThanOrEquals = "greater_than_or_equals"
	OperatorLessThan            = "less_than"
	OperatorLessThanOrEquals    = "less_than_or_equals"
	OperatorAfter               = "after"
	OperatorAfterOrEquals       = "after_or_equals"
	OperatorBefore              = "before"
	OperatorBeforeOrEquals      = "before_or_equals"
	OperatorBetween             = "between"
	OperatorNotBetween          = "not_between"
	OperatorIn                  = "in"
	OperatorNotIn               = "not_in"
	OperatorContainsAny         = "contains_any"
	OperatorContainsAll         = "contains_all"
	OperatorIsEmpty             = "is_empty"
	OperatorIsNotEmpty          = "is_not_empty"
)

// group combinators
const (
	GroupAnd = "and"
	GroupOr  = "or"
	// GroupNot negates the conjunction of the group's children: NOT(AND(children)).
	// An empty not group is therefore NOT(true) = false.
	GroupNot = "not"
)

// Operator 操作符定义
// Operator describes one comparison operator legal for a data type.
type Operator struct {
	// Id 操作符标识
	Id string `json:"id"`
	// DataType 操作符所属数据类型
	DataType DataType `json:"dataType"`
	// Arity 操作符值形态
	Arity Arity `json:"arity"`
}

// Field 可过滤字段定义，由外部目录提供，只读
// Field is one filterable field from the external catalog. Read-only.
type Field struct {
	Id       string   `json:"id"`
	Label    string   `json:"label"`
	DataType DataType `json:"dataType"`
}

// EntityType 过滤目标实体类型及其字段目录
// EntityType is the category of record a filter evaluates against,
// together with its field catalog.
type EntityType struct {
	Id     string  `json:"id"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Record 待评估的事件记录
// Record is one event payload a filter is evaluated against.
type Record map[string]interface{}

// OnMatchFunc 过滤器命中回调
// OnMatchFunc is invoked for every record a subscription's filter matches.
type OnMatchFunc func(filterId string, record Record)
