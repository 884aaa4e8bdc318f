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
	"testing"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/test/assert"
)

func newTestValidator() *Validator {
	return NewValidator(newTestRegistry())
}

func validFilter() *types.Filter {
	return &types.Filter{
		Id:         "f1",
		Name:       "big orders",
		EntityType: "order",
		Conditions: &types.FilterNode{
			Id:       "root",
			Type:     types.NodeTypeGroup,
			Operator: types.GroupAnd,
			Conditions: []*types.FilterNode{
				{Id: "c1", Type: types.NodeTypeCondition, Field: "amount", Operator: types.OperatorGreaterThan, Value: float64(100)},
			},
		},
	}
}

func TestValidateOk(t *testing.T) {
	result := newTestValidator().Validate(validFilter())
	assert.True(t, result.Valid)
	assert.Equal(t, 0, len(result.Errors))
}

func TestValidateNilFilter(t *testing.T) {
	result := newTestValidator().Validate(nil)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"Filter is required"}, result.Errors)
}

func TestValidateMetadata(t *testing.T) {
	filter := validFilter()
	filter.Name = ""
	filter.EntityType = ""
	result := newTestValidator().Validate(filter)
	assert.False(t, result.Valid)
	// metadata errors come before tree errors, in declaration order
	assert.Equal(t, "Filter name is required", result.Errors[0])
	assert.Equal(t, "Entity type is required", result.Errors[1])
}

func TestValidateIncompleteCondition(t *testing.T) {
	v := newTestValidator()

	filter := validFilter()
	filter.Conditions.Conditions[0].Field = ""
	result := v.Validate(filter)
	assert.Equal(t, []string{"Condition 1: field is required"}, result.Errors)

	filter = validFilter()
	filter.Conditions.Conditions[0].Operator = ""
	result = v.Validate(filter)
	// a missing operator short-circuits the value checks
	assert.Equal(t, []string{"Amount: operator is required"}, result.Errors)
}

func TestValidateSingleValue(t *testing.T) {
	v := newTestValidator()

	filter := validFilter()
	filter.Conditions.Conditions[0].Value = nil
	result := v.Validate(filter)
	assert.Equal(t, []string{"Amount: value is required"}, result.Errors)

	// the empty string counts as missing too
	filter.Conditions.Conditions[0].Value = ""
	result = v.Validate(filter)
	assert.Equal(t, []string{"Amount: value is required"}, result.Errors)
}

func TestValidateRange(t *testing.T) {
	v := newTestValidator()
	filter := validFilter()
	condition := filter.Conditions.Conditions[0]
	condition.Operator = types.OperatorBetween
	condition.Value = nil

	result := v.Validate(filter)
	assert.Equal(t, []string{
		"Amount: minimum value is required",
		"Amount: maximum value is required",
	}, result.Errors)

	condition.ValueMin = float64(20)
	condition.ValueMax = float64(10)
	result = v.Validate(filter)
	assert.Equal(t, []string{"Amount: minimum value must be less than maximum value"}, result.Errors)

	// equal bounds are rejected, the order check is strict
	condition.ValueMax = float64(20)
	result = v.Validate(filter)
	assert.False(t, result.Valid)

	condition.ValueMax = float64(30)
	assert.True(t, v.Validate(filter).Valid)
}

func TestValidateDateRangeOrder(t *testing.T) {
	v := newTestValidator()
	filter := validFilter()
	condition := filter.Conditions.Conditions[0]
	condition.Field = "created_at"
	condition.Operator = types.OperatorBetween
	condition.Value = nil
	condition.ValueMin = "2024-06-01"
	condition.ValueMax = "2024-01-01"

	result := v.Validate(filter)
	assert.Equal(t, []string{"Created At: minimum value must be less than maximum value"}, result.Errors)

	// unparsable bounds fail as missing semantics elsewhere, not as misordered
	condition.ValueMax = "not a date"
	assert.True(t, v.Validate(filter).Valid)
}

func TestValidateList(t *testing.T) {
	v := newTestValidator()
	filter := validFilter()
	condition := filter.Conditions.Conditions[0]
	condition.Field = "status"
	condition.Operator = types.OperatorIn
	condition.Value = nil

	result := v.Validate(filter)
	assert.Equal(t, []string{"Status: at least one value is required"}, result.Errors)

	condition.Values = []interface{}{"paid"}
	assert.True(t, v.Validate(filter).Valid)
}

func TestValidateNoneNeedsNoValue(t *testing.T) {
	v := newTestValidator()
	filter := validFilter()
	condition := filter.Conditions.Conditions[0]
	condition.Operator = types.OperatorIsEmpty
	condition.Value = nil
	assert.True(t, v.Validate(filter).Valid)
}

func TestValidateReportsAllErrorsInTreeOrder(t *testing.T) {
	v := newTestValidator()
	filter := &types.Filter{
		Name:       "multi",
		EntityType: "order",
		Conditions: &types.FilterNode{
			Id:       "root",
			Type:     types.NodeTypeGroup,
			Operator: types.GroupAnd,
			Conditions: []*types.FilterNode{
				{Id: "c1", Type: types.NodeTypeCondition},
				{
					Id:       "g1",
					Type:     types.NodeTypeGroup,
					Operator: types.GroupOr,
					Conditions: []*types.FilterNode{
						{Id: "c2", Type: types.NodeTypeCondition, Field: "status", Operator: types.OperatorEquals},
					},
				},
				{Id: "c3", Type: types.NodeTypeCondition, Field: "mystery", Operator: types.OperatorEquals},
			},
		},
	}
	result := v.Validate(filter)
	assert.Equal(t, []string{
		"Condition 1: field is required",
		"Status: value is required",
		// unknown fields fall back to the raw field id as the label
		"mystery: value is required",
	}, result.Errors)
}

func TestValidateEmptyGroupIsLegal(t *testing.T) {
	v := newTestValidator()
	filter := validFilter()
	filter.Conditions.Conditions = nil
	assert.True(t, v.Validate(filter).Valid)
}
