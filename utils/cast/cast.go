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

// Package cast provides loose value coercions for filter evaluation.
//
// The coercion table is part of the evaluation contract: records arrive as
// decoded JSON (float64 numbers, string dates) while filter values may have
// been entered as strings. Both sides of every comparison go through these
// functions so the result does not depend on the producer's number encoding.
package cast

import (
	"fmt"
	"strconv"
	"time"
)

// dateLayouts are the accepted textual date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToFloat64 converts an interface{} to float64.
// It returns 0 if conversion fails.
func ToFloat64(value interface{}) float64 {
	v, _ := ToFloat64E(value)
	return v
}

// ToFloat64E converts an interface{} to float64 with error handling.
func ToFloat64E(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		} else {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unable to cast %v of type %T to float64", value, value)
	}
}

// ToString converts an interface{} to string.
func ToString(value interface{}) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", value)
	}
}

// ToBool converts an interface{} to bool.
// It returns false if conversion fails.
func ToBool(value interface{}) bool {
	v, _ := ToBoolE(value)
	return v
}

// ToBoolE converts an interface{} to bool with error handling.
func ToBoolE(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		} else {
			return false, err
		}
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("unable to cast %v of type %T to bool", value, value)
	}
}

// ToTimeE converts an interface{} to time.Time with error handling.
// Numeric values are treated as unix millisecond timestamps; strings are tried
// against the accepted date layouts.
func ToTimeE(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse %q as a date", v)
	case nil:
		return time.Time{}, fmt.Errorf("unable to cast nil to time")
	default:
		if ms, err := ToFloat64E(value); err == nil {
			return time.UnixMilli(int64(ms)), nil
		}
		return time.Time{}, fmt.Errorf("unable to cast %v of type %T to time", value, value)
	}
}

// ToSliceE converts an interface{} to []interface{} with error handling.
func ToSliceE(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []float64:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []int:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unable to cast %v of type %T to slice", value, value)
	}
}
