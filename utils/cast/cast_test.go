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

package cast

import (
	"testing"
	"time"

	"github.com/streamfilter/streamfilter/test/assert"
)

func TestToFloat64(t *testing.T) {
	assert.Equal(t, float64(1.5), ToFloat64(1.5))
	assert.Equal(t, float64(3), ToFloat64(3))
	assert.Equal(t, float64(3), ToFloat64(int64(3)))
	assert.Equal(t, float64(3), ToFloat64("3"))
	assert.Equal(t, float64(1), ToFloat64(true))
	assert.Equal(t, float64(0), ToFloat64("junk"))

	_, err := ToFloat64E("junk")
	assert.NotNil(t, err)
	_, err = ToFloat64E(nil)
	assert.NotNil(t, err)
	_, err = ToFloat64E([]interface{}{1})
	assert.NotNil(t, err)
}

func TestToString(t *testing.T) {
	assert.Equal(t, "abc", ToString("abc"))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "3", ToString(float64(3)))
	assert.Equal(t, "3.5", ToString(float64(3.5)))
	assert.Equal(t, "7", ToString(7))
	assert.Equal(t, "abc", ToString([]byte("abc")))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool(float64(1)))
	assert.False(t, ToBool(float64(0)))
	assert.False(t, ToBool("maybe"))

	_, err := ToBoolE("maybe")
	assert.NotNil(t, err)
	v, err := ToBoolE(nil)
	assert.Nil(t, err)
	assert.False(t, v)
}

func TestToTimeE(t *testing.T) {
	v, err := ToTimeE("2024-06-15")
	assert.Nil(t, err)
	assert.Equal(t, 2024, v.Year())
	assert.Equal(t, time.Month(6), v.Month())

	v, err = ToTimeE("2024-06-15T10:30:00Z")
	assert.Nil(t, err)
	assert.Equal(t, 10, v.Hour())

	v, err = ToTimeE("2024-06-15 10:30:00")
	assert.Nil(t, err)
	assert.Equal(t, 30, v.Minute())

	// numbers are unix millisecond timestamps
	v, err = ToTimeE(float64(1700000000000))
	assert.Nil(t, err)
	assert.Equal(t, int64(1700000000000), v.UnixMilli())

	_, err = ToTimeE("soon")
	assert.NotNil(t, err)
	_, err = ToTimeE(nil)
	assert.NotNil(t, err)
}

func TestToSliceE(t *testing.T) {
	v, err := ToSliceE([]interface{}{"a", 1})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(v))

	v, err = ToSliceE([]string{"a", "b"})
	assert.Nil(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, v)

	v, err = ToSliceE([]float64{1, 2})
	assert.Nil(t, err)
	assert.Equal(t, []interface{}{float64(1), float64(2)}, v)

	v, err = ToSliceE(nil)
	assert.Nil(t, err)
	assert.Nil(t, v)

	_, err = ToSliceE("abc")
	assert.NotNil(t, err)
}
