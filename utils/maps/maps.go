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

// Package maps decodes loose configuration maps into typed structs.
package maps

import "github.com/mitchellh/mapstructure"

// Map2Struct 把配置map解码到结构体
// Map2Struct decodes input into output via mapstructure. output must be a
// pointer to a struct or map.
func Map2Struct(input interface{}, output interface{}) error {
	return mapstructure.Decode(input, output)
}
