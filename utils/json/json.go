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

// Package json wraps encoding/json with HTML escaping turned off, so operator
// values like `<` and `>` survive storage and the wire unmangled.
package json

import (
	"bytes"
	"encoding/json"
)

// Marshal 序列化为JSON，不转义HTML字符
func Marshal(v interface{}) ([]byte, error) {
	return Marshal2(v, false)
}

// Marshal2 marshals v with HTML escaping selectable; the encoder's trailing
// newline is trimmed off.
func Marshal2(v interface{}, escapeHTML bool) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(escapeHTML)
	err := encoder.Encode(v)
	if err == nil && byteBuf.Len() > 0 {
		return byteBuf.Bytes()[:byteBuf.Len()-1], err
	} else {
		return byteBuf.Bytes(), err
	}
}

// Unmarshal 反序列化
func Unmarshal(b []byte, m interface{}) error {
	return json.Unmarshal(b, m)
}
