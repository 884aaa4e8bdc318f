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

// DefaultMaxDepth 过滤树默认最大嵌套深度
// DefaultMaxDepth is the default nesting depth cap for condition groups.
const DefaultMaxDepth = 5

// Configuration 组件配置类型
// Configuration is the loosely typed configuration map decoded into each
// component's config struct.
type Configuration map[string]interface{}

// Config defines the configuration for the filter engine.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// MaxDepth is the nesting depth cap enforced by the builder when adding
	// child groups. Defaults to DefaultMaxDepth.
	MaxDepth int
	// CompileFilters enables compilation of validated filter trees into
	// expression programs for the streaming hot path. When compilation of a
	// particular tree fails, the interpreting evaluator is used for it instead.
	CompileFilters bool
	// Properties are global properties in key-value format.
	Properties map[string]string
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:         DefaultLogger(),
		MaxDepth:       DefaultMaxDepth,
		CompileFilters: true,
		Properties:     make(map[string]string),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
