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
	"sync"
	"time"

	"github.com/streamfilter/streamfilter/api/types"
)

var (
	ErrInvalidFilter        = errors.New("filter is not valid")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Engine 过滤订阅引擎
// Engine evaluates every incoming record against the active subscriptions.
// Each subscription binds one validated filter to a match callback; filters
// are compiled to expression programs when enabled, with the interpreting
// evaluator as fallback. Statistics are recorded per filter id.
type Engine struct {
	Config types.Config

	registry  *Registry
	builder   *Builder
	validator *Validator
	evaluator *Evaluator
	compiler  *Compiler
	stats     *StatsAggregator

	sync.RWMutex
	// subscriptions 订阅索引，订阅ID -> 订阅
	subscriptions map[string]*Subscription
}

// Subscription 一个过滤器到回调的绑定
type Subscription struct {
	Id     string
	Filter *types.Filter
	// compiled 编译结果，nil表示解释执行
	compiled *CompiledFilter
	onMatch  types.OnMatchFunc
}

// New creates an Engine with the given configuration and catalog registry.
func New(config types.Config, registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		Config:        config,
		registry:      registry,
		builder:       NewBuilder(config, registry),
		validator:     NewValidator(registry),
		evaluator:     NewEvaluator(registry),
		compiler:      NewCompiler(registry),
		stats:         NewStatsAggregator(),
		subscriptions: make(map[string]*Subscription),
	}
}

// Registry returns the catalog registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Builder returns the tree builder bound to this engine's configuration.
func (e *Engine) Builder() *Builder {
	return e.builder
}

// Validator returns the filter validator.
func (e *Engine) Validator() *Validator {
	return e.validator
}

// Evaluator returns the interpreting evaluator.
func (e *Engine) Evaluator() *Evaluator {
	return e.evaluator
}

// Stats returns the statistics aggregator.
func (e *Engine) Stats() *StatsAggregator {
	return e.stats
}

// Subscribe 注册订阅：校验过滤器，按配置编译，返回订阅ID
// Subscribe activates a filter. Invalid filters are rejected with
// ErrInvalidFilter wrapping the first violation; compile failures fall back to
// interpretation and are logged, never fatal.
func (e *Engine) Subscribe(filter *types.Filter, onMatch types.OnMatchFunc) (string, error) {
	if result := e.validator.Validate(filter); !result.Valid {
		return "", fmt.Errorf("%w: %s", ErrInvalidFilter, result.Errors[0])
	}
	subscription := &Subscription{
		Id:      NewId(),
		Filter:  filter,
		onMatch: onMatch,
	}
	if e.Config.CompileFilters {
		if compiled, err := e.compiler.Compile(filter); err == nil {
			subscription.compiled = compiled
		} else {
			e.logf("engine: compile filter %s failed, falling back to interpreter: %v", filter.Id, err)
		}
	}
	e.Lock()
	e.subscriptions[subscription.Id] = subscription
	e.Unlock()
	return subscription.Id, nil
}

// Unsubscribe 注销订阅
func (e *Engine) Unsubscribe(subscriptionId string) error {
	e.Lock()
	defer e.Unlock()
	if _, ok := e.subscriptions[subscriptionId]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(e.subscriptions, subscriptionId)
	return nil
}

// OnEvent 把一条记录投递给全部匹配实体类型的订阅
// OnEvent evaluates the record against every subscription whose filter targets
// the given entity type, records statistics and invokes match callbacks on the
// calling goroutine.
func (e *Engine) OnEvent(entityType string, record types.Record) {
	e.RLock()
	subscriptions := make([]*Subscription, 0, len(e.subscriptions))
	for _, subscription := range e.subscriptions {
		if subscription.Filter.EntityType == entityType {
			subscriptions = append(subscriptions, subscription)
		}
	}
	e.RUnlock()

	for _, subscription := range subscriptions {
		start := time.Now()
		matched := e.match(subscription, record)
		e.stats.Record(subscription.Filter.Id, matched, time.Since(start))
		if matched && subscription.onMatch != nil {
			subscription.onMatch(subscription.Filter.Id, record)
		}
	}
}

// match 优先执行编译结果，失败时退回解释执行
func (e *Engine) match(subscription *Subscription, record types.Record) bool {
	if subscription.compiled != nil {
		if matched, err := subscription.compiled.Run(record); err == nil {
			return matched
		} else {
			e.logf("engine: compiled filter %s run failed, interpreting: %v", subscription.Filter.Id, err)
		}
	}
	return e.evaluator.Evaluate(subscription.Filter, record)
}

// TestFilter 用样本记录测试过滤器
// TestFilter runs the filter over the supplied sample records and returns the
// aggregate expected by the test collaborator contract, with up to
// maxExamples matching records echoed back.
func (e *Engine) TestFilter(filter *types.Filter, records []types.Record, maxExamples int) (*types.TestResult, error) {
	if result := e.validator.Validate(filter); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, result.Errors[0])
	}
	if maxExamples <= 0 {
		maxExamples = 10
	}
	result := &types.TestResult{
		TotalMessages: len(records),
		Examples:      []types.Record{},
	}
	var totalElapsed time.Duration
	for _, record := range records {
		start := time.Now()
		matched := e.evaluator.Evaluate(filter, record)
		totalElapsed += time.Since(start)
		if matched {
			result.MatchedMessages++
			if len(result.Examples) < maxExamples {
				result.Examples = append(result.Examples, record)
			}
		}
	}
	if result.TotalMessages > 0 {
		result.MatchRate = float64(result.MatchedMessages) / float64(result.TotalMessages) * 100
		result.AvgProcessingTime = float64(totalElapsed.Microseconds()) / float64(result.TotalMessages) / 1000
	}
	return result, nil
}

func (e *Engine) logf(format string, v ...interface{}) {
	if e.Config.Logger != nil {
		e.Config.Logger.Printf(format, v...)
	}
}
