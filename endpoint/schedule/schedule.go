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

// Package schedule runs periodic statistics jobs on cron expressions.
package schedule

import (
	"github.com/robfig/cron/v3"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/engine"
	"github.com/streamfilter/streamfilter/utils/json"
)

// ReportFunc 统计快照消费函数，默认写日志
type ReportFunc func(snapshots []*types.Statistics)

// StatsReporter 按cron表达式定期输出全部过滤器的统计快照
type StatsReporter struct {
	CoreConfig types.Config

	stats    *engine.StatsAggregator
	cron     *cron.Cron
	onReport ReportFunc
}

// NewStatsReporter creates a reporter over the engine's aggregator. When
// onReport is nil snapshots are logged as JSON lines.
func NewStatsReporter(coreConfig types.Config, stats *engine.StatsAggregator, onReport ReportFunc) *StatsReporter {
	r := &StatsReporter{
		CoreConfig: coreConfig,
		stats:      stats,
		onReport:   onReport,
	}
	if r.onReport == nil {
		r.onReport = r.logSnapshots
	}
	return r
}

// AddJob 注册一个cron任务，支持秒级表达式
func (r *StatsReporter) AddJob(cronSpec string) (cron.EntryID, error) {
	if r.cron == nil {
		r.cron = cron.New(cron.WithSeconds())
		r.cron.Start()
	}
	return r.cron.AddFunc(cronSpec, r.report)
}

// RemoveJob 注销cron任务
func (r *StatsReporter) RemoveJob(id cron.EntryID) {
	if r.cron != nil {
		r.cron.Remove(id)
	}
}

func (r *StatsReporter) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

func (r *StatsReporter) report() {
	snapshots := r.stats.SnapshotAll()
	if len(snapshots) == 0 {
		return
	}
	r.onReport(snapshots)
}

func (r *StatsReporter) logSnapshots(snapshots []*types.Statistics) {
	for _, snapshot := range snapshots {
		if data, err := json.Marshal(snapshot); err == nil {
			r.printf("stats: %s", string(data))
		}
	}
}

func (r *StatsReporter) printf(format string, v ...interface{}) {
	if r.CoreConfig.Logger != nil {
		r.CoreConfig.Logger.Printf(format, v...)
	}
}
