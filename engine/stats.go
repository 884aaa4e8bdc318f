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

// StatsAggregator 按过滤器ID累计评估统计
// StatsAggregator keeps the per-filter evaluation aggregates. Updates are
// append-only: counters only grow, an evaluation is never un-counted.
type StatsAggregator struct {
	sync.RWMutex
	stats map[string]*filterStats
}

type filterStats struct {
	received      int64
	matched       int64
	totalElapsed  time.Duration
	lastMatchedAt int64
	// score 统计协作方下发的效率分，-1表示未下发
	score float64
}

// NewStatsAggregator creates an empty aggregator.
func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{stats: make(map[string]*filterStats)}
}

// Record 记录一次评估结果
func (s *StatsAggregator) Record(filterId string, matched bool, elapsed time.Duration) {
	s.Lock()
	defer s.Unlock()
	item := s.stats[filterId]
	if item == nil {
		item = &filterStats{score: -1}
		s.stats[filterId] = item
	}
	item.received++
	item.totalElapsed += elapsed
	if matched {
		item.matched++
		item.lastMatchedAt = time.Now().UnixMilli()
	}
}

// SetEfficiencyScore 记录统计协作方下发的效率分(0-100)，覆盖本地推导值
// SetEfficiencyScore stores the collaborator-supplied efficiency score. The
// supplied score always wins over the locally derived fallback.
func (s *StatsAggregator) SetEfficiencyScore(filterId string, score float64) {
	s.Lock()
	defer s.Unlock()
	item := s.stats[filterId]
	if item == nil {
		item = &filterStats{}
		s.stats[filterId] = item
	}
	item.score = score
}

// Snapshot 某个过滤器的统计快照，没有记录时返回nil
func (s *StatsAggregator) Snapshot(filterId string) *types.Statistics {
	s.RLock()
	defer s.RUnlock()
	item, ok := s.stats[filterId]
	if !ok {
		return nil
	}
	return item.snapshot(filterId)
}

// SnapshotAll 全部过滤器的统计快照
func (s *StatsAggregator) SnapshotAll() []*types.Statistics {
	s.RLock()
	defer s.RUnlock()
	result := make([]*types.Statistics, 0, len(s.stats))
	for filterId, item := range s.stats {
		result = append(result, item.snapshot(filterId))
	}
	return result
}

func (f *filterStats) snapshot(filterId string) *types.Statistics {
	stat := &types.Statistics{
		FilterId:      filterId,
		Received:      f.received,
		Matched:       f.matched,
		LastMatchedAt: f.lastMatchedAt,
	}
	if f.received > 0 {
		stat.MatchRate = float64(f.matched) / float64(f.received) * 100
		stat.AvgProcessingTimeMs = float64(f.totalElapsed.Microseconds()) / float64(f.received) / 1000
	}
	if f.score >= 0 {
		stat.EfficiencyScore = f.score
	} else {
		stat.EfficiencyScore = deriveEfficiencyScore(stat.MatchRate, stat.AvgProcessingTimeMs)
	}
	return stat
}

// deriveEfficiencyScore 本地兜底效率分：低耗时、高命中精度得分高
// The authoritative formula lives in the statistics collaborator; this fallback
// only keeps the banding usable before the collaborator has reported.
func deriveEfficiencyScore(matchRate, avgMs float64) float64 {
	timeScore := 50.0
	switch {
	case avgMs <= 1:
		timeScore = 50
	case avgMs >= 100:
		timeScore = 0
	default:
		timeScore = 50 * (100 - avgMs) / 99
	}
	return timeScore + matchRate/2
}
