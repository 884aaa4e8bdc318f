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
	"time"

	"github.com/streamfilter/streamfilter/api/types"
	"github.com/streamfilter/streamfilter/test/assert"
)

func TestStatsRecordAndSnapshot(t *testing.T) {
	stats := NewStatsAggregator()
	stats.Record("f1", true, time.Millisecond)
	stats.Record("f1", false, 3*time.Millisecond)
	stats.Record("f1", true, 2*time.Millisecond)
	stats.Record("f2", false, time.Millisecond)

	snapshot := stats.Snapshot("f1")
	assert.NotNil(t, snapshot)
	assert.Equal(t, "f1", snapshot.FilterId)
	assert.Equal(t, int64(3), snapshot.Received)
	assert.Equal(t, int64(2), snapshot.Matched)
	assert.Equal(t, float64(2)/float64(3)*100, snapshot.MatchRate)
	assert.Equal(t, float64(2), snapshot.AvgProcessingTimeMs)
	assert.True(t, snapshot.LastMatchedAt > 0)

	assert.Equal(t, int64(0), stats.Snapshot("f2").Matched)
	assert.Equal(t, int64(0), stats.Snapshot("f2").LastMatchedAt)
}

func TestStatsSnapshotUnknownFilter(t *testing.T) {
	stats := NewStatsAggregator()
	assert.Nil(t, stats.Snapshot("nope"))
	assert.Equal(t, 0, len(stats.SnapshotAll()))
}

func TestStatsSnapshotAll(t *testing.T) {
	stats := NewStatsAggregator()
	stats.Record("f1", true, time.Millisecond)
	stats.Record("f2", false, time.Millisecond)
	assert.Equal(t, 2, len(stats.SnapshotAll()))
}

func TestStatsCollaboratorScoreWins(t *testing.T) {
	stats := NewStatsAggregator()
	stats.Record("f1", true, time.Millisecond)
	stats.SetEfficiencyScore("f1", 87.5)
	assert.Equal(t, 87.5, stats.Snapshot("f1").EfficiencyScore)

	// the supplied score keeps winning over later local recordings
	stats.Record("f1", false, 50*time.Millisecond)
	assert.Equal(t, 87.5, stats.Snapshot("f1").EfficiencyScore)
}

func TestStatsDerivedScoreFallback(t *testing.T) {
	stats := NewStatsAggregator()
	// fast and always matching: top of both halves of the derived score
	stats.Record("f1", true, 100*time.Microsecond)
	snapshot := stats.Snapshot("f1")
	assert.Equal(t, float64(100), snapshot.EfficiencyScore)
	assert.Equal(t, types.EfficiencyGood, types.EfficiencyBand(snapshot.EfficiencyScore))

	// slow and never matching bottoms out
	stats.Record("f2", false, 200*time.Millisecond)
	snapshot = stats.Snapshot("f2")
	assert.Equal(t, float64(0), snapshot.EfficiencyScore)
	assert.Equal(t, types.EfficiencyPoor, types.EfficiencyBand(snapshot.EfficiencyScore))
}

func TestEfficiencyBands(t *testing.T) {
	assert.Equal(t, types.EfficiencyGood, types.EfficiencyBand(100))
	assert.Equal(t, types.EfficiencyGood, types.EfficiencyBand(80))
	assert.Equal(t, types.EfficiencyFair, types.EfficiencyBand(79.9))
	assert.Equal(t, types.EfficiencyFair, types.EfficiencyBand(50))
	assert.Equal(t, types.EfficiencyPoor, types.EfficiencyBand(49.9))
	assert.Equal(t, types.EfficiencyPoor, types.EfficiencyBand(0))
}
