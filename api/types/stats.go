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

// efficiency score bands
const (
	EfficiencyGood = "good"
	EfficiencyFair = "fair"
	EfficiencyPoor = "poor"
)

// Statistics 过滤器运行统计，按过滤器ID累计
// Statistics is the per-filter evaluation aggregate. Counters only grow;
// a recorded evaluation is never un-counted.
type Statistics struct {
	FilterId string `json:"filterId"`
	// Received 已评估的记录数
	Received int64 `json:"received"`
	// Matched 命中的记录数
	Matched int64 `json:"matched"`
	// MatchRate 命中率，百分比 0-100
	MatchRate float64 `json:"matchRate"`
	// AvgProcessingTimeMs 平均评估耗时，毫秒
	AvgProcessingTimeMs float64 `json:"avgProcessingTimeMs"`
	// LastMatchedAt 最后一次命中的毫秒时间戳，0表示从未命中
	LastMatchedAt int64 `json:"lastMatchedAt"`
	// EfficiencyScore 0-100，由统计协作方下发；本地只在缺省时推导
	EfficiencyScore float64 `json:"efficiencyScore"`
}

// EfficiencyBand 效率分档 good/fair/poor
// EfficiencyBand maps a score to its display band: >=80 good, >=50 fair, else poor.
func EfficiencyBand(score float64) string {
	switch {
	case score >= 80:
		return EfficiencyGood
	case score >= 50:
		return EfficiencyFair
	default:
		return EfficiencyPoor
	}
}
