package metrics

import (
	"sort"
	"time"
)

// Summary provides a summary of metrics for a filter.
type Summary struct {
	Count          int           `json:"count" yaml:"count"`
	TotalCostUSD   float64       `json:"total_cost_usd" yaml:"total_cost_usd"`
	TotalTokens    int           `json:"total_tokens" yaml:"total_tokens"`
	TotalTime      time.Duration `json:"total_time" yaml:"total_time"`
	SuccessCount   int           `json:"success_count" yaml:"success_count"`
	ErrorCount     int           `json:"error_count" yaml:"error_count"`
	AvgCostUSD     float64       `json:"avg_cost_usd" yaml:"avg_cost_usd"`
	AvgTokens      float64       `json:"avg_tokens" yaml:"avg_tokens"`
	AvgTimeSeconds float64       `json:"avg_time_seconds" yaml:"avg_time_seconds"`
}

// Summary returns totals and averages for metrics matching f.
func (r *Recorder) Summary(f Filter) *Summary {
	return summarize(r.List(f, 0))
}

func summarize(metrics []Metric) *Summary {
	s := &Summary{Count: len(metrics)}
	for _, m := range metrics {
		s.TotalCostUSD += m.CostUSD
		s.TotalTokens += m.TotalTokens
		s.TotalTime += time.Duration(m.ExecutionSeconds * float64(time.Second))
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}

	if s.Count > 0 {
		s.AvgCostUSD = s.TotalCostUSD / float64(s.Count)
		s.AvgTokens = float64(s.TotalTokens) / float64(s.Count)
		s.AvgTimeSeconds = s.TotalTime.Seconds() / float64(s.Count)
	}
	return s
}

// DetailedStats adds latency percentiles and token breakdowns to a summary.
type DetailedStats struct {
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`

	TotalCostUSD float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd" yaml:"avg_cost_usd"`

	// Latency percentiles (seconds)
	LatencyP50 float64 `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95" yaml:"latency_p95"`
	LatencyP99 float64 `json:"latency_p99" yaml:"latency_p99"`
	LatencyAvg float64 `json:"latency_avg" yaml:"latency_avg"`
	LatencyMin float64 `json:"latency_min" yaml:"latency_min"`
	LatencyMax float64 `json:"latency_max" yaml:"latency_max"`

	TotalPromptTokens     int `json:"total_prompt_tokens" yaml:"total_prompt_tokens"`
	TotalCompletionTokens int `json:"total_completion_tokens" yaml:"total_completion_tokens"`
	TotalTokens           int `json:"total_tokens" yaml:"total_tokens"`

	AvgPromptTokens     float64 `json:"avg_prompt_tokens" yaml:"avg_prompt_tokens"`
	AvgCompletionTokens float64 `json:"avg_completion_tokens" yaml:"avg_completion_tokens"`
	AvgTotalTokens      float64 `json:"avg_total_tokens" yaml:"avg_total_tokens"`
}

// DetailedStats returns detailed statistics for metrics matching f.
func (r *Recorder) DetailedStats(f Filter) *DetailedStats {
	return detailedStats(r.List(f, 0))
}

// StageStats returns detailed statistics grouped by stage.
func (r *Recorder) StageStats(f Filter) map[string]*DetailedStats {
	byStage := make(map[string][]Metric)
	for _, m := range r.List(f, 0) {
		if m.Stage != "" {
			byStage[m.Stage] = append(byStage[m.Stage], m)
		}
	}
	out := make(map[string]*DetailedStats, len(byStage))
	for stage, ms := range byStage {
		out[stage] = detailedStats(ms)
	}
	return out
}

func detailedStats(metrics []Metric) *DetailedStats {
	stats := &DetailedStats{Count: len(metrics)}
	if len(metrics) == 0 {
		return stats
	}

	var latencies []float64
	for _, m := range metrics {
		stats.TotalCostUSD += m.CostUSD
		if m.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}

		stats.TotalPromptTokens += m.PromptTokens
		stats.TotalCompletionTokens += m.CompletionTokens
		stats.TotalTokens += m.TotalTokens

		if m.ExecutionSeconds > 0 {
			latencies = append(latencies, m.ExecutionSeconds)
		}
	}

	count := float64(stats.Count)
	stats.AvgCostUSD = stats.TotalCostUSD / count
	stats.AvgPromptTokens = float64(stats.TotalPromptTokens) / count
	stats.AvgCompletionTokens = float64(stats.TotalCompletionTokens) / count
	stats.AvgTotalTokens = float64(stats.TotalTokens) / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		stats.LatencyMin = latencies[0]
		stats.LatencyMax = latencies[len(latencies)-1]

		var sum float64
		for _, l := range latencies {
			sum += l
		}
		stats.LatencyAvg = sum / float64(len(latencies))

		stats.LatencyP50 = percentile(latencies, 50)
		stats.LatencyP95 = percentile(latencies, 95)
		stats.LatencyP99 = percentile(latencies, 99)
	}
	return stats
}

// percentile calculates the p-th percentile from a sorted slice of values,
// interpolating linearly between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
