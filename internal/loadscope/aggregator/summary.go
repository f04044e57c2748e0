package aggregator

import (
	"math"

	"github.com/loadscope/loadscope/internal/loadscope/timeseries"
)

// Summary condenses the points of one series window.
type Summary struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Points      int     `json:"points"`
	AvgLatency  float64 `json:"avgLatency"`
	MinLatency  float64 `json:"minLatency"`
	MaxLatency  float64 `json:"maxLatency"`
	Succeeded   int64   `json:"succeeded"`
	Failed      int64   `json:"failed"`
	// Operations per second over the whole window.
	Throughput float64 `json:"throughput"`
}

// Summarize computes min of minimums, max of maximums and the mean latency weighted by operation count.
// When no point carries operations the plain mean of the averages is used.
func Summarize(points []timeseries.Point, windowDurationMs int64) Summary {
	summary := Summary{Points: len(points)}
	if len(points) == 0 {
		return summary
	}

	summary.MinLatency = math.Inf(1)
	summary.MaxLatency = math.Inf(-1)
	var weighted, plain float64
	var ops int64
	for _, p := range points {
		summary.MinLatency = math.Min(summary.MinLatency, p.MinLatency)
		summary.MaxLatency = math.Max(summary.MaxLatency, p.MaxLatency)
		summary.Succeeded += p.NumSucceeded
		summary.Failed += p.NumFailed
		weighted += p.AvgLatency * float64(p.Ops())
		plain += p.AvgLatency
		ops += p.Ops()
	}
	if ops > 0 {
		summary.AvgLatency = weighted / float64(ops)
	} else {
		summary.AvgLatency = plain / float64(len(points))
	}
	if windowDurationMs > 0 {
		summary.Throughput = float64(ops) / (float64(windowDurationMs) / 1000)
	}
	return summary
}

// Summaries summarizes every series of w.
func (w Window) Summaries() []Summary {
	summaries := make([]Summary, 0, len(w.Series))
	for _, series := range w.Series {
		summary := Summarize(series.Points, w.WindowDurationMs)
		summary.Name = series.Name
		summary.DisplayName = series.DisplayName
		summaries = append(summaries, summary)
	}
	return summaries
}
