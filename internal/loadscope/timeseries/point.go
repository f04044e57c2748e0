package timeseries

import (
	"github.com/loadscope/loadscope/internal/common/slices"
	"github.com/loadscope/loadscope/pkg/api"
)

const microsPerMilli = 1000.0

// Point is one time bucket of a series with latencies in milliseconds.
type Point struct {
	StartTimeMs  int64   `json:"startTimeMs"`
	AvgLatency   float64 `json:"avgLatency"`
	MinLatency   float64 `json:"minLatency"`
	MaxLatency   float64 `json:"maxLatency"`
	NumSucceeded int64   `json:"numSucceeded"`
	NumFailed    int64   `json:"numFailed"`
}

func (p Point) Ops() int64 {
	return p.NumSucceeded + p.NumFailed
}

// FromRaw converts a point as reported by the results service, whose latencies are in microseconds.
func FromRaw(raw api.RawTimingPoint) Point {
	return Point{
		StartTimeMs:  raw.StartTimeMs,
		AvgLatency:   raw.AvgUs / microsPerMilli,
		MinLatency:   raw.MinUs / microsPerMilli,
		MaxLatency:   raw.MaxUs / microsPerMilli,
		NumSucceeded: raw.NumSucceeded,
		NumFailed:    raw.NumFailed,
	}
}

// FromRawBatch converts a batch, preserving order. A nil batch converts to nil.
func FromRawBatch(raw []api.RawTimingPoint) []Point {
	return slices.Map(raw, FromRaw)
}
