package api

// RawTimingPoint is one aggregated time bucket as reported by the results service. Latencies are in microseconds.
type RawTimingPoint struct {
	AvgUs        float64 `json:"avgUs"`
	MinUs        float64 `json:"minUs"`
	MaxUs        float64 `json:"maxUs"`
	NumFailed    int64   `json:"numFailed"`
	NumSucceeded int64   `json:"numSucceeded"`
	StartTimeMs  int64   `json:"startTimeMs"`
}

// TimingResults is the response of GET /api/getResults/{afterTimeMs}, keyed by series name.
// A nil slice means the series was absent or null in the response; an empty, non-nil slice means
// the series had no new points.
type TimingResults map[string][]RawTimingPoint

// Series returns the points for name and whether the series was present in the response.
func (r TimingResults) Series(name string) ([]RawTimingPoint, bool) {
	points := r[name]
	return points, points != nil
}
