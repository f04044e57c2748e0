package aggregator

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/loadscope/loadscope/internal/loadscope/timeseries"
)

// WindowAnchor decides what "now" means when selecting the trailing window.
type WindowAnchor string

const (
	// AnchorLatest ends the window at the newest buffered point, so a lagging backend still shows data.
	AnchorLatest WindowAnchor = "latest"
	// AnchorWallclock ends the window at the current time.
	AnchorWallclock WindowAnchor = "wallclock"
)

func (w *WindowAnchor) UnmarshalText(text []byte) error {
	switch anchor := WindowAnchor(strings.ToLower(strings.TrimSpace(string(text)))); anchor {
	case AnchorLatest, AnchorWallclock:
		*w = anchor
		return nil
	default:
		return errors.Errorf("unknown window anchor %q, expected %q or %q", text, AnchorLatest, AnchorWallclock)
	}
}

// Select returns the points of buffer that fall in the windowDurationMs ending at nowMs.
func Select(buffer *timeseries.Buffer, nowMs, windowDurationMs int64) []timeseries.Point {
	return buffer.Slice(nowMs - windowDurationMs)
}

type SeriesWindow struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"displayName"`
	Points      []timeseries.Point `json:"points"`
}

// Window is the trailing window of every series taken from one consistent state.
type Window struct {
	NowMs            int64          `json:"nowMs"`
	WindowDurationMs int64          `json:"windowDurationMs"`
	Cursor           int64          `json:"cursor"`
	Series           []SeriesWindow `json:"series"`
}

// Window selects the last windowDurationMs of every series, in configured order. With the latest anchor and
// no buffered data every series is empty and NowMs is zero.
func (a *Aggregator) Window(windowDurationMs int64) Window {
	a.mu.RLock()
	defer a.mu.RUnlock()

	window := Window{
		WindowDurationMs: windowDurationMs,
		Cursor:           a.cursor.Value(),
		Series:           make([]SeriesWindow, 0, len(a.series)),
	}
	nowMs, ok := a.nowLocked()
	window.NowMs = nowMs
	for _, name := range a.series {
		points := []timeseries.Point{}
		if ok {
			points = Select(a.buffers[name], nowMs, windowDurationMs)
			if points == nil {
				points = []timeseries.Point{}
			}
		}
		window.Series = append(window.Series, SeriesWindow{
			Name:        name,
			DisplayName: a.displayNameLocked(name),
			Points:      points,
		})
	}
	return window
}

func (a *Aggregator) nowLocked() (int64, bool) {
	if a.anchor == AnchorWallclock {
		return a.clock.Now().UnixMilli(), true
	}
	return a.latestLocked()
}
