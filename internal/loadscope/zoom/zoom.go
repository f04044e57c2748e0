package zoom

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
)

const (
	// A wheel delta of WheelDeltaDivisor scales the window by a factor of two (or to zero when negative).
	WheelDeltaDivisor = 1200
	// DefaultMaxReadings is the default retention cap of a series buffer.
	DefaultMaxReadings = 3600
	// MillisPerReading is the width of one bucket. The widest window covers every retained reading.
	MillisPerReading = 1000
	MinWindowMs      = 60_000
	InitialWindowMs  = 180_000
)

// MaxWindowMs returns the widest window worth showing for a buffer that keeps maxReadings points.
func MaxWindowMs(maxReadings int) int64 {
	return int64(maxReadings) * MillisPerReading
}

// Controller holds the width of the displayed window. It is safe for concurrent use.
type Controller struct {
	minMs    int64
	maxMs    int64
	duration *atomic.Int64
}

// NewController returns a controller starting at initialMs, clamped to [MinWindowMs, MaxWindowMs(maxReadings)].
func NewController(initialMs int64, maxReadings int) (*Controller, error) {
	maxMs := MaxWindowMs(maxReadings)
	if maxMs < MinWindowMs {
		return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "maxReadings",
			Value:   maxReadings,
			Message: "window bound would be narrower than the minimum window",
		})
	}
	c := &Controller{minMs: MinWindowMs, maxMs: maxMs}
	c.duration = atomic.NewInt64(c.clamp(float64(initialMs)))
	return c, nil
}

// Duration returns the current window width in milliseconds.
func (c *Controller) Duration() int64 {
	return c.duration.Load()
}

func (c *Controller) Bounds() (minMs, maxMs int64) {
	return c.minMs, c.maxMs
}

// Apply handles one wheel event. Events over a modal are left alone so the modal can scroll: the width
// is not changed and consumed is false. Otherwise the width is scaled by 1 + amount/WheelDeltaDivisor
// and clamped, and consumed is true.
func (c *Controller) Apply(amount float64, overModal bool) (durationMs int64, consumed bool) {
	if overModal {
		return c.Duration(), false
	}
	change := 1 + amount/WheelDeltaDivisor
	for {
		current := c.duration.Load()
		next := c.clamp(float64(current) * change)
		if c.duration.CAS(current, next) {
			return next, true
		}
	}
}

// Set changes the width directly, clamping it to the bounds.
func (c *Controller) Set(durationMs int64) int64 {
	next := c.clamp(float64(durationMs))
	c.duration.Store(next)
	return next
}

func (c *Controller) clamp(durationMs float64) int64 {
	if math.IsNaN(durationMs) {
		return c.duration.Load()
	}
	return int64(math.Floor(math.Max(float64(c.minMs), math.Min(float64(c.maxMs), durationMs))))
}
