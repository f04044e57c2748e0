package zoom

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T) *Controller {
	c, err := NewController(InitialWindowMs, DefaultMaxReadings)
	require.NoError(t, err)
	return c
}

func TestNewController(t *testing.T) {
	c := newController(t)
	assert.Equal(t, int64(180_000), c.Duration())
	minMs, maxMs := c.Bounds()
	assert.Equal(t, int64(60_000), minMs)
	assert.Equal(t, int64(3_600_000), maxMs)

	c, err := NewController(10, DefaultMaxReadings)
	require.NoError(t, err)
	assert.Equal(t, int64(MinWindowMs), c.Duration())

	_, err = NewController(InitialWindowMs, 59)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	tests := map[string]struct {
		amount   float64
		expected int64
	}{
		"one notch out":             {amount: 120, expected: 198_000},
		"one notch in":              {amount: -120, expected: 162_000},
		"no movement":               {amount: 0, expected: 180_000},
		"zoom to nothing clamps":    {amount: -1200, expected: 60_000},
		"beyond zero clamps":        {amount: -5000, expected: 60_000},
		"large delta clamps to max": {amount: 100_000, expected: 3_600_000},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := newController(t)
			duration, consumed := c.Apply(tc.amount, false)
			assert.True(t, consumed)
			assert.Equal(t, tc.expected, duration)
			assert.Equal(t, tc.expected, c.Duration())
		})
	}
}

func TestApply_FloorsAfterScaling(t *testing.T) {
	c := newController(t)
	c.Set(100_001)
	duration, _ := c.Apply(7, false)
	// 100001 * (1 + 7/1200) = 100584.339...
	assert.Equal(t, int64(100_584), duration)

	c.Set(100_001)
	duration, _ = c.Apply(-7, false)
	// 100001 * (1 - 7/1200) = 99417.66...
	assert.Equal(t, int64(99_417), duration)
}

func TestApply_OverModalIsIgnored(t *testing.T) {
	c := newController(t)
	duration, consumed := c.Apply(-1200, true)
	assert.False(t, consumed)
	assert.Equal(t, int64(180_000), duration)
	assert.Equal(t, int64(180_000), c.Duration())
}

func TestApply_StaysInBounds(t *testing.T) {
	c := newController(t)
	minMs, maxMs := c.Bounds()
	for i, amount := range []float64{600, 600, 600, 600, 600, 600, -1100, -1100, -1100, 1199, -600, 3000} {
		duration, _ := c.Apply(amount, false)
		assert.GreaterOrEqual(t, duration, minMs, "step %d", i)
		assert.LessOrEqual(t, duration, maxMs, "step %d", i)
	}
}

func TestApply_Concurrent(t *testing.T) {
	c := newController(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Apply(120, false)
		}()
		go func() {
			defer wg.Done()
			c.Apply(-120, false)
		}()
	}
	wg.Wait()
	minMs, maxMs := c.Bounds()
	assert.GreaterOrEqual(t, c.Duration(), minMs)
	assert.LessOrEqual(t, c.Duration(), maxMs)
}

func TestSet(t *testing.T) {
	c := newController(t)
	assert.Equal(t, int64(120_000), c.Set(120_000))
	assert.Equal(t, int64(3_600_000), c.Set(9_999_999))
	assert.Equal(t, int64(60_000), c.Set(-1))
}

func TestMaxWindowMs(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxReadings*MillisPerReading), MaxWindowMs(DefaultMaxReadings))
}
