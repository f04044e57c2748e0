package timeseries

import (
	"sort"

	goslices "golang.org/x/exp/slices"
)

// Buffer holds the points of one series ordered by StartTimeMs. It does no locking of its own.
type Buffer struct {
	points []Point
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds points to the end of the buffer. The caller must make sure the first new point does not
// start before the current last one; Append does not reorder or deduplicate.
func (b *Buffer) Append(points []Point) {
	b.points = append(b.points, points...)
}

// Replace discards the current contents and stores a copy of points.
func (b *Buffer) Replace(points []Point) {
	b.points = goslices.Clone(points)
	if b.points == nil {
		b.points = []Point{}
	}
}

// TrimToCapacity drops the oldest points until at most capacity remain.
func (b *Buffer) TrimToCapacity(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	if excess := len(b.points) - capacity; excess > 0 {
		b.points = b.points[excess:]
	}
}

// LatestTimestamp returns the StartTimeMs of the newest point. ok is false if the buffer is empty.
func (b *Buffer) LatestTimestamp() (latest int64, ok bool) {
	if len(b.points) == 0 {
		return 0, false
	}
	return b.points[len(b.points)-1].StartTimeMs, true
}

// Slice returns a copy of the points with StartTimeMs >= sinceMs, oldest first.
func (b *Buffer) Slice(sinceMs int64) []Point {
	i := sort.Search(len(b.points), func(i int) bool {
		return b.points[i].StartTimeMs >= sinceMs
	})
	return goslices.Clone(b.points[i:])
}

// Points returns a copy of every buffered point.
func (b *Buffer) Points() []Point {
	return goslices.Clone(b.points)
}

func (b *Buffer) Len() int {
	return len(b.points)
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{points: goslices.Clone(b.points)}
}
