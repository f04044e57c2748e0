package aggregator

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/internal/loadscope/timeseries"
	"github.com/loadscope/loadscope/pkg/api"
)

// Batch is one response of the results service together with the request that produced it.
type Batch struct {
	// Cursor value the request was issued with.
	RequestCursor int64
	// Sequence number of the request. Zero disables the sequence check.
	Seq uint64
	// Number of resets that had happened when the request was issued.
	Epoch   uint64
	Results api.TimingResults
}

// MergeResult describes what a successful Merge did.
type MergeResult struct {
	// True if the batch replaced the buffers because it was a from-the-beginning fetch.
	Replaced bool
	// Number of points added per series, after dropping points already buffered.
	Added map[string]int
	// Length of every buffer after the merge.
	Lengths map[string]int
	Cursor  int64
	// True if the cursor moved forward.
	Advanced bool
}

// Aggregator owns the buffer set and cursor of one dashboard session. Merge is the only writer; readers
// always see the state either before or after a whole merge.
type Aggregator struct {
	series      []string
	maxReadings int
	anchor      WindowAnchor
	clock       clock.PassiveClock

	mu           sync.RWMutex
	buffers      map[string]*timeseries.Buffer
	cursor       timeseries.Cursor
	lastSeq      uint64
	epoch        uint64
	generation   uint64
	displayNames map[string]string
}

// New creates an empty aggregator for series. The first series is the canonical one: a response without it
// means the backend has no results yet.
func New(series []string, maxReadings int, anchor WindowAnchor, clock clock.PassiveClock) (*Aggregator, error) {
	if len(series) == 0 {
		return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "series",
			Value:   series,
			Message: "at least one series is required",
		})
	}
	if maxReadings <= 0 {
		return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "maxReadings",
			Value:   maxReadings,
			Message: "must be positive",
		})
	}
	if anchor == "" {
		anchor = AnchorLatest
	}
	a := &Aggregator{
		series:       append([]string{}, series...),
		maxReadings:  maxReadings,
		anchor:       anchor,
		clock:        clock,
		displayNames: map[string]string{},
	}
	a.resetLocked()
	return a, nil
}

// Series returns the configured series names, canonical first.
func (a *Aggregator) Series() []string {
	return append([]string{}, a.series...)
}

func (a *Aggregator) Cursor() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cursor.Value()
}

// Request returns the cursor and epoch to issue the next fetch with. Both are read together so that a
// reset cannot fall between them.
func (a *Aggregator) Request() (cursor int64, epoch uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cursor.Value(), a.epoch
}

// Generation counts applied merges and resets.
func (a *Aggregator) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// Merge applies batch to the buffers and advances the cursor.
//
// It returns ErrNotReady, leaving everything untouched, when the canonical series is missing from the
// response, and ErrStaleResponse when the batch was requested before the last reset or with a cursor
// that is no longer current, carries a sequence number not newer than the last merged one, or only holds
// points older than the buffered data.
func (a *Aggregator) Merge(batch Batch) (MergeResult, error) {
	if _, ok := batch.Results.Series(a.series[0]); !ok {
		return MergeResult{}, errors.WithStack(&scopeerrors.ErrNotReady{Series: a.series[0]})
	}
	converted := make(map[string][]timeseries.Point, len(a.series))
	for _, name := range a.series {
		raw, _ := batch.Results.Series(name)
		converted[name] = timeseries.FromRawBatch(raw)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkFreshLocked(batch, converted); err != nil {
		return MergeResult{}, err
	}

	result := MergeResult{
		Replaced: batch.RequestCursor == 0,
		Added:    make(map[string]int, len(a.series)),
		Lengths:  make(map[string]int, len(a.series)),
	}
	for _, name := range a.series {
		buffer := a.buffers[name]
		points := converted[name]
		if len(points) == 0 {
			result.Lengths[name] = buffer.Len()
			continue
		}
		if result.Replaced {
			points = increasing(points, 0, false)
			buffer.Replace(points)
		} else {
			latest, ok := buffer.LatestTimestamp()
			points = increasing(points, latest, ok)
			buffer.Append(points)
		}
		buffer.TrimToCapacity(a.maxReadings)
		result.Added[name] = len(points)
		result.Lengths[name] = buffer.Len()
	}

	if latest, ok := a.latestLocked(); ok {
		result.Advanced = a.cursor.Advance(latest)
	}
	result.Cursor = a.cursor.Value()
	if batch.Seq > a.lastSeq {
		a.lastSeq = batch.Seq
	}
	a.generation++
	return result, nil
}

// Reset empties every buffer and puts the cursor back to zero. Responses to requests issued before the
// reset are discarded as stale.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	a.epoch++
	a.generation++
}

// SetDisplayNames records the labels to show for series. Names for unknown series are ignored.
func (a *Aggregator) SetDisplayNames(names map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.displayNames = map[string]string{}
	for _, name := range a.series {
		if label, ok := names[name]; ok && label != "" {
			a.displayNames[name] = label
		}
	}
}

// DisplayName returns the label of series, falling back to its name.
func (a *Aggregator) DisplayName(series string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.displayNameLocked(series)
}

// SeriesSince returns the buffered points of series with StartTimeMs >= sinceMs.
func (a *Aggregator) SeriesSince(series string, sinceMs int64) ([]timeseries.Point, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	buffer, ok := a.buffers[series]
	if !ok {
		return nil, errors.WithStack(&scopeerrors.ErrNotFound{Type: "series", Value: series})
	}
	return buffer.Slice(sinceMs), nil
}

// Lengths returns the number of buffered points per series.
func (a *Aggregator) Lengths() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	lengths := make(map[string]int, len(a.buffers))
	for name, buffer := range a.buffers {
		lengths[name] = buffer.Len()
	}
	return lengths
}

func (a *Aggregator) checkFreshLocked(batch Batch, converted map[string][]timeseries.Point) error {
	stale := func() error {
		newest, _ := newestOf(converted)
		latest, _ := a.latestLocked()
		return errors.WithStack(&scopeerrors.ErrStaleResponse{
			RequestCursor: batch.RequestCursor,
			CurrentCursor: a.cursor.Value(),
			NewestMs:      newest,
			LatestMs:      latest,
		})
	}
	if batch.Epoch != a.epoch || batch.RequestCursor != a.cursor.Value() {
		return stale()
	}
	if batch.Seq != 0 && batch.Seq <= a.lastSeq {
		return stale()
	}
	if batch.RequestCursor == 0 {
		return nil
	}
	newest, ok := newestOf(converted)
	if !ok {
		return nil
	}
	if latest, ok := a.latestLocked(); ok && newest < latest {
		return stale()
	}
	return nil
}

func (a *Aggregator) resetLocked() {
	a.buffers = make(map[string]*timeseries.Buffer, len(a.series))
	for _, name := range a.series {
		a.buffers[name] = timeseries.NewBuffer()
	}
	a.cursor.Reset()
}

// latestLocked returns the newest timestamp across every buffer.
func (a *Aggregator) latestLocked() (int64, bool) {
	var latest int64
	found := false
	for _, buffer := range a.buffers {
		if ts, ok := buffer.LatestTimestamp(); ok && (!found || ts > latest) {
			latest = ts
			found = true
		}
	}
	return latest, found
}

func (a *Aggregator) displayNameLocked(series string) string {
	if label, ok := a.displayNames[series]; ok {
		return label
	}
	return series
}

func newestOf(batches map[string][]timeseries.Point) (int64, bool) {
	var newest int64
	found := false
	for _, points := range batches {
		for _, p := range points {
			if !found || p.StartTimeMs > newest {
				newest = p.StartTimeMs
				found = true
			}
		}
	}
	return newest, found
}

// increasing returns the points that start strictly after the previously kept one, beginning after floor
// when bounded is set. Points already buffered or repeated within the batch are dropped.
func increasing(points []timeseries.Point, floor int64, bounded bool) []timeseries.Point {
	kept := make([]timeseries.Point, 0, len(points))
	for _, p := range points {
		if bounded && p.StartTimeMs <= floor {
			continue
		}
		kept = append(kept, p)
		floor = p.StartTimeMs
		bounded = true
	}
	return kept
}
