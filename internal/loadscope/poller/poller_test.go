package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/loadscope/loadscope/internal/common/logging"
	"github.com/loadscope/loadscope/internal/common/scopecontext"
	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/internal/common/task"
	"github.com/loadscope/loadscope/internal/loadscope/aggregator"
	"github.com/loadscope/loadscope/internal/loadscope/metrics"
	"github.com/loadscope/loadscope/internal/loadscope/status"
	"github.com/loadscope/loadscope/pkg/api"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fetchFunc func(ctx context.Context, afterMs int64) (api.TimingResults, error)

// fakeFetcher replays responses in order and records the cursors it was called with.
type fakeFetcher struct {
	mu        sync.Mutex
	responses []fetchFunc
	cursors   []int64
}

func (f *fakeFetcher) GetResults(ctx context.Context, afterMs int64) (api.TimingResults, error) {
	f.mu.Lock()
	f.cursors = append(f.cursors, afterMs)
	if len(f.responses) == 0 {
		f.mu.Unlock()
		return api.TimingResults{"A": {}}, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	f.mu.Unlock()
	return next(ctx, afterMs)
}

func (f *fakeFetcher) calledWith() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64{}, f.cursors...)
}

func respond(results api.TimingResults) fetchFunc {
	return func(context.Context, int64) (api.TimingResults, error) { return results, nil }
}

func fail(err error) fetchFunc {
	return func(context.Context, int64) (api.TimingResults, error) { return nil, err }
}

func hang(ctx context.Context, _ int64) (api.TimingResults, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func points(timestamps ...int64) []api.RawTimingPoint {
	out := make([]api.RawTimingPoint, len(timestamps))
	for i, ts := range timestamps {
		out[i] = api.RawTimingPoint{StartTimeMs: ts, AvgUs: 1000, NumSucceeded: 1}
	}
	return out
}

type fixture struct {
	poller     *Poller
	fetcher    *fakeFetcher
	aggregator *aggregator.Aggregator
	registry   *prometheus.Registry
	board      *status.Board
	clock      *clocktesting.FakePassiveClock
}

func newFixture(t *testing.T, timeout time.Duration, responses ...fetchFunc) *fixture {
	clock := clocktesting.NewFakePassiveClock(testTime)
	agg, err := aggregator.New([]string{"A", "B"}, 5, aggregator.AnchorLatest, clock)
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)
	board := status.NewBoard(clock)
	fetcher := &fakeFetcher{responses: responses}
	return &fixture{
		poller:     New(fetcher, agg, m, board, timeout, clock),
		fetcher:    fetcher,
		aggregator: agg,
		registry:   registry,
		board:      board,
		clock:      clock,
	}
}

func testContext() *scopecontext.Context {
	return scopecontext.New(context.Background(), logrus.NewEntry(logging.NullLogger))
}

// assertPolls checks the poll counter. Outcomes missing from counts are expected to be zero.
func (f *fixture) assertPolls(t *testing.T, counts map[string]int) {
	t.Helper()
	var expected strings.Builder
	expected.WriteString("# HELP loadscope_poll_total Number of completed polls of the results service by outcome\n")
	expected.WriteString("# TYPE loadscope_poll_total counter\n")
	for _, outcome := range []string{
		metrics.OutcomeMerged,
		metrics.OutcomeNotReady,
		metrics.OutcomeStale,
		metrics.OutcomeTimeout,
		metrics.OutcomeTransportFailure,
	} {
		fmt.Fprintf(&expected, "loadscope_poll_total{outcome=%q} %d\n", outcome, counts[outcome])
	}
	assert.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected.String()), "loadscope_poll_total"))
}

func TestTick_MergesAndAdvancesCursor(t *testing.T) {
	f := newFixture(t, time.Second,
		respond(api.TimingResults{"A": points(1000, 2000), "B": points(1500)}),
		respond(api.TimingResults{"A": points(3000), "B": {}}),
	)
	ctx := testContext()

	require.NoError(t, f.poller.Tick(ctx))
	assert.Equal(t, int64(2000), f.aggregator.Cursor())
	require.NoError(t, f.poller.Tick(ctx))
	assert.Equal(t, int64(3000), f.aggregator.Cursor())

	assert.Equal(t, []int64{0, 2000}, f.fetcher.calledWith())
	f.assertPolls(t, map[string]int{metrics.OutcomeMerged: 2})
	assert.Equal(t, map[string]int{"A": 3, "B": 1}, f.aggregator.Lengths())
}

func TestTick_NotReady(t *testing.T) {
	tests := map[string]fetchFunc{
		"service has no data yet":  fail(errors.WithStack(&scopeerrors.ErrNotReady{})),
		"canonical series missing": respond(api.TimingResults{"B": points(1000)}),
		"canonical series null":    respond(api.TimingResults{"A": nil, "B": points(1000)}),
	}
	for name, response := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, time.Second, response)
			f.board.TransportFailed(errors.New("earlier failure"))

			err := f.poller.Tick(testContext())

			var notReady *scopeerrors.ErrNotReady
			assert.True(t, errors.As(err, &notReady))
			assert.Equal(t, int64(0), f.aggregator.Cursor())
			f.assertPolls(t, map[string]int{metrics.OutcomeNotReady: 1})
			assert.False(t, f.board.Status().Transport.Failing)
		})
	}
}

func TestTick_TransportFailureKeepsStateAndRetries(t *testing.T) {
	f := newFixture(t, time.Second,
		respond(api.TimingResults{"A": points(1000), "B": {}}),
		fail(errors.WithStack(&scopeerrors.ErrTransport{Op: "getResults", StatusCode: 502})),
		respond(api.TimingResults{"A": points(2000), "B": {}}),
	)
	ctx := testContext()

	require.NoError(t, f.poller.Tick(ctx))

	err := f.poller.Tick(ctx)
	var transport *scopeerrors.ErrTransport
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, int64(1000), f.aggregator.Cursor())
	assert.True(t, f.board.Status().Transport.Failing)
	f.assertPolls(t, map[string]int{metrics.OutcomeMerged: 1, metrics.OutcomeTransportFailure: 1})

	require.NoError(t, f.poller.Tick(ctx))
	assert.Equal(t, int64(2000), f.aggregator.Cursor())
	assert.False(t, f.board.Status().Transport.Failing)
	assert.Equal(t, []int64{0, 1000, 1000}, f.fetcher.calledWith())
}

func TestTick_TimeoutDiscardsLateResponse(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond, hang)

	err := f.poller.Tick(testContext())

	var transport *scopeerrors.ErrTransport
	require.True(t, errors.As(err, &transport))
	f.assertPolls(t, map[string]int{metrics.OutcomeTimeout: 1})
	assert.True(t, f.board.Status().Transport.Failing)
	assert.Equal(t, uint64(0), f.aggregator.Generation())
}

func TestTick_StaleResponseIsDiscarded(t *testing.T) {
	f := newFixture(t, time.Second, respond(api.TimingResults{"A": points(5000), "B": {}}))
	ctx := testContext()
	require.NoError(t, f.poller.Tick(ctx))

	// The buffers are reset while the second request is in flight.
	f.fetcher.responses = append(f.fetcher.responses, func(context.Context, int64) (api.TimingResults, error) {
		f.aggregator.Reset()
		return api.TimingResults{"A": points(6000), "B": {}}, nil
	})
	err := f.poller.Tick(ctx)

	var stale *scopeerrors.ErrStaleResponse
	assert.True(t, errors.As(err, &stale))
	assert.Equal(t, int64(0), f.aggregator.Cursor())
	assert.Equal(t, map[string]int{"A": 0, "B": 0}, f.aggregator.Lengths())
	f.assertPolls(t, map[string]int{metrics.OutcomeMerged: 1, metrics.OutcomeStale: 1})
}

func TestTick_ResetDuringFullFetchIsDiscarded(t *testing.T) {
	f := newFixture(t, time.Second)
	f.fetcher.responses = append(f.fetcher.responses, func(context.Context, int64) (api.TimingResults, error) {
		f.aggregator.Reset()
		return api.TimingResults{"A": points(1000, 2000), "B": {}}, nil
	})

	err := f.poller.Tick(testContext())

	var stale *scopeerrors.ErrStaleResponse
	assert.True(t, errors.As(err, &stale))
	assert.Equal(t, []int64{0}, f.fetcher.calledWith())
	assert.Equal(t, int64(0), f.aggregator.Cursor())
	assert.Equal(t, map[string]int{"A": 0, "B": 0}, f.aggregator.Lengths())
	f.assertPolls(t, map[string]int{metrics.OutcomeStale: 1})

	require.NoError(t, f.poller.Tick(testContext()))
	assert.Equal(t, []int64{0, 0}, f.fetcher.calledWith())
}

func TestTick_CancelledParentRecordsNothing(t *testing.T) {
	f := newFixture(t, time.Second, hang)
	ctx, cancel := scopecontext.WithCancel(testContext())
	cancel()

	err := f.poller.Tick(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	f.assertPolls(t, map[string]int{})
	assert.False(t, f.board.Status().Transport.Failing)
}

func TestCheck(t *testing.T) {
	f := newFixture(t, time.Second,
		fail(errors.WithStack(&scopeerrors.ErrTransport{Op: "getResults"})),
		respond(api.TimingResults{"A": points(1000), "B": {}}),
	)
	checker := NewHealthChecker(f.poller, 10*time.Second)
	assert.NoError(t, checker.Check())

	f.clock.SetTime(testTime.Add(11 * time.Second))
	_ = f.poller.Tick(testContext())
	assert.Error(t, checker.Check())

	require.NoError(t, f.poller.Tick(testContext()))
	assert.NoError(t, checker.Check())
}

func TestRun_PollsUntilStopped(t *testing.T) {
	f := newFixture(t, time.Second,
		respond(api.TimingResults{"A": points(1000), "B": {}}),
		respond(api.TimingResults{"A": points(2000), "B": {}}),
	)
	taskManager := task.NewBackgroundTaskManager("test_", prometheus.NewRegistry())

	f.poller.Run(testContext(), taskManager, time.Millisecond)

	assert.Eventually(t, func() bool { return f.aggregator.Cursor() == 2000 }, time.Second, time.Millisecond)
	assert.False(t, taskManager.StopAll(time.Second))
}
