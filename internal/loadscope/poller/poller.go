package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"k8s.io/utils/clock"

	"github.com/loadscope/loadscope/internal/common/logging"
	"github.com/loadscope/loadscope/internal/common/requestid"
	"github.com/loadscope/loadscope/internal/common/scopecontext"
	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/internal/common/task"
	"github.com/loadscope/loadscope/internal/loadscope/aggregator"
	"github.com/loadscope/loadscope/internal/loadscope/metrics"
	"github.com/loadscope/loadscope/internal/loadscope/status"
	"github.com/loadscope/loadscope/pkg/api"
)

const taskName = "poll"

// Fetcher asks the results service for every point newer than afterMs.
type Fetcher interface {
	GetResults(ctx context.Context, afterMs int64) (api.TimingResults, error)
}

// Poller fetches new results with the aggregator's cursor and merges them. Each tick fetches and merges
// before returning, so when ticks are driven by Run at most one request is ever in flight.
type Poller struct {
	fetcher    Fetcher
	aggregator *aggregator.Aggregator
	metrics    *metrics.Metrics
	board      *status.Board
	timeout    time.Duration
	clock      clock.PassiveClock

	seq *atomic.Uint64
	// Unix nanoseconds of the last time the results service answered, or of construction.
	lastAnswer *atomic.Int64
}

func New(
	fetcher Fetcher,
	aggregator *aggregator.Aggregator,
	metrics *metrics.Metrics,
	board *status.Board,
	timeout time.Duration,
	clock clock.PassiveClock,
) *Poller {
	return &Poller{
		fetcher:    fetcher,
		aggregator: aggregator,
		metrics:    metrics,
		board:      board,
		timeout:    timeout,
		clock:      clock,
		seq:        atomic.NewUint64(0),
		lastAnswer: atomic.NewInt64(clock.Now().UnixNano()),
	}
}

// Run starts polling every interval on taskManager. A tick only starts once the previous one has finished.
func (p *Poller) Run(ctx *scopecontext.Context, taskManager *task.BackgroundTaskManager, interval time.Duration) {
	taskManager.Register(ctx, func(ctx *scopecontext.Context) {
		_ = p.Tick(ctx)
	}, interval, taskName)
}

// Tick performs one fetch and merge. The returned error is the reason nothing was merged; every such error
// is recoverable and the next tick simply tries again.
func (p *Poller) Tick(ctx *scopecontext.Context) error {
	seq := p.seq.Inc()
	requestCursor, epoch := p.aggregator.Request()
	requestId := uuid.New().String()
	ctx = scopecontext.WithLogFields(ctx, logrus.Fields{
		"requestId": requestId,
		"cursor":    requestCursor,
		"epoch":     epoch,
		"seq":       seq,
	})

	fetchCtx, cancel := scopecontext.WithTimeout(ctx, p.timeout)
	defer cancel()
	results, err := p.fetcher.GetResults(requestid.AddToContext(fetchCtx, requestId), requestCursor)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		p.metrics.RecordPoll(metrics.OutcomeTimeout)
		timeoutErr := &scopeerrors.ErrTransport{Op: "getResults", Cause: errors.Errorf("no response within %s", p.timeout)}
		p.board.TransportFailed(timeoutErr)
		ctx.Log.Warnf("Discarding results: %s", timeoutErr)
		return errors.WithStack(timeoutErr)
	}
	if err != nil {
		return p.fetchFailed(ctx, err)
	}

	result, err := p.aggregator.Merge(aggregator.Batch{
		RequestCursor: requestCursor,
		Seq:           seq,
		Epoch:         epoch,
		Results:       results,
	})
	if err != nil {
		return p.mergeFailed(ctx, err)
	}
	p.answered()
	p.metrics.RecordPoll(metrics.OutcomeMerged)
	p.metrics.SetSeriesPoints(result.Lengths)
	p.metrics.SetCursor(result.Cursor)
	ctx.Log.WithField("newCursor", result.Cursor).Debugf("Merged %v new points", result.Added)
	return nil
}

// Check reports the poll loop unhealthy if the results service has not answered within window.
func (p *Poller) Check(window time.Duration) error {
	last := time.Unix(0, p.lastAnswer.Load())
	if silence := p.clock.Since(last); silence > window {
		return errors.Errorf("results service has not answered for %s", silence.Truncate(time.Millisecond))
	}
	return nil
}

func (p *Poller) fetchFailed(ctx *scopecontext.Context, err error) error {
	var notReady *scopeerrors.ErrNotReady
	if errors.As(err, &notReady) {
		p.notReady(ctx, err)
		return err
	}
	p.metrics.RecordPoll(metrics.OutcomeTransportFailure)
	p.board.TransportFailed(err)
	logging.WithStacktrace(ctx.Log, err).Warn("Failed to fetch results")
	return err
}

func (p *Poller) mergeFailed(ctx *scopecontext.Context, err error) error {
	var notReady *scopeerrors.ErrNotReady
	var stale *scopeerrors.ErrStaleResponse
	switch {
	case errors.As(err, &notReady):
		p.notReady(ctx, err)
	case errors.As(err, &stale):
		p.answered()
		p.metrics.RecordPoll(metrics.OutcomeStale)
		ctx.Log.Warnf("Discarding results: %s", err)
	default:
		logging.WithStacktrace(ctx.Log, err).Error("Failed to merge results")
	}
	return err
}

func (p *Poller) notReady(ctx *scopecontext.Context, err error) {
	p.answered()
	p.metrics.RecordPoll(metrics.OutcomeNotReady)
	ctx.Log.Debugf("Results not ready yet: %s", err)
}

func (p *Poller) answered() {
	p.lastAnswer.Store(p.clock.Now().UnixNano())
	p.board.TransportRecovered()
}

// HealthChecker adapts the poller to health.Checker.
type HealthChecker struct {
	poller *Poller
	window time.Duration
}

func NewHealthChecker(poller *Poller, window time.Duration) *HealthChecker {
	return &HealthChecker{poller: poller, window: window}
}

func (h *HealthChecker) Check() error {
	return h.poller.Check(h.window)
}
