package loadscope

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"k8s.io/utils/clock"

	"github.com/loadscope/loadscope/internal/common/health"
	"github.com/loadscope/loadscope/internal/common/scopecontext"
	"github.com/loadscope/loadscope/internal/common/serve"
	"github.com/loadscope/loadscope/internal/common/task"
	"github.com/loadscope/loadscope/internal/loadscope/aggregator"
	"github.com/loadscope/loadscope/internal/loadscope/build"
	"github.com/loadscope/loadscope/internal/loadscope/configuration"
	"github.com/loadscope/loadscope/internal/loadscope/metrics"
	"github.com/loadscope/loadscope/internal/loadscope/poller"
	"github.com/loadscope/loadscope/internal/loadscope/server"
	"github.com/loadscope/loadscope/internal/loadscope/status"
	"github.com/loadscope/loadscope/internal/loadscope/workload"
	"github.com/loadscope/loadscope/internal/loadscope/zoom"
	"github.com/loadscope/loadscope/pkg/client"
)

const (
	metricsPrefix = "loadscope_"
	// How long background tasks get to finish once the app is stopping.
	stopTimeout = 5 * time.Second
	// Cache lifetime of the workload catalog for one-shot commands.
	oneShotCatalogTtl = time.Minute
)

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
	// Registry the metrics of a session are registered with and served from.
	Registry *prometheus.Registry
	Clock    clock.WithTicker
}

// Params holds everything the user can configure. Serve and Watch read Config; the one-shot commands only
// need ApiConnectionDetails.
type Params struct {
	ApiConnectionDetails *client.ApiConnectionDetails
	Config               configuration.LoadscopeConfig
}

// New instantiates an App with default parameters, writing to standard out.
func New() *App {
	return &App{
		Params:   &Params{},
		Out:      os.Stdout,
		Registry: prometheus.NewRegistry(),
		Clock:    clock.RealClock{},
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// session is one dashboard: the buffers, the poll loop feeding them and the controls acting on them.
type session struct {
	client     *client.Client
	aggregator *aggregator.Aggregator
	zoom       *zoom.Controller
	metrics    *metrics.Metrics
	board      *status.Board
	panel      *workload.Panel
	poller     *poller.Poller
}

func (a *App) newSession(config configuration.LoadscopeConfig) (*session, error) {
	c, err := client.CreateApiConnection(config.ApiConnectionDetails())
	if err != nil {
		return nil, err
	}
	agg, err := aggregator.New(config.Series, config.Retention.MaxReadings, config.Window.Anchor, a.Clock)
	if err != nil {
		return nil, err
	}
	zoomController, err := zoom.NewController(config.Zoom.InitialWindow.Milliseconds(), config.Retention.MaxReadings)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(a.Registry)
	if err != nil {
		return nil, err
	}
	m.SetWindowDuration(zoomController.Duration())

	board := status.NewBoard(a.Clock)
	panel := workload.NewPanel(c, workload.NewCatalog(c, config.Catalog.CacheTtl), board).
		OnLaunch(agg.SetDisplayNames).
		OnInvocation(m.RecordInvocation)
	return &session{
		client:     c,
		aggregator: agg,
		zoom:       zoomController,
		metrics:    m,
		board:      board,
		panel:      panel,
		poller:     poller.New(c, agg, m, board, config.PollTimeout(), a.Clock),
	}, nil
}

// startPolling runs the poll loop until ctx is cancelled. The returned function stops it and waits for
// the tick in flight.
func (s *session) startPolling(ctx *scopecontext.Context, registerer prometheus.Registerer, interval time.Duration) func() {
	taskManager := task.NewBackgroundTaskManager(metricsPrefix, registerer)
	s.poller.Run(ctx, taskManager, interval)
	return func() {
		if taskManager.StopAll(stopTimeout) {
			ctx.Log.Warnf("Poll loop did not stop within %s", stopTimeout)
		}
		s.client.Close()
	}
}

// Serve polls the results service and serves the dashboard api and the metrics until ctx is cancelled or
// a server fails.
func (a *App) Serve(ctx *scopecontext.Context) error {
	config := a.Params.Config
	s, err := a.newSession(config)
	if err != nil {
		return err
	}
	if err := a.Registry.Register(collectors.NewGoCollector()); err != nil {
		ctx.Log.WithError(err).Warn("Could not register go runtime metrics")
	}

	g, ctx := scopecontext.ErrGroup(ctx)
	stop := s.startPolling(ctx, a.Registry, config.Poll.Interval)
	defer stop()

	controller := server.NewController(ctx.Log.WithField("component", "api"), s.aggregator, s.zoom, s.board, s.panel, s.metrics)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Http.Port),
		Handler:           controller.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	checker := health.NewMultiChecker(poller.NewHealthChecker(s.poller, config.HealthWindow()))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Metrics.Port),
		Handler:           server.MetricsHandler(a.Registry, checker),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error { return serve.ListenAndServe(ctx, apiServer) })
	g.Go(func() error { return serve.ListenAndServe(ctx, metricsServer) })

	ctx.Log.Infof("Polling %s every %s for series %v", config.ResultsService.Url, config.Poll.Interval, config.Series)
	return g.Wait()
}
