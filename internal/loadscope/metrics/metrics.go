package metrics

import (
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	prefix = "loadscope_"

	outcomeLabel = "outcome"
	seriesLabel  = "series"
	routeLabel   = "route"
)

// Poll outcomes.
const (
	OutcomeMerged           = "merged"
	OutcomeNotReady         = "not_ready"
	OutcomeTransportFailure = "transport_failure"
	OutcomeStale            = "stale"
	OutcomeTimeout          = "timeout"
)

var pollOutcomes = []string{OutcomeMerged, OutcomeNotReady, OutcomeTransportFailure, OutcomeStale, OutcomeTimeout}

// Metrics exposes the state of the poll loop and the buffers.
type Metrics struct {
	pollTotal      *prometheus.CounterVec
	seriesPoints   *prometheus.GaugeVec
	cursor         prometheus.Gauge
	windowDuration prometheus.Gauge
	invocations    *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the metrics and registers them with registerer, which may be nil in tests.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pollTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "poll_total",
				Help: "Number of completed polls of the results service by outcome",
			},
			[]string{outcomeLabel},
		),
		seriesPoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "series_points",
				Help: "Number of points currently buffered per series",
			},
			[]string{seriesLabel},
		),
		cursor: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "cursor_ms",
				Help: "Start time in milliseconds of the newest ingested point",
			},
		),
		windowDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "window_duration_ms",
				Help: "Width of the displayed window in milliseconds",
			},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "workload_invocations_total",
				Help: "Number of workload invocations by result",
			},
			[]string{outcomeLabel},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "http_request_duration_seconds",
				Help:    "Latency of dashboard api requests",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{routeLabel, "code", "method"},
		),
	}
	for _, outcome := range pollOutcomes {
		m.pollTotal.WithLabelValues(outcome)
	}
	if registerer == nil {
		return m, nil
	}
	var result *multierror.Error
	for _, collector := range m.collectors() {
		if err := registerer.Register(collector); err != nil {
			result = multierror.Append(result, errors.WithStack(err))
		}
	}
	return m, result.ErrorOrNil()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.pollTotal, m.seriesPoints, m.cursor, m.windowDuration, m.invocations, m.httpDuration}
}

func (m *Metrics) RecordPoll(outcome string) {
	m.pollTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetSeriesPoints(lengths map[string]int) {
	for series, length := range lengths {
		m.seriesPoints.WithLabelValues(series).Set(float64(length))
	}
}

func (m *Metrics) SetCursor(cursorMs int64) {
	m.cursor.Set(float64(cursorMs))
}

func (m *Metrics) SetWindowDuration(durationMs int64) {
	m.windowDuration.Set(float64(durationMs))
}

func (m *Metrics) RecordInvocation(succeeded bool) {
	if succeeded {
		m.invocations.WithLabelValues("succeeded").Inc()
	} else {
		m.invocations.WithLabelValues("rejected").Inc()
	}
}

// InstrumentHandler observes the latency of next under the given route name.
func (m *Metrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(
		m.httpDuration.MustCurryWith(prometheus.Labels{routeLabel: route}),
		next,
	)
}
