package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loadscope/loadscope/internal/common/health"
)

// MetricsHandler serves /metrics from gatherer and /health from checker.
func MetricsHandler(gatherer prometheus.Gatherer, checker health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	health.SetupHttpMux(mux, checker)
	return mux
}
