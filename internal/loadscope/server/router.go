package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/loadscope/loadscope/internal/common/requestid"
)

type route struct {
	name    string
	method  string
	pattern string
	handler http.HandlerFunc
}

func (ctrl *Controller) routes() []route {
	return []route{
		{"window", http.MethodGet, "/api/window", ctrl.WindowHandler},
		{"summary", http.MethodGet, "/api/summary", ctrl.SummaryHandler},
		{"series", http.MethodGet, "/api/series/{name}", ctrl.SeriesHandler},
		{"zoom", http.MethodPost, "/api/zoom", ctrl.ZoomHandler},
		{"status", http.MethodGet, "/api/status", ctrl.StatusHandler},
		{"reset", http.MethodPost, "/api/reset", ctrl.ResetHandler},

		{"workloads", http.MethodGet, "/api/workloads", ctrl.WorkloadsHandler},
		{"active", http.MethodGet, "/api/workloads/active", ctrl.ActiveHandler},
		{"invoke", http.MethodPost, "/api/workloads/{id}/invoke", ctrl.InvokeHandler},
		{"terminate", http.MethodPost, "/api/workloads/{id}/terminate", ctrl.TerminateHandler},

		{"create_table", http.MethodPost, "/api/admin/create-table", ctrl.CreateTableHandler},
		{"truncate_table", http.MethodPost, "/api/admin/truncate-table", ctrl.TruncateTableHandler},
		{"server_info", http.MethodGet, "/api/admin/server-info", ctrl.ServerInfoHandler},
		{"simulate", http.MethodPost, "/api/admin/simulate/{workload}/{threads}/{requests}", ctrl.SimulateHandler},
	}
}

// Router returns the dashboard api with request ids, request logging and per-route latency metrics.
func (ctrl *Controller) Router() http.Handler {
	r := mux.NewRouter()
	for _, rt := range ctrl.routes() {
		r.Handle(rt.pattern, ctrl.metrics.InstrumentHandler(rt.name, rt.handler)).Methods(rt.method).Name(rt.name)
	}
	return requestid.Middleware(false)(handlers.CustomLoggingHandler(io.Discard, r, ctrl.logRequest))
}

func (ctrl *Controller) logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	ctrl.log.WithFields(logrus.Fields{
		"requestId": requestid.FromContextOrMissing(params.Request.Context()),
		"method":    params.Request.Method,
		"path":      params.URL.Path,
		"status":    params.StatusCode,
		"size":      params.Size,
		"duration":  time.Since(params.TimeStamp).String(),
	}).Debug("Served request")
}
