package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/internal/loadscope/aggregator"
	"github.com/loadscope/loadscope/internal/loadscope/metrics"
	"github.com/loadscope/loadscope/internal/loadscope/status"
	"github.com/loadscope/loadscope/internal/loadscope/workload"
	"github.com/loadscope/loadscope/internal/loadscope/zoom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request bodies larger than this are rejected.
const maxBodyBytes = 1 << 20

// Controller serves the dashboard api of one session.
type Controller struct {
	log *logrus.Entry

	aggregator *aggregator.Aggregator
	zoom       *zoom.Controller
	board      *status.Board
	panel      *workload.Panel
	metrics    *metrics.Metrics
}

func NewController(
	log *logrus.Entry,
	aggregator *aggregator.Aggregator,
	zoom *zoom.Controller,
	board *status.Board,
	panel *workload.Panel,
	metrics *metrics.Metrics,
) *Controller {
	return &Controller{
		log:        log,
		aggregator: aggregator,
		zoom:       zoom,
		board:      board,
		panel:      panel,
		metrics:    metrics,
	}
}

func (ctrl *Controller) WindowHandler(w http.ResponseWriter, _ *http.Request) {
	ctrl.writeResponseJSON(w, ctrl.aggregator.Window(ctrl.zoom.Duration()))
}

func (ctrl *Controller) SummaryHandler(w http.ResponseWriter, _ *http.Request) {
	window := ctrl.aggregator.Window(ctrl.zoom.Duration())
	ctrl.writeResponseJSON(w, window.Summaries())
}

func (ctrl *Controller) SeriesHandler(w http.ResponseWriter, r *http.Request) {
	var sinceMs int64
	if raw := r.URL.Query().Get("sinceMs"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ctrl.writeError(w, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    "sinceMs",
				Value:   raw,
				Message: "must be an integer number of milliseconds",
			}))
			return
		}
		sinceMs = parsed
	}
	points, err := ctrl.aggregator.SeriesSince(mux.Vars(r)["name"], sinceMs)
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	ctrl.writeResponseJSON(w, points)
}

type ZoomRequest struct {
	// Wheel delta. Positive widens the window.
	Amount    float64 `json:"amount"`
	OverModal bool    `json:"overModal"`
}

type ZoomResponse struct {
	WindowDurationMs int64 `json:"windowDurationMs"`
	// False when the event was left to the modal underneath the pointer.
	Consumed bool `json:"consumed"`
}

func (ctrl *Controller) ZoomHandler(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if err := ctrl.readRequestJSON(r, &req); err != nil {
		ctrl.writeError(w, err)
		return
	}
	duration, consumed := ctrl.zoom.Apply(req.Amount, req.OverModal)
	ctrl.metrics.SetWindowDuration(duration)
	ctrl.writeResponseJSON(w, ZoomResponse{WindowDurationMs: duration, Consumed: consumed})
}

func (ctrl *Controller) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	ctrl.writeResponseJSON(w, ctrl.board.Status())
}

func (ctrl *Controller) ResetHandler(w http.ResponseWriter, _ *http.Request) {
	ctrl.aggregator.Reset()
	ctrl.log.Info("Session reset")
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *Controller) WorkloadsHandler(w http.ResponseWriter, r *http.Request) {
	workloads, err := ctrl.panel.Workloads(r.Context())
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	ctrl.writeResponseJSON(w, workloads)
}

// InvokeRequest carries parameter overrides by name. Values may be JSON strings, numbers or booleans.
type InvokeRequest struct {
	Params map[string]jsoniter.RawMessage `json:"params"`
}

func (ctrl *Controller) InvokeHandler(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := ctrl.readRequestJSON(r, &req); err != nil {
		ctrl.writeError(w, err)
		return
	}
	overrides, err := overridesOf(req.Params)
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	result, err := ctrl.panel.Invoke(r.Context(), mux.Vars(r)["id"], overrides)
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	ctrl.writeResponseJSON(w, result)
}

func (ctrl *Controller) ActiveHandler(w http.ResponseWriter, r *http.Request) {
	active, err := ctrl.panel.Active(r.Context())
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	ctrl.writeResponseJSON(w, active)
}

func (ctrl *Controller) TerminateHandler(w http.ResponseWriter, r *http.Request) {
	result, err := ctrl.panel.Terminate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	ctrl.writeResponseJSON(w, result)
}

func (ctrl *Controller) CreateTableHandler(w http.ResponseWriter, r *http.Request) {
	ctrl.writeStatus(w, ctrl.panel.CreateTable(r.Context()))
}

func (ctrl *Controller) TruncateTableHandler(w http.ResponseWriter, r *http.Request) {
	ctrl.writeStatus(w, ctrl.panel.TruncateTable(r.Context()))
}

func (ctrl *Controller) SimulateHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	threads, err := positiveInt("threads", vars["threads"])
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	requests, err := positiveInt("requests", vars["requests"])
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	ctrl.writeStatus(w, ctrl.panel.Simulate(r.Context(), vars["workload"], threads, requests))
}

func (ctrl *Controller) ServerInfoHandler(w http.ResponseWriter, r *http.Request) {
	info, err := ctrl.panel.ServerInfo(r.Context())
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(info); err != nil {
		ctrl.log.WithError(err).Warn("Failed to write server info")
	}
}

func (ctrl *Controller) readRequestJSON(r *http.Request, out interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.WithStack(err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "body",
			Value:   string(body),
			Message: err.Error(),
		})
	}
	return nil
}

func overridesOf(params map[string]jsoniter.RawMessage) (map[string]string, error) {
	overrides := make(map[string]string, len(params))
	for name, raw := range params {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			overrides[name] = s
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{Name: name, Value: string(raw), Message: err.Error()})
		}
		switch v.(type) {
		case float64, bool:
			overrides[name] = string(raw)
		default:
			return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    name,
				Value:   string(raw),
				Message: "must be a string, number or boolean",
			})
		}
	}
	return overrides, nil
}

func positiveInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.WithStack(&scopeerrors.ErrInvalidArgument{Name: name, Value: raw, Message: "must be a positive integer"})
	}
	return n, nil
}
