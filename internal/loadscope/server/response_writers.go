package server

import (
	"net/http"

	"github.com/loadscope/loadscope/internal/common/logging"
	"github.com/loadscope/loadscope/internal/common/scopeerrors"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError answers with the status code matching err. Server side failures are logged with their stack.
func (ctrl *Controller) writeError(w http.ResponseWriter, err error) {
	code := scopeerrors.HttpStatusFromError(err)
	if code >= http.StatusInternalServerError {
		logging.WithStacktrace(ctrl.log, logging.TopmostWithCause(err)).Warn("Request failed")
	} else {
		ctrl.log.Debugf("Rejected request: %s", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encodeErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); encodeErr != nil {
		ctrl.log.WithError(encodeErr).Error("Failed to encode error response")
	}
}

// writeStatus answers 204 when err is nil and with writeError otherwise.
func (ctrl *Controller) writeStatus(w http.ResponseWriter, err error) {
	if err != nil {
		ctrl.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *Controller) writeResponseJSON(w http.ResponseWriter, res interface{}) {
	body, err := json.Marshal(res)
	if err != nil {
		ctrl.log.WithError(err).Error("Failed to encode response")
		http.Error(w, "encoding response body", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		ctrl.log.WithError(err).Warn("Failed to write response")
	}
}
