package health

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

const healthPath = "/health"

// SetupHttpMux serves checker on /health of mux: 204 when healthy, 503 with the failure otherwise.
func SetupHttpMux(mux *http.ServeMux, checker Checker) {
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		err := checker.Check()
		if err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.Warnf("Health check failed: %v", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, writeErr := w.Write([]byte(err.Error())); writeErr != nil {
			log.WithError(writeErr).Error("Failed to write health check response")
		}
	})
}
