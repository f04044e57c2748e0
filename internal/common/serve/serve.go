package serve

import (
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/loadscope/loadscope/internal/common/scopecontext"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe runs server until ctx is cancelled, then shuts it down gracefully.
// It returns nil after a shutdown triggered by ctx and the listen error otherwise.
func ListenAndServe(ctx *scopecontext.Context, server *http.Server) error {
	errs := make(chan error, 1)
	go func() {
		ctx.Log.Infof("Listening on %s", server.Addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "error serving on %s", server.Addr)
	case <-ctx.Done():
	}

	ctx.Log.Infof("Stopping server on %s", server.Addr)
	shutdownCtx, cancel := scopecontext.WithTimeout(scopecontext.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrapf(err, "error shutting down server on %s", server.Addr)
	}
	return nil
}
