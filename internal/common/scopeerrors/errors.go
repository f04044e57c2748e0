// Package scopeerrors contains the error types shared by the dashboard components.
// HTTP handlers look for the error types defined in this file and set the response status accordingly.
//
// If multiple errors occur in some function (e.g., several invalid workload parameters), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package scopeerrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrNotFound is a generic error to be returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "workload" or "series"
	Value   string // Resource name, e.g., "WORKLOAD1"
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	} else {
		return s
	}
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "numThreads"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrNotReady is returned when the results service answered but carried no series payload.
// It is the backend's way of saying "try again later" and is never surfaced to the operator.
type ErrNotReady struct {
	Series string // The series whose payload was missing
}

func (err *ErrNotReady) Error() string {
	if err.Series == "" {
		return "results not ready: response carried no series data"
	}
	return fmt.Sprintf("results not ready: no payload for series %q", err.Series)
}

// ErrTransport wraps a failed request to the backend (network error or non-2xx response).
type ErrTransport struct {
	Op         string // e.g. "getResults"
	StatusCode int    // 0 if no response was received
	Cause      error
}

func (err *ErrTransport) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", err.Op, err.StatusCode, err.Cause)
	}
	return fmt.Sprintf("%s failed: %v", err.Op, err.Cause)
}

func (err *ErrTransport) Unwrap() error {
	return err.Cause
}

// ErrStaleResponse is returned when a fetched batch is older than the data already buffered.
type ErrStaleResponse struct {
	RequestCursor int64 // Cursor value the request was issued with
	CurrentCursor int64 // Cursor value at the time the response was merged
	NewestMs      int64 // Newest point in the batch
	LatestMs      int64 // Newest point already buffered
}

func (err *ErrStaleResponse) Error() string {
	return fmt.Sprintf(
		"stale response discarded: requested after %d but cursor is now %d (batch newest %d, buffered latest %d)",
		err.RequestCursor, err.CurrentCursor, err.NewestMs, err.LatestMs,
	)
}

// ErrInvocationRejected is returned when the backend answers an invocation with a non-zero result.
// Reason carries the backend's message verbatim.
type ErrInvocationRejected struct {
	WorkloadId string
	Result     int
	Reason     string
}

func (err *ErrInvocationRejected) Error() string {
	return err.Reason
}

// ErrAdminAction is returned when an administrative action (table creation, workload start, ...) fails.
type ErrAdminAction struct {
	Action string
	Cause  error
}

func (err *ErrAdminAction) Error() string {
	return fmt.Sprintf("%s failed: %v", err.Action, err.Cause)
}

func (err *ErrAdminAction) Unwrap() error {
	return err.Cause
}

// HttpStatusFromError maps error types to HTTP status codes.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func HttpStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	// Using {} scopes just to re-use the "e" variable name for each case.
	{
		var e *ErrNotFound
		if errors.As(err, &e) {
			return http.StatusNotFound
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return http.StatusBadRequest
		}
	}
	{
		var e *ErrInvocationRejected
		if errors.As(err, &e) {
			return http.StatusUnprocessableEntity
		}
	}
	{
		var e *ErrNotReady
		if errors.As(err, &e) {
			return http.StatusServiceUnavailable
		}
	}
	{
		var e *ErrTransport
		if errors.As(err, &e) {
			return http.StatusBadGateway
		}
	}
	{
		var e *ErrAdminAction
		if errors.As(err, &e) {
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}

// IsRecoverable reports whether a poll error should simply be retried on the next tick.
// Every error the poll path can produce is recoverable; this exists so that callers can
// distinguish poll outcomes from programming errors in tests.
func IsRecoverable(err error) bool {
	var notReady *ErrNotReady
	var transport *ErrTransport
	var stale *ErrStaleResponse
	return errors.As(err, &notReady) || errors.As(err, &transport) || errors.As(err, &stale)
}
