package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StacktraceKey is the log field holding the stack recorded by pkg/errors.
const StacktraceKey = "stacktrace"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}

// WithStacktrace adds err to logger, together with the first stack trace found in its cause chain.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	logger = logger.WithError(err)
	if stack := stackOf(err); stack != nil {
		logger = logger.WithField(StacktraceKey, stack)
	}
	return logger
}

func stackOf(err error) errors.StackTrace {
	for err != nil {
		if tracer, ok := err.(stackTracer); ok {
			return tracer.StackTrace()
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// TopmostWithCause returns the last error of the chain that still wraps another one, or err itself if it
// wraps nothing. For errors built with pkg/errors this is the error holding the original stack, so
// formatting it with %+v prints where the failure started.
func TopmostWithCause(err error) error {
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		if _, ok := c.Cause().(causer); !ok {
			return err
		}
		err = c.Cause()
	}
}
