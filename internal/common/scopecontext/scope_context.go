package scopecontext

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Context carries a logger alongside a context.Context, so log fields added for a request or a poll follow
// it into every call that receives the context.
type Context struct {
	context.Context
	Log *logrus.Entry
}

// Background logs to the standard logger and is never cancelled.
func Background() *Context {
	return New(context.Background(), logrus.NewEntry(logrus.StandardLogger()))
}

func New(ctx context.Context, log *logrus.Entry) *Context {
	return &Context{Context: ctx, Log: log}
}

// WithCancel derives a cancellable context that keeps the logger of parent.
func WithCancel(parent *Context) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent.Context)
	return New(ctx, parent.Log), cancel
}

// WithTimeout derives a context that is cancelled after timeout and keeps the logger of parent.
func WithTimeout(parent *Context, timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent.Context, timeout)
	return New(ctx, parent.Log), cancel
}

func WithLogField(parent *Context, key string, val interface{}) *Context {
	return New(parent.Context, parent.Log.WithField(key, val))
}

func WithLogFields(parent *Context, fields logrus.Fields) *Context {
	return New(parent.Context, parent.Log.WithFields(fields))
}

// ErrGroup returns an errgroup whose context is cancelled when any member fails, wrapped with the logger of ctx.
func ErrGroup(ctx *Context) (*errgroup.Group, *Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	return group, New(groupCtx, ctx.Log)
}
