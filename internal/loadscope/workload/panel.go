package workload

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/internal/loadscope/status"
	"github.com/loadscope/loadscope/pkg/api"
)

// Backend is the workload and administration side of the results service.
type Backend interface {
	Lister
	InvokeWorkload(ctx context.Context, id string, params []api.ParamValue) (*api.InvocationResult, error)
	ActiveWorkloads(ctx context.Context) ([]api.WorkloadStatus, error)
	TerminateWorkload(ctx context.Context, id string) (*api.InvocationResult, error)
	ServerInfo(ctx context.Context) (jsoniter.RawMessage, error)
	CreateTable(ctx context.Context) error
	TruncateTable(ctx context.Context) error
	Simulate(ctx context.Context, workload string, numThreads, numRequests int) error
}

// Panel launches workloads and runs administrative actions, reporting progress on the status board.
// Nothing it does is retried and none of its failures affect polling.
type Panel struct {
	backend Backend
	catalog *Catalog
	board   *status.Board
	// Called with the series display names of a workload once it was launched. May be nil.
	onLaunch func(names map[string]string)
	// Called with the outcome of every invocation that reached the backend. May be nil.
	onInvocation func(succeeded bool)
}

func NewPanel(backend Backend, catalog *Catalog, board *status.Board) *Panel {
	return &Panel{backend: backend, catalog: catalog, board: board}
}

// OnLaunch registers f to receive the series display names of every successfully launched workload.
func (p *Panel) OnLaunch(f func(names map[string]string)) *Panel {
	p.onLaunch = f
	return p
}

// OnInvocation registers f to receive the outcome of every invocation answered by the backend.
func (p *Panel) OnInvocation(f func(succeeded bool)) *Panel {
	p.onInvocation = f
	return p
}

func (p *Panel) Workloads(ctx context.Context) ([]api.WorkloadDesc, error) {
	return p.catalog.List(ctx)
}

// Invoke launches workload id. Parameters not in overrides take their defaults.
func (p *Panel) Invoke(ctx context.Context, id string, overrides map[string]string) (*api.InvocationResult, error) {
	desc, err := p.catalog.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	params, err := EncodeParams(desc, overrides)
	if err != nil {
		return nil, err
	}

	name := displayName(desc)
	p.board.Info(fmt.Sprintf("Submitting workload %s...", name))
	result, err := p.backend.InvokeWorkload(ctx, id, params)
	var rejected *scopeerrors.ErrInvocationRejected
	switch {
	case errors.As(err, &rejected):
		p.recordInvocation(false)
		p.board.Error(rejected.Reason)
		return result, err
	case err != nil:
		p.board.Error(fmt.Sprintf("Workload %s submission failed.", name))
		return nil, err
	}
	p.recordInvocation(true)
	p.board.Info(fmt.Sprintf("Workload %s successfully submitted.", name))
	if p.onLaunch != nil && len(desc.WorkloadNames) > 0 {
		p.onLaunch(desc.WorkloadNames)
	}
	return result, nil
}

func (p *Panel) Active(ctx context.Context) ([]api.WorkloadStatus, error) {
	active, err := p.backend.ActiveWorkloads(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		active = []api.WorkloadStatus{}
	}
	return active, nil
}

func (p *Panel) Terminate(ctx context.Context, workloadId string) (*api.InvocationResult, error) {
	result, err := p.backend.TerminateWorkload(ctx, workloadId)
	var rejected *scopeerrors.ErrInvocationRejected
	switch {
	case errors.As(err, &rejected):
		p.board.Error(rejected.Reason)
		return result, err
	case err != nil:
		p.board.Error(fmt.Sprintf("Termination of workload %s failed.", workloadId))
		return nil, err
	}
	p.board.Info(fmt.Sprintf("Workload %s terminated.", workloadId))
	return result, nil
}

func (p *Panel) CreateTable(ctx context.Context) error {
	return p.adminAction(ctx, "create table", "Creating tables...", "Table creation complete.", "Table creation failed.",
		p.backend.CreateTable)
}

func (p *Panel) TruncateTable(ctx context.Context) error {
	return p.adminAction(ctx, "truncate table", "Truncating tables...", "Table truncation complete.", "Table truncation failed.",
		p.backend.TruncateTable)
}

// Simulate starts one of the built-in simulations of the backend, e.g. "updates" or "status-checks".
func (p *Panel) Simulate(ctx context.Context, workload string, numThreads, numRequests int) error {
	if strings.TrimSpace(workload) == "" {
		return errors.WithStack(&scopeerrors.ErrInvalidArgument{Name: "workload", Value: workload, Message: "not provided"})
	}
	if numThreads <= 0 {
		return errors.WithStack(&scopeerrors.ErrInvalidArgument{Name: "numThreads", Value: numThreads, Message: "must be positive"})
	}
	if numRequests <= 0 {
		return errors.WithStack(&scopeerrors.ErrInvalidArgument{Name: "numRequests", Value: numRequests, Message: "must be positive"})
	}
	label := capitalize(strings.ReplaceAll(workload, "-", " "))
	return p.adminAction(ctx, "simulate "+workload,
		fmt.Sprintf("%s workload starting...", label),
		fmt.Sprintf("%s workload started.", label),
		fmt.Sprintf("%s workload failed.", label),
		func(ctx context.Context) error {
			return p.backend.Simulate(ctx, workload, numThreads, numRequests)
		})
}

func (p *Panel) ServerInfo(ctx context.Context) (jsoniter.RawMessage, error) {
	info, err := p.backend.ServerInfo(ctx)
	if err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrAdminAction{Action: "server info", Cause: err})
	}
	return info, nil
}

func (p *Panel) adminAction(ctx context.Context, action, starting, succeeded, failed string, f func(context.Context) error) error {
	p.board.Info(starting)
	if err := f(ctx); err != nil {
		p.board.Error(failed)
		return errors.WithStack(&scopeerrors.ErrAdminAction{Action: action, Cause: err})
	}
	p.board.Info(succeeded)
	return nil
}

func (p *Panel) recordInvocation(succeeded bool) {
	if p.onInvocation != nil {
		p.onInvocation(succeeded)
	}
}

func displayName(desc api.WorkloadDesc) string {
	if desc.Name != "" {
		return desc.Name
	}
	return desc.WorkloadId
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
