package workload

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	goslices "golang.org/x/exp/slices"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/pkg/api"
)

const (
	catalogKey      = "workloads"
	fetchAttempts   = 3
	fetchRetryDelay = 200 * time.Millisecond
)

// Lister fetches the workload descriptors offered by the backend.
type Lister interface {
	GetWorkloads(ctx context.Context) ([]api.WorkloadDesc, error)
}

// Catalog caches the workload descriptors of the backend for a fixed time.
type Catalog struct {
	lister Lister
	ttl    time.Duration
	cache  *cache.Cache
	delay  time.Duration
}

func NewCatalog(lister Lister, ttl time.Duration) *Catalog {
	return &Catalog{
		lister: lister,
		ttl:    ttl,
		cache:  cache.New(ttl, 2*ttl),
		delay:  fetchRetryDelay,
	}
}

// List returns a copy of every workload descriptor, fetching them if the cached copy expired. Failed
// fetches are retried a few times on transport errors.
func (c *Catalog) List(ctx context.Context) ([]api.WorkloadDesc, error) {
	if cached, ok := c.cache.Get(catalogKey); ok {
		return goslices.Clone(cached.([]api.WorkloadDesc)), nil
	}
	var workloads []api.WorkloadDesc
	err := retry.Do(
		func() error {
			var err error
			workloads, err = c.lister.GetWorkloads(ctx)
			return err
		},
		retry.Attempts(fetchAttempts),
		retry.Delay(c.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransportError),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "error fetching workload catalog")
	}
	if workloads == nil {
		workloads = []api.WorkloadDesc{}
	}
	c.cache.Set(catalogKey, workloads, cache.DefaultExpiration)
	return goslices.Clone(workloads), nil
}

// Lookup returns the descriptor of workload id, or ErrNotFound.
func (c *Catalog) Lookup(ctx context.Context, id string) (api.WorkloadDesc, error) {
	workloads, err := c.List(ctx)
	if err != nil {
		return api.WorkloadDesc{}, err
	}
	for _, desc := range workloads {
		if desc.WorkloadId == id {
			return desc, nil
		}
	}
	return api.WorkloadDesc{}, errors.WithStack(&scopeerrors.ErrNotFound{Type: "workload", Value: id})
}

// Invalidate drops the cached descriptors so the next call fetches them again.
func (c *Catalog) Invalidate() {
	c.cache.Delete(catalogKey)
}

func isTransportError(err error) bool {
	var transport *scopeerrors.ErrTransport
	return errors.As(err, &transport)
}
