// Package pool provides a bounded checkout/return pool of interchangeable
// resources.
//
// A Pool lends out at most capacity elements. Elements are built by the
// pool's factory on demand, only when nothing is free and the pool is below
// capacity, and are never destroyed by the pool: a released element goes back
// to the free list for the next Acquire.
//
// Acquire never blocks. At capacity it returns ErrPoolExhausted and leaves
// the waiting policy to the caller; AcquireWait is one such policy, retrying
// with exponential backoff until the context is done.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	concpool "github.com/sourcegraph/conc/pool"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
	"github.com/randalmurphal/respool/pkg/respool/observability"
)

// Lease describes a tracked element.
type Lease struct {
	// ID identifies the element in logs.
	ID uuid.UUID
	// CreatedAt is when the factory returned the element.
	CreatedAt time.Time
	// Checkouts counts how many times the element has been acquired.
	Checkouts int
	// InUse is true while the element is checked out.
	InUse bool
}

// Stats is a point-in-time view of the pool partition.
type Stats struct {
	Capacity    int
	InitialSize int
	Free        int
	InUse       int
	// Pending counts constructions in progress. They hold a capacity slot.
	Pending int
}

// Pool is a bounded checkout/return pool.
// V must be comparable because elements are tracked by identity; pointer
// types are the usual choice.
type Pool[V comparable] struct {
	mu          sync.Mutex
	capacity    int
	initialSize int
	factory     func() (V, error)

	free    []V
	inUse   map[V]struct{}
	leases  map[V]*Lease
	pending int

	cfg config
}

// New creates a pool holding initialSize pre-built elements and lending out
// at most capacity elements. The initial elements are built in parallel; if
// any construction fails, New returns the error and no pool.
//
// New returns ErrInvalidConfig unless 1 <= capacity and
// 0 <= initialSize <= capacity.
func New[V comparable](capacity, initialSize int, factory func() (V, error), opts ...Option) (*Pool[V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d must be at least 1", rperrors.ErrInvalidConfig, capacity)
	}
	if initialSize < 0 || initialSize > capacity {
		return nil, fmt.Errorf("%w: initial size %d must be between 0 and capacity %d",
			rperrors.ErrInvalidConfig, initialSize, capacity)
	}
	if factory == nil {
		return nil, rperrors.ErrNilFactory
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = observability.EnrichLogger(cfg.logger, "pool", cfg.name)

	p := &Pool[V]{
		capacity:    capacity,
		initialSize: initialSize,
		factory:     factory,
		free:        make([]V, 0, capacity),
		inUse:       make(map[V]struct{}, capacity),
		leases:      make(map[V]*Lease, capacity),
		cfg:         cfg,
	}

	if err := p.prefill(); err != nil {
		return nil, err
	}
	return p, nil
}

// prefill builds the initial elements concurrently.
func (p *Pool[V]) prefill() error {
	if p.initialSize == 0 {
		return nil
	}

	workers := concpool.NewWithResults[V]().WithErrors().WithMaxGoroutines(p.initialSize)
	for range p.initialSize {
		workers.Go(func() (V, error) {
			return p.construct(context.Background())
		})
	}
	built, err := workers.Wait()
	if err != nil {
		return err
	}

	_, err = rperrors.Guard("pool", nil, func() (struct{}, error) {
		return struct{}{}, p.adopt(built)
	})
	return err
}

// adopt tracks prefilled elements as free.
func (p *Pool[V]) adopt(built []V) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range built {
		if _, dup := p.leases[v]; dup {
			return rperrors.Construction("pool", nil, rperrors.ErrDuplicateResource)
		}
		p.track(v)
		p.free = append(p.free, v)
	}
	p.recordState(context.Background())
	return nil
}

// Acquire checks out an element. It returns a free element if there is one,
// otherwise builds a new element if the pool is below capacity, otherwise
// returns ErrPoolExhausted. Acquire never blocks on other callers.
func (p *Pool[V]) Acquire() (V, error) {
	return p.AcquireContext(context.Background())
}

// AcquireContext is Acquire with a context for tracing and metrics.
// A context that is already done fails the call without touching the pool.
// The factory itself is not cancelable.
func (p *Pool[V]) AcquireContext(ctx context.Context) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	v, id, reserved, err := p.checkout(ctx)
	if err != nil {
		observability.LogExhausted(p.cfg.logger, p.capacity)
		p.cfg.metrics.RecordAcquire(ctx, p.cfg.name, false, err)
		return zero, err
	}
	if !reserved {
		observability.LogAcquire(p.cfg.logger, id, true)
		p.cfg.metrics.RecordAcquire(ctx, p.cfg.name, true, nil)
		return v, nil
	}

	v, err = p.construct(ctx)
	if err == nil {
		// Tracking hashes v, which panics for unhashable dynamic types.
		id, err = rperrors.Guard("pool", nil, func() (string, error) {
			return p.commit(ctx, v)
		})
	} else {
		p.unreserve(ctx)
	}
	if err != nil {
		p.cfg.metrics.RecordAcquire(ctx, p.cfg.name, false, err)
		return zero, err
	}

	observability.LogAcquire(p.cfg.logger, id, false)
	p.cfg.metrics.RecordAcquire(ctx, p.cfg.name, false, nil)
	return v, nil
}

// checkout pops the most recently released free element, or reserves a
// construction slot when nothing is free and the pool is below capacity.
// Concurrent callers cannot overshoot capacity while a reserved factory runs
// outside the lock.
func (p *Pool[V]) checkout(ctx context.Context) (v V, id string, reserved bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free = p.free[:n-1]
		p.inUse[v] = struct{}{}
		lease := p.leases[v]
		lease.Checkouts++
		lease.InUse = true
		p.recordState(ctx)
		return v, lease.ID.String(), false, nil
	}

	if len(p.inUse)+p.pending >= p.capacity {
		return v, "", false, fmt.Errorf("pool %s: %w", p.cfg.name, rperrors.ErrPoolExhausted)
	}

	p.pending++
	return v, "", true, nil
}

// commit turns a reserved slot into a checked-out element.
func (p *Pool[V]) commit(ctx context.Context, v V) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending--
	defer p.recordState(ctx)
	if _, dup := p.leases[v]; dup {
		return "", rperrors.Construction("pool", nil, rperrors.ErrDuplicateResource)
	}
	lease := p.track(v)
	lease.Checkouts = 1
	lease.InUse = true
	p.inUse[v] = struct{}{}
	return lease.ID.String(), nil
}

// unreserve gives back a slot whose construction failed.
func (p *Pool[V]) unreserve(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending--
	p.recordState(ctx)
}

// Release returns a checked-out element to the free list.
// It returns ErrNotOwned, and changes nothing, if v is not currently checked
// out from this pool: never issued, issued by another pool, or already
// released.
func (p *Pool[V]) Release(v V) error {
	ctx := context.Background()

	id, err := p.checkin(ctx, v)
	if err != nil {
		observability.LogNotOwned(p.cfg.logger)
		p.cfg.metrics.RecordRelease(ctx, p.cfg.name, err)
		return err
	}

	observability.LogRelease(p.cfg.logger, id)
	p.cfg.metrics.RecordRelease(ctx, p.cfg.name, nil)
	return nil
}

// checkin moves v from the in-use set to the free list.
func (p *Pool[V]) checkin(ctx context.Context, v V) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[v]; !ok {
		return "", fmt.Errorf("pool %s: %w", p.cfg.name, rperrors.ErrNotOwned)
	}
	delete(p.inUse, v)
	p.free = append(p.free, v)
	lease := p.leases[v]
	lease.InUse = false
	p.recordState(ctx)
	return lease.ID.String(), nil
}

// Stats returns the current partition sizes.
func (p *Pool[V]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Capacity:    p.capacity,
		InitialSize: p.initialSize,
		Free:        len(p.free),
		InUse:       len(p.inUse),
		Pending:     p.pending,
	}
}

// Lease returns a copy of the metadata for a tracked element.
func (p *Pool[V]) Lease(v V) (Lease, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lease, ok := p.leases[v]
	if !ok {
		return Lease{}, false
	}
	return *lease, true
}

// Owns reports whether v is currently checked out from this pool.
func (p *Pool[V]) Owns(v V) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inUse[v]
	return ok
}

// Capacity returns the maximum number of tracked elements.
func (p *Pool[V]) Capacity() int {
	return p.capacity
}

// Name returns the pool name used in logs and metrics.
func (p *Pool[V]) Name() string {
	return p.cfg.name
}

// construct runs the factory with logging, metrics, and tracing.
// It must be called without holding p.mu.
func (p *Pool[V]) construct(ctx context.Context) (V, error) {
	ctx, span := p.cfg.spans.StartConstructSpan(ctx, "pool", p.cfg.name, "")
	done := observability.TimedOperation()

	v, err := rperrors.Guard("pool", nil, p.factory)
	durationMs := done()

	p.cfg.spans.EndSpanWithError(span, err)
	p.cfg.metrics.RecordConstruction(ctx, "pool", p.cfg.name, durationMs, err)
	if err != nil {
		observability.LogConstructError(p.cfg.logger, p.cfg.name, err)
		return v, err
	}
	observability.LogConstruct(p.cfg.logger, p.cfg.name, durationMs)
	return v, nil
}

// track registers a freshly built element. Caller holds p.mu.
func (p *Pool[V]) track(v V) *Lease {
	lease := &Lease{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
	}
	p.leases[v] = lease
	return lease
}

// recordState publishes the partition gauges. Caller holds p.mu.
func (p *Pool[V]) recordState(ctx context.Context) {
	p.cfg.metrics.RecordPoolState(ctx, p.cfg.name, len(p.free), len(p.inUse))
}
