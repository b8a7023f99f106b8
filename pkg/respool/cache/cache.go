package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
	"github.com/randalmurphal/respool/pkg/respool/lazy"
	"github.com/randalmurphal/respool/pkg/respool/observability"
)

// Cache memoizes one value per key.
// It uses sync.RWMutex over the key index and a lazy.Cell per key, so
// construction never runs under the index lock.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*lazy.Cell[V]
	cfg     config[K]

	constructions atomic.Int64
}

// New creates a new empty cache.
func New[K comparable, V any](opts ...Option[K]) *Cache[K, V] {
	cfg := defaultConfig[K]()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = observability.EnrichLogger(cfg.logger, "cache", cfg.name)
	return &Cache[K, V]{
		entries: make(map[K]*lazy.Cell[V]),
		cfg:     cfg,
	}
}

// GetOrCreate returns the value for key, creating it with factory if no value
// has been built yet. The factory is called at most once per key, even under
// concurrent access, and every caller receives the same instance.
//
// If factory fails, nothing is stored and the error is returned wrapped in an
// errors.ConstructionError. A later call for the same key retries.
func (c *Cache[K, V]) GetOrCreate(key K, factory func(K) (V, error)) (V, error) {
	if factory == nil {
		var zero V
		return zero, rperrors.ErrNilFactory
	}

	key = c.normalize(key)
	cell := c.cell(key)

	return cell.GetOrInit(func() (V, error) {
		return c.construct(key, factory)
	})
}

// Get returns the value for a key and whether it has been built.
// It never runs a factory.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	key = c.normalize(key)

	c.mu.RLock()
	cell, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	return cell.Get()
}

// Has returns true if a value has been built for key.
func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns all keys with a built value.
// The order is not guaranteed.
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]K, 0, len(c.entries))
	for k, cell := range c.entries {
		if cell.Loaded() {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of keys with a built value.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, cell := range c.entries {
		if cell.Loaded() {
			n++
		}
	}
	return n
}

// Constructions returns how many times a factory has succeeded.
func (c *Cache[K, V]) Constructions() int64 {
	return c.constructions.Load()
}

// Range iterates over all built entries.
// The function fn is called for each entry. If fn returns false,
// iteration stops.
//
// Range iterates over a snapshot of the cache, so it is safe to call
// GetOrCreate during iteration without affecting the current iteration.
func (c *Cache[K, V]) Range(fn func(K, V) bool) {
	// Take a snapshot under read lock
	c.mu.RLock()
	snapshot := make(map[K]V, len(c.entries))
	for k, cell := range c.entries {
		if v, ok := cell.Get(); ok {
			snapshot[k] = v
		}
	}
	c.mu.RUnlock()

	// Iterate over snapshot without holding lock
	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// cell returns the single lazy.Cell for key, inserting it if missing.
func (c *Cache[K, V]) cell(key K) *lazy.Cell[V] {
	// Fast path: check if already exists
	c.mu.RLock()
	cell, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cell
	}

	// Slow path: insert with write lock
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if cell, ok := c.entries[key]; ok {
		return cell
	}

	cell = &lazy.Cell[V]{}
	c.entries[key] = cell
	return cell
}

// construct runs factory for key with logging, metrics, and tracing.
func (c *Cache[K, V]) construct(key K, factory func(K) (V, error)) (V, error) {
	keyStr := fmt.Sprint(key)
	ctx, span := c.cfg.spans.StartConstructSpan(context.Background(), "cache", c.cfg.name, keyStr)
	done := observability.TimedOperation()

	v, err := rperrors.Guard("cache", key, func() (V, error) {
		return factory(key)
	})
	durationMs := done()

	c.cfg.spans.EndSpanWithError(span, err)
	c.cfg.metrics.RecordConstruction(ctx, "cache", c.cfg.name, durationMs, err)
	if err != nil {
		observability.LogConstructError(c.cfg.logger, keyStr, err)
		return v, err
	}
	c.constructions.Add(1)
	observability.LogConstruct(c.cfg.logger, keyStr, durationMs)
	return v, nil
}

func (c *Cache[K, V]) normalize(key K) K {
	if c.cfg.normalize == nil {
		return key
	}
	return c.cfg.normalize(key)
}
