package lazy

import (
	"sync"
	"sync/atomic"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
)

// Cell holds a value that is constructed exactly once, on first use.
// The zero value is an empty cell ready for use.
type Cell[T any] struct {
	done  atomic.Bool
	mu    sync.Mutex
	value T
}

// Eager returns a cell already populated with v.
func Eager[T any](v T) *Cell[T] {
	c := &Cell[T]{value: v}
	c.done.Store(true)
	return c
}

// GetOrInit returns the cell's value, running factory to build it if the
// cell is empty. Concurrent callers that lose the race wait for the winner
// and return its value; factory runs at most once per successful
// initialization.
//
// If factory fails or panics, the cell stays empty and the error is returned
// only to this caller.
func (c *Cell[T]) GetOrInit(factory func() (T, error)) (T, error) {
	// Fast path: already initialized
	if c.done.Load() {
		return c.value, nil
	}

	if factory == nil {
		var zero T
		return zero, rperrors.ErrNilFactory
	}

	// Slow path: serialize construction
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the lock
	if c.done.Load() {
		return c.value, nil
	}

	v, err := rperrors.Guard("lazy", nil, factory)
	if err != nil {
		var zero T
		return zero, err
	}

	c.value = v
	c.done.Store(true)
	return v, nil
}

// Value is GetOrInit for factories that cannot fail.
// It panics if factory panics.
func (c *Cell[T]) Value(factory func() T) T {
	v, err := c.GetOrInit(func() (T, error) {
		return factory(), nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Get returns the value and true if the cell is populated.
// It never runs a factory.
func (c *Cell[T]) Get() (T, bool) {
	if c.done.Load() {
		return c.value, true
	}
	var zero T
	return zero, false
}

// Loaded reports whether the cell has been populated.
func (c *Cell[T]) Loaded() bool {
	return c.done.Load()
}
