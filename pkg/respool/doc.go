/*
Package respool provides concurrency-safe creation and sharing of expensive
objects: at most one construction per identity, under any number of
concurrent callers.

# Overview

respool is split into small packages that build on each other:
  - lazy: Cell, a value built exactly once on first use (a singleton holder)
  - cache: Cache, one lazily built value per key (a flyweight factory)
  - pool: Pool, a bounded checkout/return pool of interchangeable values
  - errors: the shared failure taxonomy
  - config: pool settings from maps, YAML, or JSON
  - observability: slog helpers and OpenTelemetry metrics and tracing
  - sqlitedb: one shared *sql.DB per SQLite file, built on cache

None of the components start goroutines of their own. They are safe to call
from many goroutines and never block indefinitely: a caller that loses a
construction race waits only for the winner's factory, and an exhausted pool
reports ErrPoolExhausted immediately.

# Basic Usage

	// Singleton
	var client lazy.Cell[*Client]
	c, err := client.GetOrInit(dial)

	// Flyweight
	fonts := cache.New[string, *Font]()
	f, err := fonts.GetOrCreate("mono", loadFont)

	// Pool
	conns, err := pool.New(3, 1, openConn)
	conn, err := conns.Acquire()
	defer conns.Release(conn)

# Failure

Factory errors and panics are never cached. The failing caller receives an
errors.ConstructionError and the next caller tries again. Pool exhaustion
and releasing an element the pool does not lend out are reported as
errors.ErrPoolExhausted and errors.ErrNotOwned; neither changes pool state.
*/
package respool
