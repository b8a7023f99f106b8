// Package sqlitedb shares SQLite database handles across a process: one
// *sql.DB per data source name, opened on first use.
//
// It is a thin layer over cache.Cache. Opening a handle is the expensive,
// at-most-once construction; every later Open for the same DSN returns the
// same *sql.DB.
package sqlitedb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/respool/pkg/respool/cache"
	"github.com/randalmurphal/respool/pkg/respool/lazy"
)

// ErrRegistryClosed indicates Open was called after Close.
var ErrRegistryClosed = errors.New("sqlite registry closed")

// Registry maps DSNs to open database handles.
type Registry struct {
	dbs    *cache.Cache[string, *sql.DB]
	mu     sync.RWMutex
	closed bool
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		dbs: cache.New[string, *sql.DB](
			cache.WithName[string]("sqlite"),
			cache.WithKeyNormalizer(strings.TrimSpace),
			cache.WithLogger[string](logger),
		),
	}
}

// shared is the process-wide registry behind Shared.
var shared lazy.Cell[*Registry]

// Shared returns the process-wide registry, creating it on first call.
func Shared() *Registry {
	return shared.Value(func() *Registry {
		return NewRegistry(slog.Default())
	})
}

// Open returns the handle for dsn, opening and verifying it on first use.
// The path should be a file path (e.g., "./app.db") or a "file:" URI.
// A failed open is not remembered; the next call tries again.
func (r *Registry) Open(dsn string) (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	return r.dbs.GetOrCreate(dsn, open)
}

// Len returns the number of open handles.
func (r *Registry) Len() int {
	return r.dbs.Len()
}

// Close closes every handle opened through the registry. Further calls to
// Open fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	r.dbs.Range(func(dsn string, db *sql.DB) bool {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", dsn, err))
		}
		return true
	})
	return errors.Join(errs...)
}

// open opens and pings a database.
func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
