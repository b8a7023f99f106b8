// Package lazy provides Cell, a holder for a single value that is built on
// first use and shared by every caller afterwards.
//
// # Basic Usage
//
// Declare a Cell wherever the singleton lives and call GetOrInit:
//
//	var conn lazy.Cell[*Conn]
//
//	c, err := conn.GetOrInit(func() (*Conn, error) {
//	    return Dial("db.internal:5432")
//	})
//
// The factory runs at most once across all goroutines. Every caller observes
// the same value once construction succeeds.
//
// # Failure
//
// A factory error or panic leaves the cell empty. The error is returned to the
// caller whose factory ran, wrapped in an errors.ConstructionError, and the next
// GetOrInit call runs its own factory:
//
//	_, err := cell.GetOrInit(flaky)   // fails, nothing stored
//	v, err := cell.GetOrInit(flaky)   // runs flaky again
//
// # Eager Cells
//
// Eager returns a cell that is already populated, for values that are cheap to
// build at declaration time but should be consumed through the same API:
//
//	var defaults = lazy.Eager(Config{Capacity: 3})
//
// # Thread Safety
//
// All Cell methods are safe for concurrent use. After initialization,
// GetOrInit is a single atomic load on the fast path. A Cell must not be
// copied after first use.
package lazy
