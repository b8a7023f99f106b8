// Package errors defines the failure taxonomy shared by respool components.
//
// All conditions are local and recoverable:
//   - Construction failures: a factory returned an error or panicked. Never cached.
//   - Pool exhaustion: capacity reached with nothing free. Caller may retry.
//   - Not owned: release of an element the pool is not lending out. Caller bug.
//
// Components always leave their internal state consistent after returning
// any of these errors.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Compare with errors.Is.
var (
	// ErrConstructionFailed matches every ConstructionError.
	ErrConstructionFailed = errors.New("construction failed")

	// ErrPoolExhausted indicates the pool is at capacity and has no free element.
	ErrPoolExhausted = errors.New("pool exhausted")

	// ErrNotOwned indicates Release was called with an element that is not
	// currently checked out from the pool.
	ErrNotOwned = errors.New("resource not owned by pool")

	// ErrInvalidConfig indicates capacity or initial size are out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNilFactory indicates a component was given a nil construction function.
	ErrNilFactory = errors.New("factory cannot be nil")

	// ErrDuplicateResource indicates a pool factory returned a value that
	// compares equal to an element the pool already tracks.
	ErrDuplicateResource = errors.New("factory returned an already tracked resource")
)

// ConstructionError wraps a factory failure with the component and key that
// were being built.
type ConstructionError struct {
	// Component is the kind of component that ran the factory ("lazy", "cache", "pool").
	Component string
	// Key is the cache key, or nil for keyless components.
	Key any
	// Err is the underlying factory error.
	Err error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s: construct %v: %v", e.Component, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: construct: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is reports ErrConstructionFailed as a match.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstructionFailed
}

// PanicError captures a panic raised by a factory.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("factory panicked: %v", e.Value)
}

// Construction wraps err as a ConstructionError.
// An error that already is a ConstructionError is returned unchanged, so
// nested components keep the innermost, most specific context.
func Construction(component string, key any, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConstructionError{Component: component, Key: key, Err: err}
}

// Is is errors.Is, re-exported so callers importing this package under its
// default name do not also need the standard library package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As, re-exported for the same reason as Is.
func As(err error, target any) bool {
	return errors.As(err, target)
}
