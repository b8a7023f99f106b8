package errors

import "errors"

// Category represents how a caller should react to an error.
type Category int

const (
	// CategoryTransient indicates retrying the same call may succeed.
	// Examples: pool exhaustion, a factory that failed this time.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retrying won't help.
	// Examples: releasing a foreign element, invalid pool configuration.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	switch {
	case errors.Is(err, ErrPoolExhausted):
		return CategoryTransient
	case errors.Is(err, ErrDuplicateResource):
		return CategoryPermanent
	case errors.Is(err, ErrConstructionFailed):
		var pe *PanicError
		if errors.As(err, &pe) {
			return CategoryPermanent
		}
		return CategoryTransient
	case errors.Is(err, ErrNotOwned), errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrNilFactory):
		return CategoryPermanent
	}

	// Unknown errors are permanent (fail safe)
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
