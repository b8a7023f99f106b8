package errors

import "runtime/debug"

// Guard runs fn, converting a returned error or a panic into a
// ConstructionError tagged with component and key.
func Guard[T any](component string, key any, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = Construction(component, key, &PanicError{
				Value: r,
				Stack: string(debug.Stack()),
			})
		}
	}()

	v, err = fn()
	if err != nil {
		var zero T
		return zero, Construction(component, key, err)
	}
	return v, nil
}
