// Package cache provides a generic thread-safe flyweight cache: one lazily
// built value per key, shared by every caller that asks for that key.
//
// Cache supports any comparable key type and any value type through Go
// generics. Entries are never evicted; the cache grows with the number of
// distinct keys requested.
//
// # Basic Usage
//
// Create a cache and request values by key:
//
//	shapes := cache.New[string, Shape]()
//
//	circle, err := shapes.GetOrCreate("CIRCLE", func(kind string) (Shape, error) {
//	    return loadShape(kind)
//	})
//
// The factory receives the key and must build a value that depends on the key
// alone. The result is shared by every future caller asking for the same key,
// so per-call data must be passed to the value's methods, not the factory.
//
// # Exactly-once Construction
//
// GetOrCreate is atomic per key: concurrent first requests for the same key
// collapse into a single factory call, and all of them receive the same
// instance. Requests for different keys construct in parallel; the map lock is
// held only long enough to find or insert a key's lazy.Cell.
//
// A failed factory commits nothing. The next request for that key runs the
// factory again.
//
// # Key Normalization
//
// WithKeyNormalizer maps keys before lookup, for caches whose keys have
// several spellings:
//
//	shapes := cache.New[string, Shape](cache.WithKeyNormalizer(strings.ToUpper))
//	shapes.GetOrCreate("circle", build) // same entry as "CIRCLE"
//
// # Thread Safety
//
// All Cache methods are safe for concurrent use. The Range method iterates
// over a snapshot of the populated entries.
package cache
