package cache

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
)

// shape is a flyweight whose identity is its kind.
type shape struct {
	kind string
}

func newShape(kind string) (*shape, error) {
	return &shape{kind: kind}, nil
}

func TestNew(t *testing.T) {
	c := New[string, int]()
	assert.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCreate(t *testing.T) {
	c := New[string, *shape]()

	callCount := 0
	factory := func(kind string) (*shape, error) {
		callCount++
		return newShape(kind)
	}

	// First call creates
	v1, err := c.GetOrCreate("CIRCLE", factory)
	require.NoError(t, err)
	assert.Equal(t, "CIRCLE", v1.kind)
	assert.Equal(t, 1, callCount)

	// Second call returns existing
	v2, err := c.GetOrCreate("CIRCLE", factory)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	assert.Equal(t, 1, callCount) // factory not called again
}

func TestGetOrCreateGrowth(t *testing.T) {
	c := New[string, *shape]()
	var constructions atomic.Int32
	factory := func(kind string) (*shape, error) {
		constructions.Add(1)
		return newShape(kind)
	}

	first, err := c.GetOrCreate("CIRCLE", factory)
	require.NoError(t, err)
	line, err := c.GetOrCreate("LINE", factory)
	require.NoError(t, err)
	third, err := c.GetOrCreate("CIRCLE", factory)
	require.NoError(t, err)

	assert.Equal(t, int32(2), constructions.Load())
	assert.Same(t, first, third)
	assert.NotSame(t, first, line)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(2), c.Constructions())
}

func TestGetOrCreateFactoryReceivesKey(t *testing.T) {
	c := New[int, string]()
	v, err := c.GetOrCreate(7, func(k int) (string, error) {
		return strings.Repeat("x", k), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "xxxxxxx", v)
}

func TestGetOrCreateErrorNotCommitted(t *testing.T) {
	c := New[string, *shape]()
	boom := errors.New("font file missing")
	attempts := 0

	factory := func(kind string) (*shape, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return newShape(kind)
	}

	_, err := c.GetOrCreate("TEXT", factory)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, rperrors.ErrConstructionFailed)

	var ce *rperrors.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cache", ce.Component)
	assert.Equal(t, "TEXT", ce.Key)

	assert.False(t, c.Has("TEXT"))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())

	assert.Equal(t, int64(0), c.Constructions())

	v, err := c.GetOrCreate("TEXT", factory)
	require.NoError(t, err)
	assert.Equal(t, "TEXT", v.kind)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), c.Constructions())
	assert.True(t, c.Has("TEXT"))
}

func TestGetOrCreateFactoryPanic(t *testing.T) {
	c := New[string, int]()

	_, err := c.GetOrCreate("bad", func(string) (int, error) {
		panic("divide by zero")
	})
	require.Error(t, err)

	var pe *rperrors.PanicError
	require.ErrorAs(t, err, &pe)
	var ce *rperrors.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bad", ce.Key)
	assert.False(t, c.Has("bad"))
}

func TestGetOrCreateNilFactory(t *testing.T) {
	c := New[string, int]()
	_, err := c.GetOrCreate("key", nil)
	assert.ErrorIs(t, err, rperrors.ErrNilFactory)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCreateWithNilValue(t *testing.T) {
	c := New[string, *int]()

	v, err := c.GetOrCreate("nil", func(string) (*int, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)

	// Verify it was stored
	assert.True(t, c.Has("nil"))
}

func TestGet(t *testing.T) {
	c := New[string, int]()

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, v) // zero value

	_, err := c.GetOrCreate("one", func(string) (int, error) { return 1, nil })
	require.NoError(t, err)

	v, ok = c.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestKeyNormalizer(t *testing.T) {
	c := New[string, *shape](WithKeyNormalizer(strings.ToUpper))
	calls := 0
	factory := func(kind string) (*shape, error) {
		calls++
		return newShape(kind)
	}

	lower, err := c.GetOrCreate("circle", factory)
	require.NoError(t, err)
	upper, err := c.GetOrCreate("CIRCLE", factory)
	require.NoError(t, err)

	assert.Same(t, lower, upper)
	assert.Equal(t, "CIRCLE", lower.kind) // factory sees the normalized key
	assert.Equal(t, 1, calls)
	assert.True(t, c.Has("Circle"))
	assert.Equal(t, []string{"CIRCLE"}, c.Keys())
}

func TestKeys(t *testing.T) {
	c := New[string, *shape]()
	for _, k := range []string{"one", "two", "three"} {
		_, err := c.GetOrCreate(k, newShape)
		require.NoError(t, err)
	}

	keys := c.Keys()

	assert.Len(t, keys, 3)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, keys)
}

func TestRange(t *testing.T) {
	c := New[string, int]()
	for i, k := range []string{"one", "two", "three"} {
		_, err := c.GetOrCreate(k, func(string) (int, error) { return i + 1, nil })
		require.NoError(t, err)
	}

	visited := make(map[string]int)
	c.Range(func(k string, v int) bool {
		visited[k] = v
		return true
	})

	assert.Equal(t, map[string]int{"one": 1, "two": 2, "three": 3}, visited)
}

func TestRangeEarlyStop(t *testing.T) {
	c := New[int, int]()
	for i := range 3 {
		_, err := c.GetOrCreate(i, func(k int) (int, error) { return k, nil })
		require.NoError(t, err)
	}

	count := 0
	c.Range(func(k, v int) bool {
		count++
		return false // stop after first
	})

	assert.Equal(t, 1, count)
}

func TestRangeAllowsMutation(t *testing.T) {
	c := New[string, int]()
	for _, k := range []string{"one", "two"} {
		_, err := c.GetOrCreate(k, func(string) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	// Range should work over a snapshot, allowing inserts
	c.Range(func(k string, v int) bool {
		_, err := c.GetOrCreate("new-"+k, func(string) (int, error) { return v * 10, nil })
		assert.NoError(t, err)
		return true
	})

	assert.True(t, c.Has("new-one"))
	assert.True(t, c.Has("new-two"))
	assert.Equal(t, 4, c.Len())
}

func TestStructKeys(t *testing.T) {
	type Key struct {
		Namespace string
		Name      string
	}

	c := New[Key, string]()
	k1 := Key{Namespace: "ns1", Name: "name1"}

	v, err := c.GetOrCreate(k1, func(k Key) (string, error) { return k.Namespace + "/" + k.Name, nil })
	require.NoError(t, err)
	assert.Equal(t, "ns1/name1", v)
	assert.True(t, c.Has(Key{Namespace: "ns1", Name: "name1"}))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New[string, int](WithLogger[string](logger), WithName[string]("fonts"))

	_, err := c.GetOrCreate("mono", func(string) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = c.GetOrCreate("serif", func(string) (int, error) { return 0, errors.New("missing") })
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "resource constructed")
	assert.Contains(t, out, "key=mono")
	assert.Contains(t, out, "name=fonts")
	assert.Contains(t, out, "resource construction failed")
	assert.Contains(t, out, "key=serif")
}

// Thread-safety tests

func TestConcurrentGetOrCreateSameKey(t *testing.T) {
	c := New[string, *shape]()
	var callCount atomic.Int32
	start := make(chan struct{})

	factory := func(kind string) (*shape, error) {
		callCount.Add(1)
		time.Sleep(5 * time.Millisecond) // simulate expensive setup
		return newShape(kind)
	}

	n := 100
	results := make([]*shape, n)
	var wg conc.WaitGroup
	for i := range n {
		wg.Go(func() {
			<-start
			v, err := c.GetOrCreate("key", factory)
			assert.NoError(t, err)
			results[i] = v
		})
	}
	close(start)
	wg.Wait()

	// Factory should only be called once
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, 1, c.Len())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

func TestConcurrentPerKeyExactlyOnce(t *testing.T) {
	c := New[string, *shape]()
	var mu sync.Mutex
	calls := map[string]int{}
	start := make(chan struct{})

	factory := func(kind string) (*shape, error) {
		mu.Lock()
		calls[kind]++
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return newShape(kind)
	}

	keys := []string{"A", "A", "A", "B"}
	results := make([]*shape, len(keys))
	var wg conc.WaitGroup
	for i, k := range keys {
		wg.Go(func() {
			<-start
			v, err := c.GetOrCreate(k, factory)
			assert.NoError(t, err)
			results[i] = v
		})
	}
	close(start)
	wg.Wait()

	assert.Equal(t, map[string]int{"A": 1, "B": 1}, calls)
	assert.Same(t, results[0], results[1])
	assert.Same(t, results[0], results[2])
	assert.NotSame(t, results[0], results[3])
	assert.Equal(t, int64(2), c.Constructions())
}

func TestConcurrentDifferentKeysDoNotBlock(t *testing.T) {
	c := New[string, int]()
	slowStarted := make(chan struct{})
	unblock := make(chan struct{})

	var wg conc.WaitGroup
	wg.Go(func() {
		_, err := c.GetOrCreate("slow", func(string) (int, error) {
			close(slowStarted)
			<-unblock
			return 1, nil
		})
		assert.NoError(t, err)
	})

	<-slowStarted

	// A different key must construct while "slow" is still building
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := c.GetOrCreate("fast", func(string) (int, error) { return 2, nil })
		assert.NoError(t, err)
		assert.Equal(t, 2, v)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("construction of a different key blocked behind a slow factory")
	}

	close(unblock)
	wg.Wait()
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentGetOrCreateDifferentKeys(t *testing.T) {
	c := New[int, int]()
	n := 100

	var wg conc.WaitGroup
	for i := range n {
		wg.Go(func() {
			v, err := c.GetOrCreate(i, func(k int) (int, error) { return k * 2, nil })
			assert.NoError(t, err)
			assert.Equal(t, i*2, v)
		})
	}
	wg.Wait()

	assert.Equal(t, n, c.Len())
}

// Benchmark tests

func BenchmarkGetOrCreate_Existing(b *testing.B) {
	c := New[int, int]()
	factory := func(int) (int, error) { return 42, nil }
	_, _ = c.GetOrCreate(0, factory)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetOrCreate(0, factory)
	}
}

func BenchmarkGetOrCreate_New(b *testing.B) {
	c := New[int, int]()
	factory := func(int) (int, error) { return 42, nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetOrCreate(i, factory)
	}
}
