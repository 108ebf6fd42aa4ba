package registry

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/eventroute/internal/selector"
)

func handlers(regs []*Registration[string]) []string {
	out := make([]string, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Handler())
	}
	return out
}

func mustRegister(t *testing.T, r *Registry[string], sel selector.Selector, h string) *Registration[string] {
	t.Helper()
	reg, err := r.Register(sel, h)
	require.NoError(t, err)
	return reg
}

func mustSelect(t *testing.T, r *Registry[string], key any) []string {
	t.Helper()
	regs, err := r.Select(key)
	require.NoError(t, err)
	require.NotNil(t, regs)
	return handlers(regs)
}

func glob(t *testing.T, pattern string) selector.Selector {
	t.Helper()
	s, err := selector.Glob(pattern)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	r := New[string]()
	require.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot())
}

func TestRegistry_DirectBypassesPatterns(t *testing.T) {
	r := New[string]()

	mustRegister(t, r, selector.MustExact("foo"), "H1")
	assert.Equal(t, []string{"H1"}, mustSelect(t, r, "foo"))
	assert.Equal(t, []string{}, mustSelect(t, r, "bar"))

	mustRegister(t, r, glob(t, "f*"), "H2")
	assert.Equal(t, []string{"H1"}, mustSelect(t, r, "foo"))
	assert.Equal(t, []string{"H2"}, mustSelect(t, r, "fizz"))
}

func TestRegistry_InvalidationOnNewPattern(t *testing.T) {
	r := New[string]()

	mustRegister(t, r, glob(t, "a*"), "H1")
	assert.Equal(t, []string{"H1"}, mustSelect(t, r, "abc"))

	mustRegister(t, r, glob(t, "ab*"), "H2")
	assert.Equal(t, []string{"H1", "H2"}, mustSelect(t, r, "abc"))
}

func TestRegistry_CancelRemovesFromAllPaths(t *testing.T) {
	r := New[string]()

	h1 := mustRegister(t, r, glob(t, "a*"), "H1")
	mustRegister(t, r, glob(t, "ab*"), "H2")
	exact := mustRegister(t, r, selector.MustExact("abc-direct"), "H3")

	assert.Equal(t, []string{"H1", "H2"}, mustSelect(t, r, "abc"))

	h1.Cancel()
	assert.True(t, h1.IsCancelled())
	assert.Equal(t, []string{"H2"}, mustSelect(t, r, "abc"))
	assert.NotContains(t, handlers(r.Snapshot()), "H1")

	exact.Cancel()
	assert.Equal(t, []string{}, mustSelect(t, r, "abc-direct"))
	assert.Equal(t, []string{"H2"}, handlers(r.Snapshot()))

	r.mu.RLock()
	_, bucket := r.direct["abc-direct"]
	r.mu.RUnlock()
	assert.False(t, bucket, "empty direct bucket should be pruned")
}

func TestRegistry_CancelTwice(t *testing.T) {
	r := New[string]()
	reg := mustRegister(t, r, glob(t, "x*"), "H")

	reg.Cancel()
	reg.Cancel()
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SelectIsRepeatable(t *testing.T) {
	r := New[string]()
	mustRegister(t, r, glob(t, "*"), "A")
	mustRegister(t, r, glob(t, "o*"), "B")
	mustRegister(t, r, glob(t, "z*"), "C")

	first := mustSelect(t, r, "order")
	second := mustSelect(t, r, "order")
	assert.Equal(t, []string{"A", "B"}, first)
	assert.Equal(t, first, second)
}

func TestRegistry_SelectReturnsCopy(t *testing.T) {
	r := New[string]()
	mustRegister(t, r, glob(t, "a*"), "H1")
	mustRegister(t, r, selector.MustExact("k"), "D1")

	regs, err := r.Select("abc")
	require.NoError(t, err)
	regs[0] = nil
	assert.Equal(t, []string{"H1"}, mustSelect(t, r, "abc"))

	direct, err := r.Select("k")
	require.NoError(t, err)
	direct[0] = nil
	assert.Equal(t, []string{"D1"}, mustSelect(t, r, "k"))
}

func TestRegistry_InsertionOrder(t *testing.T) {
	r := New[string]()
	for _, h := range []string{"one", "two", "three", "four"} {
		mustRegister(t, r, selector.Predicate(h, func(any) bool { return true }), h)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, mustSelect(t, r, "anything"))
}

func TestRegistry_MultipleExactSameKey(t *testing.T) {
	r := New[string]()
	a := mustRegister(t, r, selector.MustExact(42), "A")
	mustRegister(t, r, selector.MustExact(42), "B")

	assert.Equal(t, []string{"A", "B"}, mustSelect(t, r, 42))
	assert.Equal(t, []string{}, mustSelect(t, r, int64(42)))

	a.Cancel()
	assert.Equal(t, []string{"B"}, mustSelect(t, r, 42))
}

func TestRegistry_AnonymousKeys(t *testing.T) {
	r := New[string]()
	sel, key := selector.Anonymous()
	mustRegister(t, r, sel, "private")
	mustRegister(t, r, selector.Predicate("all", func(any) bool { return true }), "all")

	assert.Equal(t, []string{"private"}, mustSelect(t, r, key))
	assert.Equal(t, []string{"all"}, mustSelect(t, r, selector.NewObject()))
}

func TestRegistry_Unregister(t *testing.T) {
	r := New[string]()

	ok, err := r.Unregister("abc")
	require.NoError(t, err)
	assert.False(t, ok, "empty registry")

	h1 := mustRegister(t, r, glob(t, "a*"), "H1")
	mustRegister(t, r, glob(t, "b*"), "H2")
	d := mustRegister(t, r, selector.MustExact("abc"), "D")

	assert.Equal(t, []string{"H1"}, mustSelect(t, r, "axe"))

	ok, err = r.Unregister("zzz")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Unregister("abc")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, h1.IsCancelled())
	assert.True(t, d.IsCancelled())
	assert.Equal(t, []string{"H2"}, handlers(r.Snapshot()))
	assert.Equal(t, []string{}, mustSelect(t, r, "axe"))
	assert.Equal(t, []string{}, mustSelect(t, r, "abc"))
}

func TestRegistry_NilArguments(t *testing.T) {
	r := New[string]()

	_, err := r.Register(selector.Selector{}, "H")
	assert.ErrorIs(t, err, ErrNilSelector)
	assert.Equal(t, 0, r.Len())

	_, err = r.Select(nil)
	assert.ErrorIs(t, err, ErrNilKey)

	_, err = r.Unregister(nil)
	assert.ErrorIs(t, err, ErrNilKey)
}

func TestRegistry_Clear(t *testing.T) {
	r := New[string]()
	p := mustRegister(t, r, glob(t, "a*"), "P")
	d := mustRegister(t, r, selector.MustExact("k"), "D")
	mustSelect(t, r, "abc")

	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []string{}, mustSelect(t, r, "abc"))
	assert.Equal(t, []string{}, mustSelect(t, r, "k"))
	assert.True(t, p.IsCancelled())
	assert.True(t, d.IsCancelled())

	// cancelling after clear is a no-op
	d.Cancel()
	mustRegister(t, r, selector.MustExact("k"), "D2")
	assert.Equal(t, []string{"D2"}, mustSelect(t, r, "k"))
}

func TestRegistry_IterateSnapshot(t *testing.T) {
	r := New[string]()
	mustRegister(t, r, glob(t, "a*"), "A")
	mustRegister(t, r, glob(t, "b*"), "B")

	var seen []string
	for reg := range r.Iterate() {
		seen = append(seen, reg.Handler())
		// mutation during iteration is not observed
		mustRegister(t, r, glob(t, "c*"), "C")
	}
	assert.Equal(t, []string{"A", "B"}, seen)
	assert.Equal(t, 4, r.Len())

	var first []string
	for reg := range r.Iterate() {
		first = append(first, reg.Handler())
		break
	}
	assert.Equal(t, []string{"A"}, first)
}

func TestRegistry_UnhashableKeys(t *testing.T) {
	r := New[string]()
	mustRegister(t, r, glob(t, "a*"), "bytes")

	assert.Equal(t, []string{"bytes"}, mustSelect(t, r, []byte("abc")))
	assert.Equal(t, []string{}, mustSelect(t, r, []int{1}))

	r.mu.RLock()
	assert.Empty(t, r.cache)
	r.mu.RUnlock()
}

func TestRegistry_NaNKeysAreNotCached(t *testing.T) {
	var misses int
	r := New[string](WithMissHook(func(any) { misses++ }))
	mustRegister(t, r, selector.Predicate("float", func(key any) bool {
		_, ok := key.(float64)
		return ok
	}), "F")

	for i := 0; i < 5; i++ {
		assert.Equal(t, []string{"F"}, mustSelect(t, r, math.NaN()))
	}
	assert.Equal(t, []string{"F"}, mustSelect(t, r, struct{ X any }{math.NaN()}))
	assert.Equal(t, 6, misses)

	r.mu.RLock()
	assert.Empty(t, r.cache)
	r.mu.RUnlock()

	assert.Equal(t, []string{"F"}, mustSelect(t, r, 1.5))
	r.mu.RLock()
	assert.Len(t, r.cache, 1)
	r.mu.RUnlock()
}

func TestRegistry_MissesAreNotCached(t *testing.T) {
	var misses []any
	r := New[string](WithMissHook(func(key any) { misses = append(misses, key) }))
	mustRegister(t, r, glob(t, "a*"), "A")

	mustSelect(t, r, "zzz")
	mustSelect(t, r, "zzz")
	mustSelect(t, r, "abc")
	mustSelect(t, r, "abc")

	assert.Equal(t, []any{"zzz", "zzz", "abc"}, misses)

	r.mu.RLock()
	_, cachedMiss := r.cache["zzz"]
	_, cachedHit := r.cache["abc"]
	r.mu.RUnlock()
	assert.False(t, cachedMiss)
	assert.True(t, cachedHit)
}

func TestRegistry_CacheDisabled(t *testing.T) {
	var misses int
	r := New[string](WithCache(false), WithMissHook(func(any) { misses++ }))
	mustRegister(t, r, glob(t, "a*"), "A")

	assert.Equal(t, []string{"A"}, mustSelect(t, r, "abc"))
	assert.Equal(t, []string{"A"}, mustSelect(t, r, "abc"))
	assert.Equal(t, 2, misses)

	r.mu.RLock()
	assert.Empty(t, r.cache)
	r.mu.RUnlock()
}

func TestRegistry_DirectKeysDoNotTouchCache(t *testing.T) {
	var misses int
	r := New[string](WithMissHook(func(any) { misses++ }))
	mustRegister(t, r, selector.MustExact("k"), "D")
	mustRegister(t, r, glob(t, "*"), "P")

	mustSelect(t, r, "k")
	mustSelect(t, r, "k")

	assert.Equal(t, 0, misses)
	r.mu.RLock()
	assert.Empty(t, r.cache)
	r.mu.RUnlock()
}

func TestRegistry_PausedStillMatch(t *testing.T) {
	r := New[string]()
	reg := mustRegister(t, r, glob(t, "a*"), "A")

	reg.Pause()
	assert.True(t, reg.IsPaused())
	assert.Equal(t, []string{"A"}, mustSelect(t, r, "abc"))

	reg.Resume()
	assert.False(t, reg.IsPaused())
}

func TestRegistry_CancelDoesNotDisturbOthers(t *testing.T) {
	r := New[string]()
	var regs []*Registration[string]
	for _, h := range []string{"a", "b", "c", "d"} {
		regs = append(regs, mustRegister(t, r, glob(t, "*"), h))
	}

	regs[1].Cancel()
	regs[3].Cancel()

	got := mustSelect(t, r, "x")
	assert.Equal(t, []string{"a", "c"}, got)
	assert.True(t, slices.Equal(got, handlers(r.Snapshot())))
}
