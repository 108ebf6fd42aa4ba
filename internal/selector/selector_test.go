package selector

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExact(t *testing.T) {
	s, err := Exact("foo")
	require.NoError(t, err)

	assert.Equal(t, KindExact, s.Kind())
	assert.Equal(t, "foo", s.Subject())
	assert.Nil(t, s.Matcher())
	assert.True(t, s.Matches("foo"))
	assert.False(t, s.Matches("bar"))
	assert.False(t, s.Matches([]byte("foo")))
	assert.False(t, s.Matches(nil))
}

func TestExact_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  any
	}{
		{"nil", nil},
		{"slice", []string{"a"}},
		{"map", map[string]int{}},
		{"struct with slice in interface", struct{ v any }{v: []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Exact(tt.key)
			assert.ErrorIs(t, err, ErrInvalidSelector)
		})
	}
}

func TestMustExact_Panics(t *testing.T) {
	assert.Panics(t, func() { MustExact(nil) })
}

func TestHashable(t *testing.T) {
	assert.True(t, Hashable("x"))
	assert.True(t, Hashable(42))
	assert.True(t, Hashable(NewObject()))
	assert.True(t, Hashable([2]int{1, 2}))
	assert.False(t, Hashable(nil))
	assert.False(t, Hashable([]byte("x")))
	assert.False(t, Hashable([1]any{[]int{}}))
}

func TestCacheable(t *testing.T) {
	assert.True(t, Cacheable("x"))
	assert.True(t, Cacheable(1.5))
	assert.True(t, Hashable(math.NaN()))
	assert.False(t, Cacheable(math.NaN()))
	assert.False(t, Cacheable(float32(math.NaN())))
	assert.False(t, Cacheable(complex(1, math.NaN())))
	assert.False(t, Cacheable([2]float64{0, math.NaN()}))
	assert.False(t, Cacheable(struct{ V any }{math.NaN()}))
	assert.False(t, Cacheable([]byte("x")))
}

func TestAnonymous(t *testing.T) {
	s1, k1 := Anonymous()
	s2, k2 := Anonymous()

	assert.NotEqual(t, k1, k2)
	assert.Equal(t, KindExact, s1.Kind())
	assert.True(t, s1.Matches(k1))
	assert.False(t, s1.Matches(k2))
	assert.True(t, s2.Matches(k2))
}

func TestPredicate(t *testing.T) {
	s := Predicate("even", func(key any) bool {
		n, ok := key.(int)
		return ok && n%2 == 0
	})

	assert.Equal(t, KindPattern, s.Kind())
	assert.Equal(t, "even", s.Subject())
	assert.True(t, s.Matches(4))
	assert.False(t, s.Matches(3))
	assert.False(t, s.Matches("4"))
}

func TestNew_NilMatcher(t *testing.T) {
	_, err := New("x", nil)
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestZeroSelector(t *testing.T) {
	var s Selector
	assert.True(t, s.IsZero())
	assert.False(t, s.Matches("anything"))
}

func TestGlob(t *testing.T) {
	s, err := Glob("a*")
	require.NoError(t, err)

	assert.True(t, s.Matches("abc"))
	assert.True(t, s.Matches("a"))
	assert.True(t, s.Matches([]byte("ab")))
	assert.False(t, s.Matches("bac"))
	assert.False(t, s.Matches(7))

	q, err := Glob("ab?")
	require.NoError(t, err)
	assert.True(t, q.Matches("abc"))
	assert.False(t, q.Matches("abcd"))

	_, err = Glob("")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

type named string

func (n named) String() string { return string(n) }

func TestRegex(t *testing.T) {
	s, err := Regex(`^order\.(\d+)$`)
	require.NoError(t, err)

	assert.True(t, s.Matches("order.42"))
	assert.True(t, s.Matches(named("order.7")))
	assert.False(t, s.Matches("order.x"))

	m := s.Matcher().(*RegexMatcher)
	assert.Equal(t, []string{"order.42", "42"}, m.Groups("order.42"))
	assert.Nil(t, m.Groups(12))

	_, err = Regex("(")
	assert.ErrorIs(t, err, ErrInvalidSelector)
	assert.Panics(t, func() { R("(") })
}

func TestTopic(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"buffer.*", "buffer.saved", true},
		{"buffer.*", "buffer.content.inserted", false},
		{"buffer.**", "buffer.content.inserted", true},
		{"buffer.**", "buffer", true},
		{"*.changed", "config.changed", true},
		{"buffer.*.inserted", "buffer.text.inserted", true},
		{"**", "anything.at.all", true},
		{"config.changed", "config.changed", true},
		{"config.changed", "config", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.pattern, tt.key), func(t *testing.T) {
			s, err := Topic(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Matches(tt.key))
		})
	}

	for _, bad := range []string{"", ".a", "a..b", "a."} {
		_, err := Topic(bad)
		assert.ErrorIs(t, err, ErrInvalidSelector, bad)
	}
}

func TestURITemplate(t *testing.T) {
	s, err := URI("/users/{id}/orders/{order}")
	require.NoError(t, err)

	assert.True(t, s.Matches("/users/7/orders/99"))
	assert.False(t, s.Matches("/users/7/orders"))
	assert.False(t, s.Matches("/users/7/8/orders/99"))

	assert.Equal(t, map[string]string{"id": "7", "order": "99"}, ParamsOf(s, "/users/7/orders/99"))
	assert.Nil(t, ParamsOf(s, "/nope"))

	g := U("/static/**")
	assert.True(t, g.Matches("/static"))
	assert.True(t, g.Matches("/static/css/site.css"))
	assert.False(t, g.Matches("/staticx"))

	assert.Nil(t, ParamsOf(MustExact("x"), "x"))

	_, err = URI("/a/{id}/{id}")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestType(t *testing.T) {
	readers := TypeOf[io.Reader]()

	assert.True(t, readers.Matches(reflect.TypeFor[*os.File]()))
	assert.False(t, readers.Matches(reflect.TypeFor[int]()))
	assert.False(t, readers.Matches("io.Reader"))

	ints := T(reflect.TypeFor[int]())
	assert.True(t, ints.Matches(reflect.TypeFor[int]()))
	assert.False(t, ints.Matches(reflect.TypeFor[int64]()))

	_, err := Type(nil)
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestJSONField(t *testing.T) {
	s, err := JSONField("type", "order.created")
	require.NoError(t, err)

	assert.True(t, s.Matches(`{"type":"order.created","id":1}`))
	assert.True(t, s.Matches([]byte(`{"type":"order.created"}`)))
	assert.False(t, s.Matches(`{"type":"order.deleted"}`))
	assert.False(t, s.Matches(`not json`))

	exists, err := JSONField("meta.trace", "")
	require.NoError(t, err)
	assert.True(t, exists.Matches(`{"meta":{"trace":"abc"}}`))
	assert.False(t, exists.Matches(`{"meta":{}}`))

	_, err = JSONField("", "x")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestLua(t *testing.T) {
	s, err := Lua(`type(key) == "string" and string.sub(key, 1, 4) == "user"`)
	require.NoError(t, err)
	defer s.Matcher().(*LuaMatcher).Close()

	assert.True(t, s.Matches("user.created"))
	assert.False(t, s.Matches("order.created"))
	assert.False(t, s.Matches(5))

	n, err := Lua(`key > 100`)
	require.NoError(t, err)
	assert.True(t, n.Matches(101))
	assert.False(t, n.Matches(3.5))
	// comparing nil with a number is a runtime error, which is a non-match
	assert.False(t, n.Matches(struct{}{}))
}

func TestLua_Timeout(t *testing.T) {
	s, err := LuaWithTimeout(`(key == "spin" and (function() while true do end end)()) or key == "x"`, 20*time.Millisecond)
	require.NoError(t, err)
	defer s.Matcher().(*LuaMatcher).Close()

	start := time.Now()
	assert.False(t, s.Matches("spin"))
	assert.Less(t, time.Since(start), 2*time.Second)

	// the state stays usable after an aborted evaluation
	assert.True(t, s.Matches("x"))
	assert.False(t, s.Matches("y"))
}

func TestLua_Sandbox(t *testing.T) {
	s, err := Lua(`dofile == nil and require == nil`)
	require.NoError(t, err)
	assert.True(t, s.Matches("x"))
}

func TestLua_Invalid(t *testing.T) {
	_, err := Lua("")
	assert.ErrorIs(t, err, ErrInvalidSelector)

	_, err = Lua("key ==")
	assert.True(t, errors.Is(err, ErrInvalidSelector))
}

func TestLua_Closed(t *testing.T) {
	m, err := NewLuaMatcher("true")
	require.NoError(t, err)
	assert.True(t, m.Matches("x"))

	m.Close()
	m.Close()
	assert.False(t, m.Matches("x"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "exact", KindExact.String())
	assert.Equal(t, "pattern", KindPattern.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
