package selector

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// LuaMatcher evaluates a Lua boolean expression against each key, bound
// to the global "key".
//
// gopher-lua states are not goroutine-safe, so evaluation is serialized
// on a per-matcher mutex. Each evaluation is bounded by a timeout; an
// expression that runs past it is a non-match.
type LuaMatcher struct {
	expr    string
	timeout time.Duration

	mu     sync.Mutex
	L      *lua.LState
	fn     *lua.LFunction
	closed bool
}

// DefaultLuaTimeout bounds a single expression evaluation.
const DefaultLuaTimeout = 50 * time.Millisecond

// unsafe globals removed from the base library.
var luaBlocked = []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage"}

// NewLuaMatcher compiles expr in a sandboxed state with only the base,
// string and math libraries.
func NewLuaMatcher(expr string) (*LuaMatcher, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty lua expression", ErrInvalidSelector)
	}

	chunk, err := parse.Parse(strings.NewReader("return ("+expr+")"), "selector")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
	}
	proto, err := lua.Compile(chunk, "selector")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("opening lua library %s: %w", lib.name, err)
		}
	}
	for _, name := range luaBlocked {
		L.SetGlobal(name, lua.LNil)
	}

	return &LuaMatcher{
		expr:    expr,
		timeout: DefaultLuaTimeout,
		L:       L,
		fn:      L.NewFunctionFromProto(proto),
	}, nil
}

// SetTimeout changes the per-evaluation bound. Non-positive values restore
// DefaultLuaTimeout.
func (m *LuaMatcher) SetTimeout(d time.Duration) *LuaMatcher {
	if d <= 0 {
		d = DefaultLuaTimeout
	}
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
	return m
}

// Matches implements Matcher. Runtime errors and timeouts in the
// expression count as a non-match.
func (m *LuaMatcher) Matches(key any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.L.SetGlobal("key", toLua(key))
	defer m.L.SetGlobal("key", lua.LNil)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	m.L.SetContext(ctx)
	defer m.L.RemoveContext()

	if err := m.L.CallByParam(lua.P{Fn: m.fn, NRet: 1, Protect: true}); err != nil {
		m.L.SetTop(0)
		return false
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return lua.LVAsBool(ret)
}

// Close releases the Lua state. A closed matcher matches nothing.
func (m *LuaMatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		m.L.Close()
	}
}

// String returns the expression source.
func (m *LuaMatcher) String() string {
	return m.expr
}

// Lua returns a pattern selector backed by a Lua expression, for example
// `string.sub(key, 1, 4) == "user"` or `key > 100`.
func Lua(expr string) (Selector, error) {
	return LuaWithTimeout(expr, DefaultLuaTimeout)
}

// LuaWithTimeout is Lua with a custom per-evaluation bound.
func LuaWithTimeout(expr string, timeout time.Duration) (Selector, error) {
	m, err := NewLuaMatcher(expr)
	if err != nil {
		return Selector{}, err
	}
	return New(expr, m.SetTimeout(timeout))
}

// toLua converts scalar Go keys to Lua values; anything else is nil.
func toLua(key any) lua.LValue {
	if s, ok := text(key); ok {
		return lua.LString(s)
	}
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Bool:
		return lua.LBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(v.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(v.Float())
	}
	return lua.LNil
}
