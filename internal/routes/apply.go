package routes

import (
	"fmt"

	"github.com/dshills/eventroute/internal/registry"
	"github.com/dshills/eventroute/internal/selector"
)

// closer is implemented by matchers holding resources, such as Lua states.
type closer interface {
	Close()
}

// Compile builds the selector of every route. On error, selectors built
// so far are released.
func (t *Table) Compile() ([]selector.Selector, error) {
	sels := make([]selector.Selector, 0, len(t.Routes))
	for i, r := range t.Routes {
		sel, err := r.Selector()
		if err != nil {
			Release(sels...)
			return nil, &ParseError{Path: t.Source, Route: i, Err: err}
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

// Release frees matcher resources of selectors that will not be used
// again.
func Release(sels ...selector.Selector) {
	for _, sel := range sels {
		if c, ok := sel.Matcher().(closer); ok {
			c.Close()
		}
	}
}

// Apply registers every route of t with reg, binding each to the handler it
// names. Either all routes are registered or, on error, none are.
func Apply[T any](reg *registry.Registry[T], t *Table, handlers map[string]T) ([]*registry.Registration[T], error) {
	for i, r := range t.Routes {
		if _, ok := handlers[r.Handler]; !ok {
			return nil, &ParseError{Path: t.Source, Route: i, Err: fmt.Errorf("%w: %q", ErrUnknownHandler, r.Handler)}
		}
	}

	sels, err := t.Compile()
	if err != nil {
		return nil, err
	}

	regs := make([]*registry.Registration[T], 0, len(sels))
	for i, sel := range sels {
		r, err := reg.Register(sel, handlers[t.Routes[i].Handler])
		if err != nil {
			Remove(regs)
			Release(sels[i:]...)
			return nil, fmt.Errorf("registering route %s: %w", t.Routes[i].Label(), err)
		}
		regs = append(regs, r)
	}
	return regs, nil
}

// Remove cancels registrations created by Apply and releases their
// selectors.
func Remove[T any](regs []*registry.Registration[T]) {
	for _, r := range regs {
		r.Cancel()
		Release(r.Selector())
	}
}
