package event

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/eventroute/internal/zerocopy"
)

// Event is the envelope delivered to handlers. A Bus never modifies the
// event passed to Notify; each handler receives its own copy.
type Event struct {
	// ID uniquely identifies this event instance.
	ID string

	// Key is the key the event was notified with. It is set on delivery.
	Key any

	// Headers carries string metadata. URI template variables of the
	// matching selector are added on delivery.
	Headers map[string]string

	// ReplyTo is the key replies should be notified to, or nil.
	ReplyTo any

	// Data is the payload.
	Data any

	// Timestamp is when the event was created.
	Timestamp time.Time

	// trail lists the registrations the event has been delivered through.
	trail *zerocopy.List[string]
}

// New creates an event carrying data.
func New(data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Headers:   make(map[string]string),
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Header returns the value of a header, or "" if absent.
func (e *Event) Header(name string) string {
	return e.Headers[name]
}

// WithHeader returns a copy of e with the header set.
func (e *Event) WithHeader(name, value string) *Event {
	c := e.Copy()
	c.Headers[name] = value
	return c
}

// Copy returns a copy of e with its own header map. The payload is shared.
func (e *Event) Copy() *Event {
	c := *e
	c.Headers = make(map[string]string, len(e.Headers))
	maps.Copy(c.Headers, e.Headers)
	return &c
}

// Reply creates the answer to e. The reply inherits e's trail, so it is
// never routed back through a registration that already handled e.
func (e *Event) Reply(data any) *Event {
	r := New(data)
	r.trail = e.trail
	return r
}

// Trail returns the IDs of the registrations that delivered this event
// and the events it answers, oldest first.
func (e *Event) Trail() []string {
	if e.trail == nil {
		return nil
	}
	return e.trail.Slice()
}

func (e *Event) visited(regID string) bool {
	return e.trail != nil && e.trail.Contains(regID)
}

// deliver returns the copy handed to one registration.
func (e *Event) deliver(key any, regID string, params map[string]string) *Event {
	c := e.Copy()
	c.Key = key
	maps.Copy(c.Headers, params)
	if c.trail == nil {
		c.trail = zerocopy.Of(regID)
	} else {
		c.trail = c.trail.Append(regID)
	}
	return c
}
