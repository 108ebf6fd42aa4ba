// Package event provides the event bus that sits on top of the selector
// registry.
//
// Every notification resolves its key through the registry and hands the
// event to each matching registration's handler:
//
//	             Notify(ctx, key, ev)
//	                     │
//	                     ▼
//	          ┌─────────────────────┐
//	          │ registry.Select(key)│  direct index / pattern cache / scan
//	          └─────────────────────┘
//	                     │ registrations, insertion order
//	                     ▼
//	          ┌─────────────────────┐
//	          │  filter & prepare   │  skip paused, skip visited,
//	          │                     │  cancel single-use, copy event
//	          └─────────────────────┘
//	                     │
//	          ┌──────────┴──────────┐
//	          ▼                     ▼
//	   SyncDispatcher        AsyncDispatcher
//	   (caller goroutine)    (worker pool)
//
// # Events
//
// An Event carries an ID, headers, a payload and an optional ReplyTo key.
// Handlers receive a copy with Key set to the notified key. When the
// matching selector is a URI template, its variables are added to the
// copy's headers.
//
// # Request / Reply
//
// Send registers the reply handler under an anonymous single-use key and
// sets it as the event's ReplyTo. Handlers registered with Receive notify
// their result back to that key.
//
//	bus.Receive(selector.U("/users/{id}"), func(ctx context.Context, ev *event.Event) (any, error) {
//	    return lookupUser(ev.Header("id"))
//	})
//	bus.Send(ctx, "/users/42", event.New(nil), event.HandlerFunc(onUser))
//
// Every delivered event remembers the registrations it passed through, and
// replies inherit that trail, so a reply is never routed back into a
// handler that already saw the conversation.
//
// # Error Handling
//
// Handler panics are recovered. In sync mode Notify returns every
// *HandlerError and *PanicError joined; in async mode they are logged and
// counted, and Notify reports only queueing failures such as ErrQueueFull.
package event
