// Package dispatch runs event handler tasks.
//
// Two dispatchers are provided:
//
//   - SyncDispatcher runs each task in the caller's goroutine and returns
//     its Result.
//
//   - AsyncDispatcher runs tasks on a fixed worker pool fed by a bounded
//     queue. A full queue rejects new tasks with ErrQueueFull instead of
//     blocking the notifier.
//
// Both recover handler panics through an Executor and report them in the
// Result and to an optional PanicHandler, so a misbehaving handler cannot
// take down the process. A per-task timeout is applied by deriving the
// task's context; tasks must observe ctx for it to have effect.
//
//	d := dispatch.NewSyncDispatcher(dispatch.WithTimeout(time.Second))
//	res := d.Dispatch(ctx, func(ctx context.Context) error {
//	    return handler.Handle(ctx, ev)
//	})
//	if !res.IsSuccess() {
//	    // inspect res.Error or res.PanicValue
//	}
package dispatch
