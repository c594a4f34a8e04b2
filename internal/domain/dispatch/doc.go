// Package dispatch schedules capture jobs with bounded concurrency.
//
// A Dispatcher runs at most Limit jobs at once. Jobs arriving while every
// slot is busy wait in a FIFO queue. When a running job ends, its result is
// delivered and its slot is handed straight to the head of the queue inside
// the same critical section, so a job submitted later can never start ahead
// of one already waiting.
//
// Job lifecycle:
//
//	queued -> running -> completed
//	                  -> failed
//	queued -> failed (dropped: owner disconnected or dispatcher closed)
//
// Failures stay local to their job: runner errors and panics mark that job
// failed, release its slot and let the queue drain.
//
// Observers receive every state change in order, on a dedicated goroutine,
// never while the dispatcher lock is held.
//
// Example Usage:
//
//	d, err := dispatch.New(pipeline, 5, dispatch.WithLogger(logger))
//	jobID, state, err := d.Submit(connID, opts, func(r dispatch.Result) {
//		// send r.Image or r.Err back to the requester
//	})
//	defer d.Close(ctx)
package dispatch
