// Package task runs background work off the request path.
// A bounded TaskQueue feeds a WorkerPool; producers enqueue without blocking
// and get ErrQueueFull when the buffer is exhausted. The ledger uses it for
// fire-and-forget remote writes of recorded answers.
package task
