// Package scheduler runs deferred, cancellable tasks keyed by an id.
//
// At most one task is pending per key; scheduling again while a task is
// pending is a no-op, so requests coalesce. Flush runs the pending task
// synchronously, or waits for one that already fired, which lets callers
// establish "previous task finished" before proceeding.
package scheduler
