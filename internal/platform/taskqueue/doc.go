// Package taskqueue carries generation work over Redis using asynq.
//
// Client enqueues one queue entry per task, keyed by the task ID so that
// repeated invocations for a task that is already queued or running are
// absorbed. Server consumes entries and hands each task ID to the worker.
package taskqueue
