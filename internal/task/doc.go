// Package task runs generation work in-process and keeps unfinished tasks
// moving.
//
// Runner is a bounded queue drained by a fixed set of goroutines. It is the
// trigger used when no Redis is configured. Reconciler periodically looks for
// tasks that were never picked up, or whose worker lease lapsed, and invokes
// the trigger for them again, so a crash or a lost trigger delays a task
// rather than stranding it.
package task
