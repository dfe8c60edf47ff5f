// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the pipeline's core logic: tasks and their state machine, notifications,
// and the read-only document collaborator.
package store
