// Package service contains the application use cases of the study tool
// pipeline.
//
// ToolService is the submitter: it validates a generation request for the
// authenticated owner, records a pending task and hands the task ID to the
// trigger without waiting for the work to run. It also serves owner-scoped
// task reads and schedules one fallback re-read per new task for clients
// that may have missed change events.
//
// Observer follows one owner's tasks for one document by combining the
// change feed with re-reads, exposing the latest known state of each task.
//
// The service layer depends on domain entities and the store interfaces,
// never on specific infrastructure implementations.
package service
