// Package events defines task change events and the fan-out that delivers
// them to interested handlers.
//
// A TaskChangeEvent is produced whenever a task row is inserted or updated.
// Delivery is at-least-once and unordered: handlers should treat the carried
// task as a hint and re-read by ID when they need the authoritative state.
//
// The primary components are:
//   - TaskChangeEvent: an insert or update of one task
//   - EventHandler: interface for components that consume events
//   - EventEmitter: interface for components that publish events
//   - InMemoryEventEmitter: synchronous fan-out to registered handlers
package events
