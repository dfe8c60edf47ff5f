// Package notification records user-visible notices when generation tasks
// complete. Each task produces at most one notification.
package notification
