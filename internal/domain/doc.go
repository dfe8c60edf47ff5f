// Package domain contains the core entities of the study tool pipeline: tasks
// and their state machine, generated artifacts, notifications and the
// read-only document view. It has no infrastructure dependencies.
package domain
