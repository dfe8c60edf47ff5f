// Package worker executes generation tasks.
//
// Process drives one task from pending to a terminal status: it claims the
// task under a lease, loads the document, prompts the generative backend,
// validates the output against the tool's schema and records the result.
// Every post-creation failure is written into the task as a failed result,
// so clients observe failures through the same channel as successes.
//
// Process is safe to call more than once for the same task. Terminal tasks
// are left untouched and a live lease held by another worker is respected.
package worker
