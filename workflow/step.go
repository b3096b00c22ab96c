package workflow

import (
	"context"
)

// Step is a single unit of work in a workflow.
//
// IMPLEMENTATION CONTRACT:
// - Init() is called after all dependency/config injection but before any Execute()
// - Init() validates configuration and injected dependencies, nothing else
// - Execute() performs the work - return nil for success, error for failure
// - Steps should handle context cancellation gracefully
type Step interface {
	// Init validates injected configuration and dependencies.
	Init() error

	// Execute performs the step's work.
	Execute(ctx context.Context) error
}

// Result contains the outcome of a step.
//
// LIFECYCLE:
// - Created in NotStarted state when the step is added via AddStep()
// - Progresses during Execute(): NotStarted -> Pending -> Running -> (Completed|Skipped)
// - Final state persists after Execute() completes
type Result struct {
	// State indicates the current execution state
	State StepState

	// Error is the error returned by Execute(), or the reason the step was skipped
	Error error
}

// IsSuccess returns true if the step ran and returned nil.
// Skipped steps are never successful.
func (r *Result) IsSuccess() bool {
	return r.State == Completed && r.Error == nil
}
