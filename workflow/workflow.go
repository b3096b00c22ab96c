package workflow

import (
	"context"
)

// Workflow is an executable set of steps whose results stay accessible
// after Execute returns.
type Workflow interface {
	// Execute runs the workflow to completion.
	Execute(ctx context.Context) error

	// GetAllResults returns a copy of all step results.
	GetAllResults() map[StepID]*Result
}

var _ Workflow = (*Orchestrator)(nil)
