package workflow

// StepState represents the execution state of a step
type StepState int

const (
	// NotStarted indicates the step has been registered but not yet processed.
	// If validation or Init() fails, all steps remain NotStarted.
	NotStarted StepState = iota

	// Pending indicates the step is waiting for its dependencies
	Pending

	// Running indicates the step is currently executing
	Running

	// Skipped indicates the step never ran (dependency failed, context cancelled)
	Skipped

	// Completed indicates Execute() returned; check Result.Error for the outcome
	Completed
)

// String returns a human-readable representation of the StepState
func (s StepState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Skipped:
		return "skipped"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
