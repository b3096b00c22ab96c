// Package workflow provides dependency-resolved execution of steps with result tracking.
//
// # Overview
//
// An Orchestrator runs a set of steps in dependency order. Dependencies are
// declared structurally: a step that has a pointer field to another step type
// runs after that step and, unless the field is named "_", receives the other
// step instance in that field. Steps communicate results through the exported
// methods of the steps they depend on.
//
// # Step Contract
//
//	type Step interface {
//	    Init() error                       // Structural validation after injection
//	    Execute(ctx context.Context) error // Perform the work
//	}
//
// Init() is called once every step has been injected and before any step
// executes. It must not touch the filesystem or any other external state: a
// failing Init() aborts the whole run before anything has been mutated.
//
// # Dependency Patterns
//
// Named Dependencies (Access + Ordering):
//
//	type StageArtifacts struct {
//	    Directory *ProvisionDirectory // injected, Execute may read it
//	}
//
// Unnamed Dependencies (Ordering Only):
//
//	type SaveProject struct {
//	    Preconditions *CheckPreconditions
//	    _             *PropagateBuildSettings // must run first, not accessed
//	}
//
// An unnamed dependency on a step type that was never added is ignored, which
// lets optional steps be left out of a workflow.
//
// # Injection
//
// Two kinds of values are injected into exported step fields:
//
//   - configuration, selected with a `config:"section.key"` tag; path parts
//     match Go field names or yaml tags
//   - values produced by a Factory registered with Provide; Shared wraps a
//     single instance handed to every step
//
// For example:
//
//	o := workflow.NewOrchestrator(workflow.WithConfig(cfg), workflow.WithLogger(logger))
//	workflow.Provide(o, workflow.Shared(bundle))
//	workflow.Provide(o, func(id workflow.StepID) *slog.Logger {
//	    return logger.With("step", id.ShortString())
//	})
//
// Every named pointer field must be non-nil after injection, otherwise
// Execute fails before any step runs.
//
// # State Progression
//
//	NotStarted -> Pending -> Running -> (Completed|Skipped)
//
// Result.Error holds only errors returned by Execute() or the reason a step
// was skipped. Execute() on the orchestrator returns the errors of the steps
// that actually failed, joined with errors.Join; steps skipped because a
// dependency failed are reported through their Result only, so callers can
// match the root cause with errors.As.
//
// # Thread Safety
//
// Steps run on their own goroutines as soon as their dependencies complete.
// Result access methods are safe for concurrent use. Steps that mutate shared
// state must be ordered through dependencies.
package workflow
