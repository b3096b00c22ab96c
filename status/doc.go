// Package status lets workflow steps report what they are doing and whether
// they changed anything on disk.
//
// A Line is bound to one step and injected by the orchestrator through a
// factory. Every Set call is logged and stored in a shared Handler, which the
// scaffold report reads once the workflow has finished:
//
//	handler := status.NewHandler()
//	workflow.Provide(o, func(id workflow.StepID) *status.Line {
//	    return status.NewLine(id, logger, handler)
//	})
//
// Steps call Line.Changed when they mutate the project, so a second run over
// an already scaffolded project reports no changes.
package status
