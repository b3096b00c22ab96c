package scaffold

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nomis52/dinamicisland/logging"
	"github.com/nomis52/dinamicisland/status"
	"github.com/nomis52/dinamicisland/workflow"
)

// StepReport is the outcome of one step.
type StepReport struct {
	ID      workflow.StepID
	State   workflow.StepState
	Err     error
	Status  string
	Changed bool
	// Warnings lists the WARN and ERROR messages the step logged.
	Warnings []string
	// Logs holds the captured records of failed steps.
	Logs []logging.LogEntry
}

// Report summarises a scaffold run.
type Report struct {
	Steps    []StepReport
	Duration time.Duration
}

func newReport(steps []workflow.Step, results map[workflow.StepID]*workflow.Result, h *status.Handler, c *logging.LogCollector) *Report {
	r := &Report{}
	for _, step := range steps {
		id := workflow.GetStepID(step)
		sr := StepReport{ID: id}
		if res := results[id]; res != nil {
			sr.State = res.State
			sr.Err = res.Error
		}
		entry := h.Entry(id)
		sr.Status = entry.Message
		sr.Changed = entry.Changed
		if c != nil {
			sr.Warnings = c.Warnings(id.ShortString())
			if sr.State == workflow.Completed && sr.Err != nil {
				sr.Logs = c.GetLogs(id.ShortString())
			}
		}
		r.Steps = append(r.Steps, sr)
	}
	return r
}

// Changed reports whether any step modified the project.
func (r *Report) Changed() bool {
	for _, s := range r.Steps {
		if s.Changed {
			return true
		}
	}
	return false
}

// Succeeded reports whether every step completed without error.
func (r *Report) Succeeded() bool {
	for _, s := range r.Steps {
		if s.State != workflow.Completed || s.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the steps that ran and returned an error.
func (r *Report) Failed() []StepReport {
	var out []StepReport
	for _, s := range r.Steps {
		if s.State == workflow.Completed && s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Step returns the report for the step with the given type name.
func (r *Report) Step(name string) (StepReport, bool) {
	for _, s := range r.Steps {
		if s.ID.Type == name {
			return s, true
		}
	}
	return StepReport{}, false
}

// Write prints one line per step, with any warnings beneath it, followed by
// the logs of failed steps.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range r.Steps {
		mark := " "
		if s.Changed {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", mark, s.ID.Type, s.State, s.Status)
		if len(s.Logs) > 0 {
			continue
		}
		for _, msg := range s.Warnings {
			fmt.Fprintf(tw, "\t\twarning: %s\n", msg)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range r.Failed() {
		if len(s.Logs) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nlogs for %s:\n", s.ID.ShortString())
		for _, l := range s.Logs {
			fmt.Fprintf(w, "  %s %-5s %s\n", l.Time.Format(time.RFC3339), l.Level, l.Message)
		}
	}

	summary := "no changes"
	if r.Changed() {
		summary = "project updated"
	}
	_, err := fmt.Fprintf(w, "\n%s in %s\n", summary, r.Duration.Round(time.Millisecond))
	return err
}
