package scaffold

import (
	"time"

	"github.com/nomis52/dinamicisland/metrics"
	"github.com/nomis52/dinamicisland/workflow"
	"github.com/prometheus/client_golang/prometheus"
)

// recordMetrics publishes the outcome of a run. Push registries are flushed
// by the caller.
func recordMetrics(registry metrics.Registry, r *Report, start time.Time) error {
	runs, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "scaffold_runs_total",
		Help: "Scaffold runs by outcome.",
	}, []string{"outcome"})
	if err != nil {
		return err
	}
	lastRun, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "scaffold_last_run_timestamp_seconds",
		Help: "Unix time the last scaffold run started.",
	})
	if err != nil {
		return err
	}
	duration, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "scaffold_duration_seconds",
		Help: "Wall time of the last scaffold run.",
	})
	if err != nil {
		return err
	}
	changed, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "scaffold_changed",
		Help: "1 if the last run modified the project.",
	})
	if err != nil {
		return err
	}
	stepOK, err := registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scaffold_step_success",
		Help: "1 if the step completed without error in the last run.",
	}, []string{"step"})
	if err != nil {
		return err
	}

	outcome := "success"
	if !r.Succeeded() {
		outcome = "failure"
	}
	runs.With(prometheus.Labels{"outcome": outcome}).Inc()
	lastRun.Set(float64(start.Unix()))
	duration.Set(r.Duration.Seconds())
	changed.Set(boolValue(r.Changed()))
	for _, s := range r.Steps {
		stepOK.With(prometheus.Labels{"step": s.ID.Type}).Set(boolValue(s.State == workflow.Completed && s.Err == nil))
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
