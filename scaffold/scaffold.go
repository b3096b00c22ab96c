package scaffold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/logging"
	"github.com/nomis52/dinamicisland/metrics"
	"github.com/nomis52/dinamicisland/status"
	"github.com/nomis52/dinamicisland/workflow"
)

// Option configures a scaffold run.
type Option func(*options)

type options struct {
	loggerFactory workflow.Factory[*slog.Logger]
	statusHandler *status.Handler
	collector     *logging.LogCollector
	registry      metrics.Registry
	now           func() time.Time
}

// WithLoggerFactory sets a factory for step-specific loggers.
func WithLoggerFactory(factory workflow.Factory[*slog.Logger]) Option {
	return func(o *options) {
		o.loggerFactory = factory
	}
}

// WithStatusHandler sets the handler step status lines report to.
// If not provided, Run creates one.
func WithStatusHandler(h *status.Handler) Option {
	return func(o *options) {
		o.statusHandler = h
	}
}

// WithLogCollector captures every step's log records so the report can show
// the logs of failed steps.
func WithLogCollector(c *logging.LogCollector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithMetricsRegistry records run metrics in registry.
// If not provided, no metrics are recorded.
func WithMetricsRegistry(registry metrics.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

func newOptions(logger *slog.Logger, opts []Option) *options {
	o := &options{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.statusHandler == nil {
		o.statusHandler = status.NewHandler()
	}
	if o.loggerFactory == nil {
		if o.collector != nil {
			hook := logging.NewCapturingLoggerHook(o.collector)
			o.loggerFactory = func(id workflow.StepID) *slog.Logger {
				return hook.LoggerForStep(logger, id.ShortString())
			}
		} else {
			o.loggerFactory = workflow.Shared(logger)
		}
	}
	return o
}

// NewWorkflow creates the scaffolding workflow for cfg.
func NewWorkflow(cfg *config.Config, logger *slog.Logger, opts ...Option) (workflow.Workflow, error) {
	o, _, err := newWorkflow(cfg, logger, newOptions(logger, opts))
	return o, err
}

func newWorkflow(cfg *config.Config, logger *slog.Logger, opts *options) (*workflow.Orchestrator, []workflow.Step, error) {
	o := workflow.NewOrchestrator(
		workflow.WithConfig(cfg),
		workflow.WithLogger(logger),
	)

	workflow.Provide(o, opts.loggerFactory)
	workflow.Provide(o, func(id workflow.StepID) *status.Line {
		return status.NewLine(id, opts.loggerFactory(id), opts.statusHandler)
	})

	steps := []workflow.Step{
		&CheckPreconditions{},
		&ProvisionDirectory{},
		&StageArtifacts{},
		&SynthesizeManifest{},
		&LocateTarget{},
		&CreateTarget{},
		&AttachSharedSource{},
		&PropagateBuildSettings{},
		&ConfigureEntitlements{},
		&ConfigureInfoPlist{},
		&SaveProject{},
	}
	if err := o.AddStep(steps...); err != nil {
		return nil, nil, fmt.Errorf("failed to add steps: %w", err)
	}
	return o, steps, nil
}

// Run scaffolds the project described by cfg. The report is returned even
// when the run fails, unless the workflow could not be built at all.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Report, error) {
	o := newOptions(logger, opts)
	wf, steps, err := newWorkflow(cfg, logger, o)
	if err != nil {
		return nil, err
	}

	if cfg.Scaffold.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scaffold.Timeout)
		defer cancel()
	}

	start := o.now()
	runErr := wf.Execute(ctx)
	report := newReport(steps, wf.GetAllResults(), o.statusHandler, o.collector)
	report.Duration = o.now().Sub(start)

	if o.registry != nil {
		if err := recordMetrics(o.registry, report, start); err != nil {
			logger.Warn("failed to record scaffold metrics", "error", err)
		}
	}

	if runErr != nil {
		return report, fmt.Errorf("scaffold failed: %w", runErr)
	}
	return report, nil
}

// IsPrecondition reports whether err was caused by an unmet precondition.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
