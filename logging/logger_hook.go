package logging

import (
	"log/slog"
)

// LoggerHook creates step-specific loggers by wrapping a base logger.
type LoggerHook interface {
	// LoggerForStep wraps the base logger to create a logger for one workflow step.
	LoggerForStep(baseLogger *slog.Logger, stepID string) *slog.Logger
}

// CapturingLoggerHook creates loggers that capture logs via CapturingHandler.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook that captures all step logs into collector.
func NewCapturingLoggerHook(collector *LogCollector) LoggerHook {
	return &CapturingLoggerHook{
		collector: collector,
	}
}

// LoggerForStep returns a logger whose records are tagged with stepID and
// stored in the collector before being passed to the base logger's handler.
func (p *CapturingLoggerHook) LoggerForStep(baseLogger *slog.Logger, stepID string) *slog.Logger {
	return slog.New(NewCapturingHandler(baseLogger.Handler(), p.collector, stepID))
}
