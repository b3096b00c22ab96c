package status

import (
	"log/slog"

	"github.com/nomis52/dinamicisland/workflow"
)

// Line logs status with step context and forwards it to a Handler.
type Line struct {
	logger  *slog.Logger
	handler *Handler
	id      workflow.StepID
}

// NewLine creates a status line bound to a step. handler may be nil, in which
// case updates are only logged.
func NewLine(id workflow.StepID, logger *slog.Logger, handler *Handler) *Line {
	return &Line{
		logger:  logger,
		handler: handler,
		id:      id,
	}
}

// Set logs the status and stores it.
func (l *Line) Set(message string) {
	l.logger.Info(message, "step", l.id.ShortString())
	if l.handler != nil {
		l.handler.Set(l.id, message)
	}
}

// Changed records that the step mutated something, then sets message.
func (l *Line) Changed(message string) {
	if l.handler != nil {
		l.handler.MarkChanged(l.id)
	}
	l.Set(message)
}

// Capture runs f and, if it fails, sets the error as the step's status.
//
//	func (s *CreateTarget) Execute(ctx context.Context) error {
//	    return status.Capture(s.Status, func() error {
//	        ...
//	    })
//	}
func Capture(line *Line, f func() error) error {
	err := f()
	if err != nil && line != nil {
		line.Set("❌ " + err.Error())
	}
	return err
}
