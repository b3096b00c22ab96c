package status

import (
	"sync"

	"github.com/nomis52/dinamicisland/workflow"
)

// Entry is the last reported state of a single step.
type Entry struct {
	// Message is the most recent status text.
	Message string
	// Changed is true once the step has reported a mutation.
	Changed bool
}

// Handler stores step status by step ID. It is safe for concurrent use.
type Handler struct {
	entries map[workflow.StepID]Entry
	mu      sync.RWMutex
}

// NewHandler creates an empty status handler.
func NewHandler() *Handler {
	return &Handler{
		entries: make(map[workflow.StepID]Entry),
	}
}

// Set records the status message for id.
func (h *Handler) Set(id workflow.StepID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entries[id]
	e.Message = message
	h.entries[id] = e
}

// MarkChanged flags id as having mutated the project.
func (h *Handler) MarkChanged(id workflow.StepID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entries[id]
	e.Changed = true
	h.entries[id] = e
}

// Get returns the status message for id.
func (h *Handler) Get(id workflow.StepID) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[id].Message
}

// Entry returns the full entry for id.
func (h *Handler) Entry(id workflow.StepID) Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[id]
}
