package logging

import (
	"sync"
	"time"
)

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"`
}

// LogCollector provides thread-safe storage for step logs.
type LogCollector struct {
	mu   sync.RWMutex
	logs map[string][]LogEntry // stepID -> entries
}

// NewLogCollector creates a new LogCollector.
func NewLogCollector() *LogCollector {
	return &LogCollector{
		logs: make(map[string][]LogEntry),
	}
}

// AddLog adds a log entry for the specified step.
func (c *LogCollector) AddLog(stepID string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs[stepID] = append(c.logs[stepID], entry)
}

// GetLogs returns a copy of the entries recorded for stepID, or nil.
func (c *LogCollector) GetLogs(stepID string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[stepID]
	if !exists {
		return nil
	}

	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// Warnings returns the messages of every WARN or ERROR entry for stepID.
// The scaffold report prints these beneath each step's status line.
func (c *LogCollector) Warnings(stepID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, e := range c.logs[stepID] {
		if e.Level == "WARN" || e.Level == "ERROR" {
			out = append(out, e.Message)
		}
	}
	return out
}
