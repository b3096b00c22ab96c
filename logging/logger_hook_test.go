package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingLoggerHook_LoggerForStep(t *testing.T) {
	baseLogger := slog.New(slog.NewJSONHandler(bytes.NewBuffer(nil), nil))
	collector := NewLogCollector()
	hook := NewCapturingLoggerHook(collector)

	first := hook.LoggerForStep(baseLogger, "scaffold.StageArtifacts")
	second := hook.LoggerForStep(baseLogger, "scaffold.SaveProject")
	assert.NotSame(t, first, second)

	first.Info("copied", "file", "DinamicIslandWidget.swift")
	second.Warn("project unchanged")
	second.Info("done")

	require.Len(t, collector.GetLogs("scaffold.StageArtifacts"), 1)
	require.Len(t, collector.GetLogs("scaffold.SaveProject"), 2)
	assert.Equal(t, []string{"project unchanged"}, collector.Warnings("scaffold.SaveProject"))
}

func TestCapturingLoggerHook_ReuseStepID(t *testing.T) {
	baseLogger := slog.New(slog.NewJSONHandler(bytes.NewBuffer(nil), nil))
	collector := NewLogCollector()
	hook := NewCapturingLoggerHook(collector)

	hook.LoggerForStep(baseLogger, "same").Info("one")
	hook.LoggerForStep(baseLogger, "same").Info("two")

	logs := collector.GetLogs("same")
	require.Len(t, logs, 2)
	assert.Equal(t, "one", logs[0].Message)
	assert.Equal(t, "two", logs[1].Message)
}
