package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"0", slog.LevelError},
		{"1", slog.LevelWarn},
		{"2", slog.LevelInfo},
		{"3", slog.LevelDebug},
		{"", slog.LevelInfo},        // Default
		{"invalid", slog.LevelInfo}, // Default
		{"99", slog.LevelInfo},      // Default
		{"-1", slog.LevelInfo},      // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		ok       bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	originalLevel := logLevel.Level()
	defer logLevel.Set(originalLevel)

	SetLogLevel(slog.LevelDebug)
	assert.Equal(t, slog.LevelDebug, logLevel.Level())

	SetLogLevel(slog.LevelError)
	assert.Equal(t, slog.LevelError, logLevel.Level())
}

func TestNewSharesGlobalLevel(t *testing.T) {
	originalLevel := logLevel.Level()
	defer logLevel.Set(originalLevel)

	var buf bytes.Buffer
	l := New(&buf)

	SetLogLevel(slog.LevelWarn)
	l.Info("hidden")
	assert.Empty(t, buf.String())

	SetLogLevel(slog.LevelDebug)
	l.Debug("shown", "tool", "send_message")
	assert.Contains(t, buf.String(), "tool=send_message")
}

func TestLogger(t *testing.T) {
	require.NotNil(t, Logger())
	assert.Equal(t, Logger(), Logger())
}
