package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Production_JSONHandler(t *testing.T) {
	logger := NewLogger("production", "")
	require.NotNil(t, logger)

	_, ok := logger.Handler().(*slog.JSONHandler)
	assert.True(t, ok, "production logger should use JSONHandler, got %T", logger.Handler())
}

func TestNewLogger_Development_TextHandler(t *testing.T) {
	logger := NewLogger("development", "")
	require.NotNil(t, logger)

	_, ok := logger.Handler().(*slog.TextHandler)
	assert.True(t, ok, "development logger should use TextHandler, got %T", logger.Handler())
}

func TestNewLogger_UnknownEnv_TextHandler(t *testing.T) {
	logger := NewLogger("staging", "")

	_, ok := logger.Handler().(*slog.TextHandler)
	assert.True(t, ok, "unknown env logger should use TextHandler, got %T", logger.Handler())
}

func TestNewLogger_Production_InfoLevel(t *testing.T) {
	logger := NewLogger("production", "")
	ctx := context.Background()
	assert.True(t, logger.Handler().Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(ctx, slog.LevelDebug))
}

func TestNewLogger_Development_DebugLevel(t *testing.T) {
	logger := NewLogger("development", "")
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLogger_LevelOverride(t *testing.T) {
	logger := NewLogger("development", "warn")
	ctx := context.Background()
	assert.False(t, logger.Handler().Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Handler().Enabled(ctx, slog.LevelWarn))
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "")
	logger.Info("login done", slog.String("blog", "https://blog.example.com"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "login done", line["msg"])
	assert.Equal(t, "https://blog.example.com", line["blog"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warning ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseLevel(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.in)
	}
}
