package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := New(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer c.Close()

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Str("run", "abc").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "abc", entry["run"])
	assert.Equal(t, "shown", entry["message"])
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "distill.log")

	var buf bytes.Buffer
	l, c, err := New(LogConfig{Level: "debug", Format: "json", File: path}, &buf)
	require.NoError(t, err)

	l.Debug().Msg("to both")
	require.NoError(t, c.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestNewWithInvalidFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, _, err := New(LogConfig{File: filepath.Join(blocker, "x.log")}, nil)
	assert.Error(t, err)
}

func TestInitAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.log")
	require.NoError(t, Init(LogConfig{Level: "info", Format: "json", File: path}))

	Info().Msg("global message")
	require.NoError(t, Close())
	assert.NoError(t, Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "global message")
}

func TestGetWithoutInit(t *testing.T) {
	mu.Lock()
	initialized = false
	mu.Unlock()

	assert.NotNil(t, Get())
}
