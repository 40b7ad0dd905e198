package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for name, want := range tests {
		require.Equal(t, want, ParseLevel(name), "level %q", name)
	}
}

func TestNewWithWriterFiltersAndTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewWithWriter(&buf, slog.LevelInfo), "api")

	logger.Debug("hidden")
	logger.Warn("request failed", "error", errors.New("boom"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "request failed")
	require.Contains(t, out, "component=api")
	require.Contains(t, out, "boom")
	require.NotContains(t, out, "\x1b[", "buffers are not terminals")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lazyticket.log")

	logger, closer, err := New(Options{Level: "debug", Path: path})
	require.NoError(t, err)
	logger.Debug("started", "version", "dev")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "started"))
}

func TestNewEmptyPathDiscards(t *testing.T) {
	logger, closer, err := New(Options{})
	require.NoError(t, err)
	logger.Info("nowhere")
	require.NoError(t, closer.Close())
}
