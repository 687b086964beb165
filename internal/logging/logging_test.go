package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "info", "json")).Info("count recorded", "line_id", 7)
	assert.Contains(t, buf.String(), `"line_id":7`)

	buf.Reset()
	slog.New(newHandler(&buf, "info", "text")).Info("count recorded", "line_id", 7)
	assert.Contains(t, buf.String(), "line_id=7")

	buf.Reset()
	h := newHandler(&buf, "warn", "json")
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewWritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "stockcount.log")
	logger, cleanup, err := New("info", "json", path)
	require.NoError(t, err)

	logger.Info("session finalized", "session_id", 3)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":3`)
}
