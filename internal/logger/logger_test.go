package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("info level drops debug records", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, false)

		log.Debug("hidden")
		log.Info("request handled", slog.String("path", "/api/health"), slog.Int("status", 200))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "request handled", entry["msg"])
		assert.Equal(t, "/api/health", entry["path"])
		assert.Equal(t, float64(200), entry["status"])
		assert.Equal(t, "INFO", entry["level"])
		assert.Contains(t, entry, "time")
	})

	t.Run("debug level keeps debug records", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, true)

		log.Debug("polling outbox")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "DEBUG", entry["level"])
	})
}

// TestInitJSONLogger_OutputFormat verifies that InitJSONLogger installs a JSON default logger on stdout.
func TestInitJSONLogger_OutputFormat(t *testing.T) {
	oldStdout := os.Stdout
	oldDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	InitJSONLogger(false)
	slog.Info("test initialization", slog.String("service", "test"), slog.Int("port", 8080))

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "test initialization", entry["msg"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, float64(8080), entry["port"])
}
