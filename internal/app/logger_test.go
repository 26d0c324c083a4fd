package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn", AppEnv: "staging"}, &buf)

	logger.Info("dropped")
	logger.Warn("cheque bounced", slog.Int64("cheque_id", 9))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "cheque bounced", record["msg"])
	assert.Equal(t, "landbook", record["service"])
	assert.Equal(t, "staging", record["env"])
	assert.Equal(t, float64(9), record["cheque_id"])
	assert.Contains(t, record, "source")
}

func TestLoggerDefaultsToTextAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(nil, &buf)

	logger.Debug("hidden")
	logger.Info("worker started")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"worker started\"")
	assert.Contains(t, out, "env=development")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
