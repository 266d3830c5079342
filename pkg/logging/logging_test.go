package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for value, want := range tests {
		t.Setenv("LOG_LEVEL", value)
		assert.Equal(t, want, LevelFromEnv(), "LOG_LEVEL=%q", value)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.Debug("hidden")
	logger.Info("Entry committed", "payer", "A", "total", 60.0)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Entry committed", rec["msg"])
	assert.Equal(t, "A", rec["payer"])
	assert.Equal(t, 60.0, rec["total"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, "")

	logger.Info("hidden")
	logger.Warn("Pending operation replaced", "user_id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Pending operation replaced")
	assert.Contains(t, out, "user_id=7")
	assert.NotContains(t, out, "\x1b[", "no color codes when not a terminal")
}
