package bootstrap

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_CloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "crm-trigger", slog.LevelInfo)

	logger.With("component", "salesforce").Info("Record fetched", "record_id", "001")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[salesforce] Record fetched", entry["message"])
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "crm-trigger", entry["service"])
	assert.Equal(t, "salesforce", entry["component"])
	assert.Equal(t, "001", entry["record_id"])
}

func TestNewLoggerTo_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "crm-trigger", ParseLevel("warn"))

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), `"severity":"WARN"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
