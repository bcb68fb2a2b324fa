package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogr_InfoAndDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Logr(New(LevelDebug, FormatJSON, &buf))

	log.Info("visible", "key", "value")
	log.V(1).Info("verbose")

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "visible", entries[0]["message"])
	fields := entries[0]["fields"].(map[string]any)
	assert.Equal(t, "value", fields["key"])

	assert.Equal(t, "DEBUG", entries[1]["level"])
}

func TestLogr_DebugFilteredAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Logr(New(LevelInfo, FormatJSON, &buf))

	log.V(1).Info("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown")
	assert.NotEmpty(t, buf.String())
}

func TestLogr_Error(t *testing.T) {
	var buf bytes.Buffer
	log := Logr(New(LevelInfo, FormatJSON, &buf))

	log.Error(errors.New("boom"), "failed", "attempt", 1)

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 1)

	assert.Equal(t, "ERROR", entries[0]["level"])
	fields := entries[0]["fields"].(map[string]any)
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, float64(1), fields["attempt"])
}

func TestLogr_WithName(t *testing.T) {
	var buf bytes.Buffer
	log := Logr(New(LevelInfo, FormatJSON, &buf))

	log.WithName("server").WithName("codec").Info("named")

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 1)

	fields := entries[0]["fields"].(map[string]any)
	assert.Equal(t, "server.codec", fields["logger"])
}
