package httplog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func sampleEntry() Entry {
	return Entry{
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		RequestID: "req-123",
		Remote:    "127.0.0.1:54321",
		Method:    "POST",
		Path:      "/multiplex",
		Status:    200,
		BatchSize: 3,
		Failures:  1,
		LatencyMs: 57,
	}
}

func TestLogger_RecordWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Record(sampleEntry())

	line := strings.TrimSpace(buf.String())
	assert.Equal(t, "req-123", gjson.Get(line, "request_id").String())
	assert.Equal(t, "POST", gjson.Get(line, "method").String())
	assert.Equal(t, "/multiplex", gjson.Get(line, "path").String())
	assert.Equal(t, int64(200), gjson.Get(line, "status").Int())
	assert.Equal(t, int64(3), gjson.Get(line, "batch_size").Int())
	assert.Equal(t, int64(1), gjson.Get(line, "failures").Int())
	assert.Equal(t, int64(57), gjson.Get(line, "latency_ms").Int())
	assert.False(t, gjson.Get(line, "error").Exists(), "empty error must be omitted")
}

func TestLogger_RecordMultipleLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Record(sampleEntry())
	l.Record(sampleEntry())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")

	l, err := NewLogger(path)
	require.NoError(t, err)

	l.Record(sampleEntry())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "req-123")
}

func TestLogger_FileAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")

	l1, err := NewLogger(path)
	require.NoError(t, err)
	l1.Record(sampleEntry())
	require.NoError(t, l1.Close())

	l2, err := NewLogger(path)
	require.NoError(t, err)
	l2.Record(sampleEntry())
	require.NoError(t, l2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "reopening the log must append, not truncate")
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	l := NewWriterLogger(&bytes.Buffer{})
	assert.NoError(t, l.Close())
}
