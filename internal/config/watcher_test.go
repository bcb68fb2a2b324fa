package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".octoplex.yaml")
	writeConfigFile(t, path, "limits:\n  maxBatchSize: 10\n")

	reloaded := make(chan *Config, 1)
	watcher, err := NewWatcher(path, func(cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	watcher.Start()
	defer watcher.Stop()

	// Give the watch goroutine a moment to come up before writing
	time.Sleep(100 * time.Millisecond)

	writeConfigFile(t, path, "limits:\n  maxBatchSize: 25\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 25, cfg.GetMaxBatchSize())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func TestWatcher_IgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".octoplex.yaml")
	writeConfigFile(t, path, "limits:\n  maxBatchSize: 10\n")

	reloaded := make(chan *Config, 1)
	watcher, err := NewWatcher(path, func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})
	require.NoError(t, err)

	watcher.Start()
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)

	// A config that fails validation must not reach the callback
	writeConfigFile(t, path, "limits:\n  maxBatchSize: -5\n")

	select {
	case <-reloaded:
		t.Fatal("invalid config must not trigger the reload callback")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".octoplex.yaml")
	writeConfigFile(t, path, "limits:\n  maxBatchSize: 10\n")

	reloaded := make(chan *Config, 1)
	watcher, err := NewWatcher(path, func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})
	require.NoError(t, err)

	watcher.Start()
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)

	writeConfigFile(t, filepath.Join(dir, "unrelated.yaml"), "whatever: true\n")

	select {
	case <-reloaded:
		t.Fatal("changes to unrelated files must not trigger a reload")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_StopImmediatelyAfterStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".octoplex.yaml")
	writeConfigFile(t, path, "listen: \":8080\"\n")

	watcher, err := NewWatcher(path, func(*Config) error { return nil })
	require.NoError(t, err)

	watcher.Start()
	watcher.Stop() // must not hang or panic
}
