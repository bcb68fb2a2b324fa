package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/adriangligor/octoplex/internal/logger"
)

// ReloadCallback is called when the configuration file changes.
// It receives the new configuration and should return an error if the
// reload fails.
type ReloadCallback func(*Config) error

// Watcher watches a configuration file for changes and triggers hot-reload.
type Watcher struct {
	configPath string
	callback   ReloadCallback
	watcher    *fsnotify.Watcher
	done       chan struct{}
	wg         sync.WaitGroup // Ensures watch goroutine exits before Stop returns
}

// NewWatcher creates a new file watcher for the given config file.
func NewWatcher(configPath string, callback ReloadCallback) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Watch the directory instead of the file to handle atomic writes
	// (many editors delete and recreate files on save)
	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &Watcher{
		configPath: absPath,
		callback:   callback,
		watcher:    watcher,
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watch()
}

// Stop stops watching the configuration file and waits for the watch
// goroutine to exit.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
	w.wg.Wait()
}

// watch runs the file watching loop.
func (w *Watcher) watch() {
	defer w.wg.Done()

	logger.Debug("watching configuration file", map[string]any{"path": w.configPath})

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			eventPath, err := filepath.Abs(event.Name)
			if err != nil {
				logger.Debug("failed to resolve event path", map[string]any{"error": err.Error()})
				continue
			}

			if eventPath != w.configPath {
				continue
			}

			// Write and create both matter: create happens on atomic writes
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				logger.Info("configuration file changed, reloading", map[string]any{"path": w.configPath})
				w.handleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", map[string]any{"error": err.Error()})

		case <-w.done:
			return
		}
	}
}

// handleReload loads and validates the new configuration, then calls the
// callback. A broken file leaves the running configuration untouched.
func (w *Watcher) handleReload() {
	cfg, err := LoadConfig(w.configPath)
	if err != nil {
		logger.Warn("failed to reload config", map[string]any{"error": err.Error()})
		return
	}

	validator := NewValidator()
	if errs := validator.ValidateConfig(cfg); len(errs) > 0 {
		logger.Warn("reloaded config is invalid, keeping current configuration",
			map[string]any{"errors": FormatValidationErrors(errs)})
		return
	}

	if err := w.callback(cfg); err != nil {
		logger.Warn("failed to apply reloaded config", map[string]any{"error": err.Error()})
	}
}
