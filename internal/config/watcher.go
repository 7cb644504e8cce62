package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a configuration change event.
type Event struct {
	Path   string
	Config *Config
	Error  error
}

// Watcher monitors a single config file for changes and reloads it.
// Notification settings pick up the new values on the next resolve; the
// listen address and state path only apply at startup.
type Watcher struct {
	loader   *Loader
	path     string
	watcher  *fsnotify.Watcher
	events   chan Event
	debounce time.Duration

	mu      sync.RWMutex
	current *Config
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(loader *Loader, path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		loader:   loader,
		path:     path,
		watcher:  fsWatcher,
		events:   make(chan Event, 10),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Events returns the channel that receives config change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start loads the config once, then begins watching its directory.
// Watching the directory instead of the file survives editors that
// replace the file on save.
func (w *Watcher) Start(ctx context.Context) error {
	cfg, err := w.loader.LoadAndValidate(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the watcher and cleans up resources.
func (w *Watcher) Stop() error {
	close(w.events)
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	// Debounce so editors that write in several syscalls produce one reload.
	var pendingAt time.Time
	pending := false
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pendingAt = time.Now()
				pending = true
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.events <- Event{Error: err}

		case <-ticker.C:
			if pending && time.Since(pendingAt) >= w.debounce {
				pending = false
				w.reload()
			}
		}
	}
}

func (w *Watcher) isConfigFile(name string) bool {
	return filepath.Clean(name) == filepath.Clean(w.path) ||
		strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) ==
			strings.TrimSuffix(filepath.Base(w.path), filepath.Ext(w.path))
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadAndValidate(w.path)
	if err != nil {
		w.events <- Event{
			Path:  w.path,
			Error: fmt.Errorf("failed to reload config %s: %w", w.path, err),
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.events <- Event{
		Path:   w.path,
		Config: cfg,
	}
}
