package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watcher reloads a config file when it changes and hands every valid
// result to the registered callbacks. Invalid edits are logged and the
// previous config is kept.
type Watcher struct {
	path    string
	log     *slog.Logger
	fs      *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	current *Config
	subs    []func(*Config)
}

// Watch loads path and starts watching it. The directory is watched so
// that editors which replace the file are seen.
func Watch(ctx context.Context, path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{path: path, log: log, fs: fw, cancel: cancel, done: make(chan struct{}), current: cfg}
	go w.loop(ctx)
	return w, nil
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, cb)
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	<-w.done
	return w.fs.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "path", w.path, "err", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed, keeping previous", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	subs := append([]func(*Config){}, w.subs...)
	w.mu.Unlock()

	w.log.Info("configuration reloaded", "path", w.path)
	for _, cb := range subs {
		cb(cfg)
	}
}
