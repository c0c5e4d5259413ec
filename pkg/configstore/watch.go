package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a changed file is reloaded.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the store's current file when it changes on disk.
// The directory is watched rather than the file so that editors which
// save by rename keep triggering reloads.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	debounce *Debouncer

	// OnReload, if set, is called after every reload attempt.
	OnReload func(*Snapshot, error)
}

// NewWatcher creates a watcher for store. A zero interval selects
// DefaultDebounce.
func NewWatcher(store *Store, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:    store,
		logger:   logger.WithGroup("watch"),
		debounce: NewDebouncer(interval),
	}
}

// Watch blocks until ctx is cancelled, reloading the current file after
// each burst of changes. The file watched is the one current when Watch
// starts; changes are ignored once another file has been loaded.
func (w *Watcher) Watch(ctx context.Context) error {
	cur := w.store.Current()
	if cur == nil {
		return ErrNoDocument
	}
	if cur.Path == "-" {
		return fmt.Errorf("watch: standard input cannot be watched")
	}
	path, err := filepath.Abs(cur.Path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	defer w.debounce.Stop()

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}
	w.logger.Info("watching file", "path", path, "debounce", w.debounce.interval)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevant(event, path) {
				continue
			}
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() { w.reload(cur.Path) })

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(watched string) {
	if cur := w.store.Current(); cur == nil || cur.Path != watched {
		w.logger.Debug("skipping reload, file no longer current", "path", watched)
		return
	}
	snap, err := w.store.Reload()
	if err != nil {
		w.logger.Error("reload failed", "error", err)
	} else {
		w.logger.Info("reloaded", "path", snap.Path, "lines", snap.Doc.Len(),
			"diagnostics", len(snap.Doc.Diagnostics))
	}
	if w.OnReload != nil {
		w.OnReload(snap, err)
	}
}

// relevant reports whether event changes the file at path. Removal is
// ignored; the rename or create that follows it triggers the reload.
func relevant(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Debouncer collects rapid events and runs the callback once after a quiet
// period.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger (re)starts the quiet period; callback runs when it ends without
// another Trigger.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			callback()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
