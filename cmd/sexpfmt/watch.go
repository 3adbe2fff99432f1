package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Wait for rapid writes to a file to settle before formatting it.
const watchDebounce = 100 * time.Millisecond

// watcher re-formats files in place when they change on disk.
type watcher struct {
	app      *app
	fs       *fsnotify.Watcher
	files    map[string]bool // absolute paths being formatted
	debounce time.Duration

	pending map[string]*time.Timer
	ready   chan string
}

func newWatcher(a *app, paths []string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		app:      a,
		fs:       fsw,
		files:    make(map[string]bool),
		debounce: watchDebounce,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string),
	}

	// Editors often replace files instead of writing them, so watch the
	// directories and filter events by name.
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		a.logInfo("watching %s", dir)
	}
	return w, nil
}

// watch formats paths whenever they are written until ctx is done.
func (a *app) watch(ctx context.Context, paths []string) error {
	w, err := newWatcher(a, paths)
	if err != nil {
		return err
	}
	defer w.close()
	return w.run(ctx)
}

func (w *watcher) close() error {
	for _, t := range w.pending {
		t.Stop()
	}
	return w.fs.Close()
}

func (w *watcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if path, ok := w.track(event); ok {
				w.schedule(ctx, path)
			}

		case path := <-w.ready:
			delete(w.pending, path)
			w.reformat(path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.app.logError("watcher error: %v", err)
		}
	}
}

// track returns the absolute path of the file behind event if it is one of
// the watched files and its content may have changed.
func (w *watcher) track(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil || !w.files[abs] {
		return "", false
	}
	return abs, true
}

// schedule formats path once no event for it arrived for w.debounce.
func (w *watcher) schedule(ctx context.Context, path string) {
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

// reformat formats path in place. Rewriting the file triggers another event,
// which finds the file already formatted and leaves it alone.
func (w *watcher) reformat(path string) {
	_ = w.app.reportWrite(w.app.formatFile(path, true))
}
