package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events a single file save produces.
const reloadDelay = 500 * time.Millisecond

// Watcher reloads the neural session when the local model file changes.
type Watcher struct {
	neural  *Neural
	path    string
	watcher *fsnotify.Watcher
}

// NewWatcher watches a local model file. The parent directory is watched so
// that atomic replacements are seen.
func NewWatcher(neural *Neural, modelPath string) (*Watcher, error) {
	if IsRemote(modelPath) {
		return nil, fmt.Errorf("cannot watch remote model %s", modelPath)
	}
	abs, err := filepath.Abs(modelPath)
	if err != nil {
		return nil, fmt.Errorf("resolve model path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{neural: neural, path: abs, watcher: fw}, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Model watcher error", "error", err)
		case <-fire:
			fire = nil
			slog.Info("Model file changed, reloading", "path", w.path)
			if err := w.neural.Reload(ctx, w.path); err != nil {
				slog.Warn("Model reload failed", "path", w.path, "error", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if name != w.path && name != WeightsPath(w.path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
