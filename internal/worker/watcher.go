package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// dataWatcher calls onChange once the data directory has been quiet for
// the debounce window after a JSON file changed.
type dataWatcher struct {
	dir      string
	debounce time.Duration
	logger   *zap.SugaredLogger
	onChange func()
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

func newDataWatcher(dir string, debounce time.Duration, logger *zap.SugaredLogger, onChange func()) (*dataWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir = filepath.Clean(dir)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &dataWatcher{
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		watcher:  w,
	}, nil
}

func (w *dataWatcher) run(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debugw("Data file changed", "path", event.Name, "op", event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Data watcher error", "dir", w.dir, "error", err)

		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		}
	}
}

func (w *dataWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *dataWatcher) close() {
	if err := w.watcher.Close(); err != nil {
		w.logger.Warnw("Failed to close data watcher", "error", err)
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
