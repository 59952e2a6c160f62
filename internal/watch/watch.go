// Package watch regenerates declarations when model or service files change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/logger"
)

// DebouncePeriod collapses bursts of editor writes into one regeneration.
const DebouncePeriod = 300 * time.Millisecond

// RegenerateFunc is called after a debounced batch of changes. It receives
// the changed paths, sorted.
type RegenerateFunc func(ctx context.Context, changed []string) error

// Watcher watches source directories for JavaScript file changes.
type Watcher struct {
	watcher        *fsnotify.Watcher
	regenerate     RegenerateFunc
	log            *zap.SugaredLogger
	debouncePeriod time.Duration

	mu            sync.Mutex
	pending       map[string]bool
	debounceTimer *time.Timer

	runMu sync.Mutex
}

// New watches every existing directory in dirs, recursively. Missing
// directories are skipped.
func New(dirs []string, regenerate RegenerateFunc, log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = logger.ComponentLogger("watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		watcher:        fw,
		regenerate:     regenerate,
		log:            log,
		debouncePeriod: DebouncePeriod,
		pending:        make(map[string]bool),
	}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "node_modules" && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		w.log.Debugw("Watching directory", "dir", path)
		return nil
	})
}

// Watched lists the directories currently watched.
func (w *Watcher) Watched() []string {
	return w.watcher.WatchList()
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warnw("Failed to watch new directory", "dir", event.Name, logger.FieldError, err)
			}
			return
		}
	}
	if !IsSourceEvent(event) {
		return
	}
	w.log.Debugw("Source change detected", logger.FieldFile, event.Name, "op", event.Op.String())
	w.schedule(ctx, event.Name)
}

// IsSourceEvent reports whether event touches a JavaScript source in a way
// that can change its declarations.
func IsSourceEvent(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".js" || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// schedule records path and restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		w.flush(ctx)
	})
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(changed) == 0 || ctx.Err() != nil {
		return
	}
	sort.Strings(changed)

	// one regeneration at a time
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if err := w.regenerate(ctx, changed); err != nil {
		w.log.Errorw("Regeneration failed", logger.FieldError, err)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
