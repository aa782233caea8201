// Package watcher watches corpus directories and triggers rebuilds on change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce absorbs editor save bursts and bulk copies; the corpus is
// rebuilt once per quiet period, not once per file event.
const defaultDebounce = 2 * time.Second

// Watcher watches corpus directories with fsnotify and invokes a single
// callback after changes settle. Ingestion is always a full rebuild, so all
// events collapse into one debounced trigger.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	onChange   func()
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	timer      *time.Timer
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the settle period before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over roots. onChange is called once per
// settled burst of changes to files matching extensions (empty = all files).
func NewWatcher(roots []string, extensions []string, recursive bool, onChange func(), logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		onChange:   onChange,
		debounce:   defaultDebounce,
		done:       make(chan struct{}),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
	)
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and cancels any pending trigger.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Unlock()
	})
}

// Directories returns the watched root directories.
func (w *Watcher) Directories() []string {
	out := make([]string, len(w.roots))
	copy(out, w.roots)
	return out
}

func (w *Watcher) addRootLocked(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(abs); err != nil {
		return err
	}
	if !w.recursive {
		return nil
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() && path != abs {
			_ = w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	// New subdirectories need their own watch before their files produce events.
	if ev.Op&fsnotify.Create != 0 && w.recursive {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				_ = w.watcher.Add(path)
			}
			w.mu.Unlock()
			w.scheduleRebuild(path)
			return
		}
	}
	if !w.matchExtension(path) {
		return
	}
	w.logger.Debug("corpus change", zap.String("op", ev.Op.String()), zap.String("path", path))
	w.scheduleRebuild(path)
}

// scheduleRebuild resets the debounce timer; onChange fires once events stop
// arriving for the settle period.
func (w *Watcher) scheduleRebuild(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Info("corpus changed, triggering rebuild", zap.String("trigger", path))
		w.onChange()
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range w.extensions {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}
