// Package watcher reports debounced changes to a set of files.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/speakeasy-api/refbundle/internal/utils"
)

// Watcher calls onChange with the tracked files that changed once no further change arrived for the
// debounce duration. Directories are watched rather than files so that editors replacing a file on
// save are still noticed.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	onChange   func([]string)
	callbackMu sync.Mutex
	logger     *slog.Logger

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	pending map[string]time.Time
	timer   *time.Timer
}

// New creates a Watcher. Nothing is watched until SetFiles is called.
func New(debounce time.Duration, logger *slog.Logger, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		onChange:  onChange,
		logger:    logger,
		files:     map[string]bool{},
		dirs:      map[string]bool{},
		pending:   map[string]time.Time{},
	}
	go w.run()

	return w, nil
}

// SetFiles replaces the tracked files. URLs are skipped, directories no longer holding a tracked file
// stop being watched.
func (w *Watcher) SetFiles(files []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tracked := map[string]bool{}
	dirs := map[string]bool{}
	for _, f := range files {
		if utils.IsAbsoluteURL(f) {
			continue
		}
		abs, err := filepath.Abs(filepath.FromSlash(f))
		if err != nil {
			return err
		}
		tracked[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		w.logger.Debug("watching directory", "dir", dir)
	}
	for dir := range w.dirs {
		if !dirs[dir] {
			_ = w.fsWatcher.Remove(dir)
		}
	}

	w.files = tracked
	w.dirs = dirs
	return nil
}

// Files returns the tracked files, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleChange(filepath.Clean(event.Name))

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[path] {
		return
	}
	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = map[string]time.Time{}
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	slices.Sort(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

// Close stops watching. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}
