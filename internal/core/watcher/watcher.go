// Package watcher reports changes to an explicit set of files. Parent
// directories are watched so that editors replacing a file by rename are
// still seen.
package watcher

import (
	"easierless/internal/shared/observability"
	"easierless/internal/shared/util"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeFiles []glob.Glob
	onChange     func([]string)
	callbackMu   sync.Mutex

	filesMu sync.RWMutex
	files   map[string]struct{}
	dirs    map[string]int
	hashes  map[string]uint64

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer

	startOnce sync.Once
}

func NewWatcher(debounce time.Duration, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledFiles := make([]glob.Glob, 0, len(excludeFiles))
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledFiles = append(compiledFiles, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeFiles: compiledFiles,
		onChange:     onChange,
		files:        make(map[string]struct{}),
		dirs:         make(map[string]int),
		hashes:       make(map[string]uint64),
		pending:      make(map[string]time.Time),
	}, nil
}

// DedupeFilePaths cleans paths, drops blank entries and removes duplicates
// while keeping first-seen order.
func DedupeFilePaths(paths []string) []string {
	trimmed := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return util.DedupePaths(trimmed)
}

// SetFiles replaces the watched file set. Directories no longer needed are
// released; the event loop starts on first use.
func (w *Watcher) SetFiles(paths []string) error {
	next := make(map[string]struct{})
	for _, p := range DedupeFilePaths(paths) {
		if w.shouldExcludeFile(p) {
			continue
		}
		next[p] = struct{}{}
	}

	nextDirs := make(map[string]int)
	for p := range next {
		nextDirs[filepath.Dir(p)]++
	}

	w.filesMu.Lock()
	var firstErr error
	for dir := range nextDirs {
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			slog.Warn("failed to watch directory", "path", dir, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			delete(nextDirs, dir)
		}
	}
	for dir := range w.dirs {
		if _, ok := nextDirs[dir]; ok {
			continue
		}
		if err := w.fsWatcher.Remove(dir); err != nil {
			slog.Debug("failed to unwatch directory", "path", dir, "error", err)
		}
	}
	hashes := make(map[string]uint64, len(next))
	for p := range next {
		if h, ok := w.hashes[p]; ok {
			hashes[p] = h
		} else if h, ok := hashFile(p); ok {
			hashes[p] = h
		}
	}
	w.files = next
	w.dirs = nextDirs
	w.hashes = hashes
	count := len(next)
	w.filesMu.Unlock()

	observability.WatchedFiles.Set(float64(count))
	w.startOnce.Do(func() { go w.run() })
	return firstErr
}

// Files returns the watched set, sorted.
func (w *Watcher) Files() []string {
	w.filesMu.RLock()
	defer w.filesMu.RUnlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Count reports how many files are watched.
func (w *Watcher) Count() int {
	w.filesMu.RLock()
	defer w.filesMu.RUnlock()
	return len(w.files)
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			path := filepath.Clean(event.Name)
			if !w.isWatched(path) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(path)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) isWatched(path string) bool {
	w.filesMu.RLock()
	defer w.filesMu.RUnlock()
	_, ok := w.files[path]
	return ok
}

// contentChanged ignores saves that leave the bytes untouched. A file that
// can no longer be read counts as changed.
func (w *Watcher) contentChanged(path string) bool {
	h, ok := hashFile(path)
	w.filesMu.Lock()
	defer w.filesMu.Unlock()
	if !ok {
		delete(w.hashes, path)
		return true
	}
	if prev, seen := w.hashes[path]; seen && prev == h {
		return false
	}
	w.hashes[path] = h
	return true
}

func hashFile(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	changed := paths[:0]
	for _, path := range paths {
		if w.contentChanged(path) {
			changed = append(changed, path)
		}
	}
	paths = changed

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
