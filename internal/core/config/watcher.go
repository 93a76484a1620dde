package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the write bursts editors produce on save.
const DefaultWatchDebounce = 100 * time.Millisecond

// Watcher reloads a config file after it changes on disk and hands every
// valid, content-changed version to onChange. Invalid edits are logged and
// the previous config stays in effect.
type Watcher struct {
	path     string
	onChange func(*Config)
	Debounce time.Duration

	lastHash uint64
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWatcher(path string, onChange func(*Config)) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		Debounce: DefaultWatchDebounce,
		stop:     make(chan struct{}),
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.lastHash = xxhash.Sum64(data)
	}
	return w
}

// Start watches the file's directory so atomic saves that replace the file
// are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()
		w.loop(ctx, fsw)
	}()
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	slog.Debug("config watcher started", "path", w.path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Remove) {
				slog.Warn("config file removed; keeping the last loaded config", "path", w.path)
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.Debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-timer.C:
			w.reload()
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Debug("config not readable after change", "path", w.path, "error", err)
		return
	}
	sum := xxhash.Sum64(data)
	if sum == w.lastHash {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("ignoring invalid config edit", "path", w.path, "error", err)
		return
	}
	w.lastHash = sum
	slog.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
