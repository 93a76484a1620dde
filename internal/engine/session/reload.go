package session

import (
	"context"
	"easierless/internal/core/errors"
	"easierless/internal/core/ports"
	"easierless/internal/core/watcher"
	"easierless/internal/data/cache"
	"easierless/internal/engine/imports"
	"easierless/internal/engine/loader"
	"easierless/internal/engine/symbols"
	"easierless/internal/shared/observability"
	"easierless/internal/shared/util"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reload trigger labels.
const (
	TriggerStartup = "startup"
	TriggerConfig  = "config"
	TriggerWatch   = "watch"
	TriggerManual  = "manual"
	TriggerStress  = "stress"
)

// Reload rebuilds the index. When a reload is already running the request is
// folded into a single pending rerun and Reload waits for it to finish.
// In-flight reloads are never cancelled; ctx only bounds the wait.
func (s *Session) Reload(ctx context.Context, trigger string) error {
	s.reloadMu.Lock()
	if s.running {
		s.pending = true
		observability.ReloadsCoalescedTotal.Inc()
		idle := s.idle
		s.reloadMu.Unlock()
		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.running = true
	s.idle = make(chan struct{})
	s.reloadMu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	var firstErr error
	for {
		if _, err := s.reloadOnce(runCtx, trigger); err != nil && firstErr == nil {
			firstErr = err
		}

		s.reloadMu.Lock()
		if s.pending {
			s.pending = false
			s.reloadMu.Unlock()
			continue
		}
		s.running = false
		close(s.idle)
		s.reloadMu.Unlock()
		return firstErr
	}
}

// Idle returns a channel closed once no reload is running.
func (s *Session) Idle() <-chan struct{} {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	if !s.running {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.idle
}

// reloadOnce builds and publishes one generation. An extraction failure
// still publishes an empty index and is returned as a recoverable error.
func (s *Session) reloadOnce(ctx context.Context, trigger string) (gen *Generation, err error) {
	ctx, span := observability.Tracer.Start(ctx, "session.Reload", trace.WithAttributes(
		attribute.String("trigger", trigger),
	))
	defer span.End()
	start := time.Now()

	aliases := s.Aliases(ctx)
	analyzer := imports.NewAnalyzer(s.opts.WorkspaceRoot, aliases, s.opts.DefaultExtension)
	roots := s.ResolveRoots(aliases)

	records, err := loader.New(s.deps.FS, analyzer).Load(ctx, roots)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load import graph: %w", err)
	}

	table, extractErr := s.extractSafely(ctx, records)
	if extractErr != nil {
		span.RecordError(extractErr)
	}
	gen = &Generation{
		ID:       uuid.NewString(),
		BuiltAt:  time.Now().UTC(),
		Roots:    roots,
		Table:    table,
		Records:  records,
		Analyzer: analyzer,
	}
	s.current.Store(gen)
	duration := time.Since(start)

	observability.ReloadDuration.Observe(duration.Seconds())
	observability.ReloadsTotal.WithLabelValues(trigger).Inc()
	span.SetAttributes(
		attribute.String("generation", gen.ID),
		attribute.Int("symbols", gen.Table.Len()),
	)
	slog.Info("index reloaded",
		"trigger", trigger,
		"roots", len(roots),
		"files", len(records),
		"symbols", gen.Table.Len(),
		"duration", duration,
	)

	s.syncWatcher(gen)
	s.saveCache(gen)
	s.recordSnapshot(ctx, gen, trigger, duration)
	s.emitUpdate(Update{Generation: gen, Trigger: trigger, Duration: duration})
	return gen, extractErr
}

func (s *Session) extractSafely(ctx context.Context, records []loader.FileRecord) (table *symbols.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeExtraction, fmt.Sprintf("extract symbols: %v", r))
			slog.Warn("symbol extraction failed, serving empty index", "error", err)
			table = symbols.NewTable()
		}
	}()
	return s.deps.Extract(ctx, records), nil
}

func (s *Session) recordSnapshot(ctx context.Context, gen *Generation, trigger string, duration time.Duration) {
	if s.deps.Recorder == nil {
		return
	}
	s.deps.Recorder.Record(ctx, s.snapshot(gen, trigger, duration))
}

func (s *Session) snapshot(gen *Generation, label string, duration time.Duration) ports.RuntimeSnapshot {
	return ports.RuntimeSnapshot{
		Label:              label,
		TakenAt:            time.Now().UTC(),
		HeapUsedBytes:      util.HeapAllocBytes(),
		ReloadDuration:     duration,
		WatcherCount:       s.WatcherCount(),
		RegistrationCount:  s.RegistrationCount(),
		LoadedFiles:        len(loader.Paths(gen.Records)),
		CompletionSymbols:  gen.Table.Len(),
		ReloadGenerationID: gen.ID,
	}
}

// ReloadOnce runs a single uncoalesced reload and returns its snapshot. It
// backs stress diagnostics.
func (s *Session) ReloadOnce(ctx context.Context) (ports.RuntimeSnapshot, error) {
	start := time.Now()
	gen, err := s.reloadOnce(ctx, TriggerStress)
	if err != nil && !errors.IsRecoverable(err) {
		return ports.RuntimeSnapshot{}, err
	}
	return s.snapshot(gen, TriggerStress, time.Since(start)), nil
}

// WarmStart publishes the cached index, if one exists, until the first real
// reload replaces it. It reports whether a cached index was served.
func (s *Session) WarmStart(ctx context.Context) bool {
	if s.opts.CachePath == "" {
		return false
	}
	idx, ok, err := cache.Load(s.opts.CachePath)
	if err != nil {
		slog.Warn("index cache unreadable", "path", s.opts.CachePath, "error", err)
		return false
	}
	if !ok {
		return false
	}
	s.current.Store(&Generation{
		ID:       idx.GenerationID,
		BuiltAt:  idx.BuiltAt,
		Roots:    idx.Roots,
		Table:    idx.Table,
		Records:  idx.Records,
		Analyzer: imports.NewAnalyzer(s.opts.WorkspaceRoot, s.Aliases(ctx), s.opts.DefaultExtension),
		Warm:     true,
	})
	slog.Info("serving cached index", "generation", idx.GenerationID, "symbols", idx.Table.Len())
	return true
}

func (s *Session) saveCache(gen *Generation) {
	if s.opts.CachePath == "" {
		return
	}
	err := cache.Save(s.opts.CachePath, cache.Index{
		GenerationID: gen.ID,
		BuiltAt:      gen.BuiltAt,
		Roots:        gen.Roots,
		Table:        gen.Table,
		Records:      gen.Records,
	})
	if err != nil {
		slog.Warn("index cache not written", "path", s.opts.CachePath, "error", err)
	}
}

// StartWatcher watches the loaded file set and the alias config. The set
// follows every published generation.
func (s *Session) StartWatcher(debounce time.Duration, excludeFiles []string) error {
	w, err := watcher.NewWatcher(debounce, excludeFiles, s.HandleChanges)
	if err != nil {
		return err
	}
	s.watchMu.Lock()
	s.watcher = w
	s.watchMu.Unlock()
	s.syncWatcher(s.Current())
	return nil
}

// StopWatcher releases the file watcher.
func (s *Session) StopWatcher() error {
	s.watchMu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchMu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// WatcherCount reports how many files are currently watched.
func (s *Session) WatcherCount() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return 0
	}
	return s.watcher.Count()
}

func (s *Session) syncWatcher(gen *Generation) {
	s.watchMu.Lock()
	w := s.watcher
	s.watchMu.Unlock()
	if w == nil || gen == nil {
		return
	}
	paths := append(loader.Paths(gen.Records), s.AliasConfigPath())
	if err := w.SetFiles(paths); err != nil {
		slog.Warn("some files could not be watched", "error", err)
	}
}

// HandleChanges reacts to watched file changes. A change to the alias
// config drops the alias cache before reloading. Bursts beyond the reload
// rate are dropped; the debounced watcher reports again on the next edit.
func (s *Session) HandleChanges(paths []string) {
	if len(paths) == 0 {
		return
	}
	aliasPath := filepath.Clean(s.AliasConfigPath())
	for _, p := range paths {
		if filepath.Clean(p) == aliasPath {
			s.ClearAliases()
			break
		}
	}
	if !s.limiter.Allow() {
		slog.Debug("watch reload throttled", "paths", len(paths))
		return
	}
	if err := s.Reload(context.Background(), TriggerWatch); err != nil {
		if errors.IsRecoverable(err) {
			slog.Warn("watch reload degraded", "error", err)
			return
		}
		slog.Error("watch reload failed", "error", err)
	}
}
