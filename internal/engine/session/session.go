// Package session owns every piece of mutable engine state for one
// activation: the alias cache, the current symbol generation, the reload
// coalescing flags and the in-flight auto-import locks.
package session

import (
	"context"
	"easierless/internal/core/ports"
	"easierless/internal/core/watcher"
	"easierless/internal/data/history"
	"easierless/internal/engine/alias"
	"easierless/internal/engine/imports"
	"easierless/internal/engine/loader"
	"easierless/internal/engine/symbols"
	"easierless/internal/shared/util"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultUnlockDelay is how long an auto-import lock outlives its insertion.
const DefaultUnlockDelay = 500 * time.Millisecond

// Options are the per-project settings a session is built from.
type Options struct {
	WorkspaceRoot string
	// Files are the configured root specifiers, alias or relative form.
	Files            []string
	AliasFiles       []string
	DefaultExtension string
	UnlockDelay      time.Duration
	// CachePath enables the warm-start index cache when non-empty.
	CachePath string
	// ReloadRate and ReloadBurst throttle watch-triggered reloads.
	ReloadRate  float64
	ReloadBurst int
}

// Dependencies are the host collaborators. Editor, Notifier and Recorder may
// be nil.
type Dependencies struct {
	FS       ports.FileSystem
	Editor   ports.DocumentEditor
	Notifier ports.Notifier
	Recorder *history.Recorder
	// Extract builds the symbol table of a reload. Nil means symbols.Extract.
	Extract func(ctx context.Context, records []loader.FileRecord) *symbols.Table
}

// Generation is one fully built index. It is never mutated after it has
// been published.
type Generation struct {
	ID       string
	BuiltAt  time.Time
	Roots    []string
	Table    *symbols.Table
	Records  []loader.FileRecord
	Analyzer *imports.Analyzer
	// Warm marks a generation served from the index cache.
	Warm bool
}

// Update is sent to subscribers after each published generation.
type Update struct {
	Generation *Generation
	Trigger    string
	Duration   time.Duration
}

type Session struct {
	opts Options
	deps Dependencies

	aliasMu   sync.Mutex
	aliases   *alias.Config
	aliasPath string

	current atomic.Pointer[Generation]

	reloadMu sync.Mutex
	running  bool
	pending  bool
	idle     chan struct{}

	locksMu sync.Mutex
	locks   map[string]struct{}

	subsMu  sync.RWMutex
	subs    map[int]func(Update)
	nextSub int

	watchMu sync.Mutex
	watcher *watcher.Watcher
	limiter *util.Limiter
}

// New returns a session with an empty generation.
func New(opts Options, deps Dependencies) *Session {
	if opts.UnlockDelay <= 0 {
		opts.UnlockDelay = DefaultUnlockDelay
	}
	if opts.DefaultExtension == "" {
		opts.DefaultExtension = imports.DefaultExtension
	}
	if opts.WorkspaceRoot != "" {
		opts.WorkspaceRoot = filepath.Clean(opts.WorkspaceRoot)
	}
	if deps.Extract == nil {
		deps.Extract = symbols.Extract
	}
	s := &Session{
		opts:    opts,
		deps:    deps,
		locks:   make(map[string]struct{}),
		subs:    make(map[int]func(Update)),
		limiter: util.NewLimiter(opts.ReloadRate, opts.ReloadBurst),
	}
	s.current.Store(&Generation{
		Table:    symbols.NewTable(),
		Analyzer: imports.NewAnalyzer(opts.WorkspaceRoot, alias.Empty(), opts.DefaultExtension),
	})
	return s
}

// Current returns the last published generation.
func (s *Session) Current() *Generation {
	return s.current.Load()
}

// Options returns the settings the session was built with.
func (s *Session) Options() Options {
	return s.opts
}

// Aliases returns the cached alias config, loading it on first use.
func (s *Session) Aliases(ctx context.Context) *alias.Config {
	s.aliasMu.Lock()
	defer s.aliasMu.Unlock()
	if s.aliases == nil {
		s.aliases, s.aliasPath = alias.Load(ctx, s.deps.FS, s.opts.WorkspaceRoot, s.opts.AliasFiles)
	}
	return s.aliases
}

// AliasConfigPath is the alias file in use, or the first candidate when none
// exists yet so that its creation is noticed.
func (s *Session) AliasConfigPath() string {
	s.aliasMu.Lock()
	defer s.aliasMu.Unlock()
	if s.aliasPath != "" {
		return s.aliasPath
	}
	names := s.opts.AliasFiles
	if len(names) == 0 {
		names = alias.DefaultConfigFiles
	}
	return filepath.Join(s.opts.WorkspaceRoot, names[0])
}

// Recorder returns the snapshot recorder, or nil.
func (s *Session) Recorder() *history.Recorder {
	return s.deps.Recorder
}

// ClearAliases drops the alias cache; the next reload re-reads it.
func (s *Session) ClearAliases() {
	s.aliasMu.Lock()
	s.aliases = nil
	s.aliasPath = ""
	s.aliasMu.Unlock()
}

// ResolveRoots turns the configured specifiers into absolute root paths.
func (s *Session) ResolveRoots(aliases *alias.Config) []string {
	roots := make([]string, 0, len(s.opts.Files))
	for _, spec := range s.opts.Files {
		if spec == "" {
			continue
		}
		roots = append(roots, aliases.ResolvePathByAliasOrRelative(spec, s.opts.WorkspaceRoot))
	}
	return util.DedupePaths(roots)
}

// Subscribe registers fn for generation updates and returns its removal.
func (s *Session) Subscribe(fn func(Update)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// RegistrationCount reports live subscriptions.
func (s *Session) RegistrationCount() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

func (s *Session) emitUpdate(update Update) {
	s.subsMu.RLock()
	handlers := make([]func(Update), 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.subsMu.RUnlock()
	for _, h := range handlers {
		h(update)
	}
}
