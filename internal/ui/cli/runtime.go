package cli

import (
	"context"
	"easierless/internal/core/config"
	domainerrors "easierless/internal/core/errors"
	"easierless/internal/data/history"
	"easierless/internal/data/workspace"
	"easierless/internal/engine/imports"
	"easierless/internal/engine/session"
	"easierless/internal/shared/observability"
	"easierless/internal/shared/util"
	"easierless/internal/ui/report"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("easierless v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	paths := config.ResolvePaths(cfg)

	if err := validateModeOptions(opts); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "endpoint", cfg.Observability.OTLPEndpoint, "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	store, err := openHistoryStoreIfEnabled(cfg, paths)
	if err != nil {
		slog.Error("history setup failed", "error", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}
	var recorder *history.Recorder
	if store != nil {
		recorder = history.NewRecorder(cfg.DB.Session, store)
	} else if opts.stress > 0 {
		recorder = history.NewRecorder(cfg.DB.Session, nil)
	}

	if opts.history {
		return runHistoryMode(ctx, store, cfg.DB.Session)
	}

	rt := newRuntime(cfg, paths, recorder)

	if opts.init {
		if err := runInit(cfg, cfgPath, rt.session().Aliases(ctx)); err != nil {
			slog.Error("init failed", "error", err)
			return 1
		}
		return 0
	}

	if ShouldShowWelcomePrompt(cfg.Less.NoticeEnabled(), cfg.Less.SuppressNotice, cfg.Less.Files) {
		fmt.Fprintln(os.Stderr, "No root stylesheets configured. Run `easierless --init` to choose them, or set less.suppress_notice = true.")
	}

	s := rt.session()
	if s.WarmStart(ctx) {
		slog.Debug("serving cached index until the first reload completes")
	}
	if err := s.Reload(ctx, session.TriggerStartup); err != nil {
		if !domainerrors.IsRecoverable(err) {
			slog.Error("initial reload failed", "error", err)
			return 1
		}
		slog.Warn("initial reload degraded", "error", err)
	}

	if stop, code := runSingleCommand(ctx, s, cfg, opts); stop {
		return code
	}

	metricsAddr := strings.TrimSpace(opts.metrics)
	if metricsAddr == "" {
		metricsAddr = strings.TrimSpace(cfg.Observability.MetricsAddress)
	}
	if metricsAddr != "" {
		srv := NewObservabilityServer(metricsAddr, rt.session)
		if err := srv.Start(ctx); err != nil {
			slog.Error("failed to start metrics server", "address", metricsAddr, "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(stopCtx)
		}()
	}

	if !opts.ui && !opts.watch {
		printSummary(s)
		return 0
	}

	if err := rt.startWatching(ctx, cfgPath); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	defer rt.stopWatching()

	if opts.ui {
		if err := runUI(rt); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	printSummary(s)
	<-ctx.Done()
	return 0
}

func validateModeOptions(opts cliOptions) error {
	modes := 0
	for _, on := range []bool{
		opts.init,
		opts.importDoc != "",
		opts.hover != "",
		opts.definition != "",
		opts.complete,
		opts.query != "",
		opts.stress > 0,
		opts.history,
		opts.ui,
	} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("--init, --import, --hover, --definition, --complete, --query, --stress, --history and --ui are mutually exclusive")
	}
	if opts.complete && len(opts.args) != 0 && len(opts.args) != 2 {
		return errors.New("--complete takes no arguments or a document and a byte offset")
	}
	if opts.importDoc != "" && len(opts.args) == 0 {
		return errors.New("--import requires the symbol as the first argument")
	}
	if opts.stress < 0 {
		return errors.New("--stress must be positive")
	}
	if opts.report != "" && opts.stress == 0 {
		return errors.New("--report requires --stress")
	}
	return nil
}

// runtime holds the live session. A config edit that changes the root files
// swaps in a fresh session.
type runtime struct {
	cfg      *config.Config
	paths    config.ResolvedPaths
	recorder *history.Recorder

	mu        sync.Mutex
	current   *session.Session
	cfgWatch  *config.Watcher
	listeners []func(*session.Session)
}

func newRuntime(cfg *config.Config, paths config.ResolvedPaths, recorder *history.Recorder) *runtime {
	rt := &runtime{cfg: cfg, paths: paths, recorder: recorder}
	rt.current = rt.build(cfg)
	return rt
}

func (rt *runtime) build(cfg *config.Config) *session.Session {
	opts := session.Options{
		WorkspaceRoot:    rt.paths.ProjectRoot,
		Files:            cfg.Less.Files,
		AliasFiles:       cfg.Less.AliasFiles,
		DefaultExtension: cfg.Less.DefaultExtension,
		UnlockDelay:      cfg.Import.UnlockDelay,
		ReloadRate:       cfg.Watch.ReloadRate,
		ReloadBurst:      cfg.Watch.ReloadBurst,
	}
	if cfg.Cache.IsEnabled() {
		opts.CachePath = rt.paths.CachePath
	}
	return session.New(opts, session.Dependencies{
		FS:       workspace.NewFS(nil),
		Editor:   workspace.Editor{},
		Notifier: workspace.LogNotifier{},
		Recorder: rt.recorder,
	})
}

func (rt *runtime) session() *session.Session {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current
}

// onSwap registers fn to run with every replacement session.
func (rt *runtime) onSwap(fn func(*session.Session)) {
	rt.mu.Lock()
	rt.listeners = append(rt.listeners, fn)
	rt.mu.Unlock()
}

func (rt *runtime) startWatching(ctx context.Context, cfgPath string) error {
	if err := rt.session().StartWatcher(rt.cfg.Watch.Debounce, rt.cfg.Exclude.Files); err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); err != nil {
		slog.Debug("config file absent; config watching disabled", "path", cfgPath)
		return nil
	}
	rt.cfgWatch = config.NewWatcher(cfgPath, func(next *config.Config) {
		rt.applyConfig(ctx, next)
	})
	return rt.cfgWatch.Start(ctx)
}

func (rt *runtime) applyConfig(ctx context.Context, next *config.Config) {
	rt.mu.Lock()
	prev := rt.cfg
	if !config.ShouldReactToConfigChange(prev, next) {
		rt.mu.Unlock()
		return
	}
	old := rt.current
	rt.cfg = next
	rt.current = rt.build(next)
	fresh := rt.current
	listeners := append([]func(*session.Session){}, rt.listeners...)
	rt.mu.Unlock()

	_ = old.StopWatcher()
	if err := fresh.Reload(ctx, session.TriggerConfig); err != nil && !domainerrors.IsRecoverable(err) {
		slog.Error("reload after config change failed", "error", err)
	}
	if err := fresh.StartWatcher(next.Watch.Debounce, next.Exclude.Files); err != nil {
		slog.Error("failed to restart watcher", "error", err)
	}
	for _, fn := range listeners {
		fn(fresh)
	}
	slog.Info("config change applied", "files", len(next.Less.Files))
}

func (rt *runtime) stopWatching() {
	if rt.cfgWatch != nil {
		rt.cfgWatch.Stop()
	}
	_ = rt.session().StopWatcher()
}

func runSingleCommand(ctx context.Context, s *session.Session, cfg *config.Config, opts cliOptions) (bool, int) {
	switch {
	case opts.importDoc != "":
		return true, runImport(ctx, s, opts.importDoc, opts.args[0])
	case opts.hover != "":
		text, ok := s.Hover("", opts.hover, len(opts.hover))
		if !ok {
			fmt.Fprintf(os.Stderr, "no definition for %s\n", opts.hover)
			return true, 1
		}
		fmt.Println(text)
		return true, 0
	case opts.definition != "":
		cursor := strings.IndexFunc(opts.definition, func(r rune) bool { return r != '.' && r != '@' })
		if cursor < 0 {
			cursor = len(opts.definition)
		}
		locs := s.Definitions("", opts.definition, cursor)
		if len(locs) == 0 {
			fmt.Fprintf(os.Stderr, "%s not found in loaded files\n", opts.definition)
			return true, 1
		}
		for _, loc := range locs {
			fmt.Printf("%s:%d\n", loc.Path, loc.Line+1)
		}
		return true, 0
	case opts.complete && len(opts.args) == 2:
		return true, runCompleteAt(s, opts.args[0], opts.args[1])
	case opts.complete:
		for _, item := range s.Completions() {
			fmt.Printf("%s\t%s\t%s\n", item.FilterText, item.Kind, summarizeDetail(item.Detail))
		}
		return true, 0
	case opts.query != "":
		rows, err := s.Query(opts.query, opts.limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		for _, row := range rows {
			fmt.Printf("%s\t%s\t%s\t%s\n", row.Name, row.Kind, summarizeDetail(row.Value), row.Source)
		}
		return true, 0
	case opts.stress > 0:
		return true, runStressMode(ctx, s, cfg, opts.stress, opts.report)
	}
	return false, 0
}

func runCompleteAt(s *session.Session, docPath, rawOffset string) int {
	offset, err := strconv.Atoi(rawOffset)
	if err != nil || offset < 0 {
		fmt.Fprintf(os.Stderr, "invalid offset %q\n", rawOffset)
		return 1
	}
	abs, err := filepath.Abs(docPath)
	if err != nil {
		slog.Error("invalid document path", "path", docPath, "error", err)
		return 1
	}
	text, err := os.ReadFile(abs)
	if err != nil {
		slog.Error("failed to read document", "path", abs, "error", err)
		return 1
	}
	for _, item := range s.CompleteAt(abs, string(text), offset) {
		fmt.Printf("%s\t%s\t%s\n", item.FilterText, item.Kind, item.InsertText)
	}
	return 0
}

func runImport(ctx context.Context, s *session.Session, docPath, symbol string) int {
	abs, err := filepath.Abs(docPath)
	if err != nil {
		slog.Error("invalid document path", "path", docPath, "error", err)
		return 1
	}
	text, err := os.ReadFile(abs)
	if err != nil {
		slog.Error("failed to read document", "path", abs, "error", err)
		return 1
	}
	doc := session.Document{Path: abs, Text: string(text), Kind: imports.KindForPath(abs)}
	res, err := s.AutoImport(ctx, doc, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		return 1
	}
	switch res.Outcome {
	case session.OutcomeInserted:
		fmt.Printf("inserted %q at offset %d\n", strings.TrimSpace(res.Insertion.Text), res.Insertion.Offset)
	case session.OutcomeNoSource:
		fmt.Printf("%s is not defined in any root stylesheet\n", symbol)
		return 1
	default:
		fmt.Println(string(res.Outcome))
	}
	return 0
}

func runStressMode(ctx context.Context, s *session.Session, cfg *config.Config, cycles int, reportPath string) int {
	th := history.Thresholds{
		MaxHeapGrowthBytes: cfg.Diagnostics.MaxHeapGrowthBytes,
		MaxReloadDuration:  cfg.Diagnostics.MaxReloadDuration,
	}
	rec := s.Recorder()
	if rec == nil {
		rec = history.NewRecorder(cfg.DB.Session, nil)
	}
	result, err := history.RunStress(ctx, rec, cycles, s.ReloadOnce, th, os.Stderr)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		slog.Error("stress run failed", "error", err)
		return 1
	}
	for _, snap := range result.Snapshots {
		fmt.Printf("%s\theap=%d\treload=%s\twatchers=%d\tfiles=%d\tsymbols=%d\n",
			snap.Label, snap.HeapUsedBytes, snap.ReloadDuration, snap.WatcherCount, snap.LoadedFiles, snap.CompletionSymbols)
	}
	if reportPath != "" {
		if err := writeStressReport(reportPath, result, th); err != nil {
			slog.Error("failed to write stress report", "path", reportPath, "error", err)
			return 1
		}
	}
	if !result.Pass {
		for _, reason := range result.Reasons {
			fmt.Printf("FAIL: %s\n", reason)
		}
		return 1
	}
	fmt.Printf("PASS: %d reload cycles within thresholds\n", cycles)
	return 0
}

func writeStressReport(path string, result history.Result, th history.Thresholds) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return util.WriteFileWithDirs(path, report.RenderSnapshotsTSV(result.Snapshots), 0o644)
	case ".json":
		pass := result.Pass
		data, err := report.RenderSnapshotsJSON(result.Snapshots, &pass, result.Reasons)
		if err != nil {
			return err
		}
		return util.WriteFileWithDirs(path, data, 0o644)
	default:
		return report.InjectDiagnostics(path, report.RenderDiagnosticsMarkdown(result, th))
	}
}

func runHistoryMode(ctx context.Context, store *history.Store, sessionName string) int {
	if store == nil {
		fmt.Fprintln(os.Stderr, "--history requires db.enabled = true")
		return 1
	}
	snaps, err := store.LoadSnapshots(ctx, sessionName)
	if err != nil {
		slog.Error("failed to load snapshots", "error", err)
		return 1
	}
	os.Stdout.Write(report.RenderSnapshotsTSV(snaps))
	return 0
}

func printSummary(s *session.Session) {
	gen := s.Current()
	source := "live"
	if gen.Warm {
		source = "cached"
	}
	fmt.Printf("easierless: %d roots, %d files, %d symbols (%s index %s)\n",
		len(gen.Roots), len(gen.Records), gen.Table.Len(), source, shortID(gen.ID))
}

func openHistoryStoreIfEnabled(cfg *config.Config, paths config.ResolvedPaths) (*history.Store, error) {
	if !cfg.DB.Enabled {
		return nil, nil
	}
	store, err := history.Open(paths.DBPath)
	if err != nil {
		if history.IsCorruptError(err) {
			slog.Warn("history database unusable, running without history", "path", paths.DBPath, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("open history store %s: %w", paths.DBPath, err)
	}
	return store, nil
}

// loadConfig reads path. When the default file is absent the project root is
// detected from cwd and defaults apply.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, "", fmt.Errorf("cwd must not be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, "", err
	}

	root, detectErr := config.DetectProjectRoot([]string{cwd})
	if detectErr != nil {
		return nil, "", detectErr
	}
	if filepath.Base(path) == config.DefaultFileName && filepath.Dir(path) == filepath.Clean(cwd) {
		path = filepath.Join(root, config.DefaultFileName)
		if cfg, err := config.Load(path); err == nil {
			return cfg, path, nil
		}
	}
	slog.Debug("no config file; using defaults", "path", path, "projectRoot", root)
	return config.Default(root), path, nil
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	var closeFn func() = func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "easierless", "easierless.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "easierless", "easierless.log")
	}

	return "easierless.log"
}
