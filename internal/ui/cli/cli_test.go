package cli

import (
	"context"
	"easierless/internal/core/config"
	"easierless/internal/engine/alias"
	"easierless/internal/engine/lookup"
	"easierless/internal/engine/session"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions_ImportTakesSymbolArgument(t *testing.T) {
	opts, err := parseOptions([]string{"--import", "src/a.less", "@primary"})
	require.NoError(t, err)
	assert.Equal(t, "src/a.less", opts.importDoc)
	assert.Equal(t, []string{"@primary"}, opts.args)
	assert.Equal(t, config.DefaultFileName, opts.configPath)
	require.NoError(t, validateModeOptions(opts))
}

func TestValidateModeOptions(t *testing.T) {
	tests := []struct {
		name string
		opts cliOptions
		ok   bool
	}{
		{name: "none", opts: cliOptions{}, ok: true},
		{name: "watch with ui", opts: cliOptions{ui: true, watch: true}, ok: true},
		{name: "hover and ui", opts: cliOptions{hover: "@a", ui: true}},
		{name: "import without symbol", opts: cliOptions{importDoc: "a.less"}},
		{name: "negative stress", opts: cliOptions{stress: -1}},
		{name: "report without stress", opts: cliOptions{report: "out.md"}},
		{name: "report with stress", opts: cliOptions{stress: 3, report: "out.md"}, ok: true},
		{name: "complete with one argument", opts: cliOptions{complete: true, args: []string{"a.less"}}},
		{name: "complete at cursor", opts: cliOptions{complete: true, args: []string{"a.less", "4"}}, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateModeOptions(tt.opts)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestShouldShowWelcomePrompt(t *testing.T) {
	assert.True(t, ShouldShowWelcomePrompt(true, false, nil))
	assert.False(t, ShouldShowWelcomePrompt(false, false, nil))
	assert.False(t, ShouldShowWelcomePrompt(true, true, nil))
	assert.False(t, ShouldShowWelcomePrompt(true, false, []string{"a.less"}))
}

func TestBuildWorkspaceMixinPaths(t *testing.T) {
	root := filepath.FromSlash("/repo")
	aliases := alias.New(alias.Alias{Prefix: "@", Dir: filepath.Join(root, "src")})
	picked := []string{
		filepath.Join(root, "src", "styles", "a.less"),
		filepath.Join(root, "styles", "b.less"),
		"",
		filepath.Join(root, "missing.less"),
	}
	exists := func(p string) bool { return p != filepath.Join(root, "missing.less") }

	got := BuildWorkspaceMixinPaths(picked, root, aliases, exists)
	assert.Equal(t, []string{"@/styles/a.less", "styles/b.less"}, got)

	noRoot := BuildWorkspaceMixinPaths(picked[:2], "", aliases, exists)
	assert.Equal(t, picked[:2], noRoot)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverStylesheets_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "dist\n*.min.less\n")
	writeFile(t, filepath.Join(root, "a.less"), "")
	writeFile(t, filepath.Join(root, "a.min.less"), "")
	writeFile(t, filepath.Join(root, "sub", "d.less"), "")
	writeFile(t, filepath.Join(root, "dist", "b.less"), "")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "c.less"), "")
	writeFile(t, filepath.Join(root, "e.css"), "")

	got, err := DiscoverStylesheets(root, ".less")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.less"),
		filepath.Join(root, "sub", "d.less"),
	}, got)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), "{}")

	cfg, path, err := loadConfig(config.DefaultFileName, root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, config.DefaultFileName), path)
	assert.Equal(t, filepath.Clean(root), cfg.ProjectRoot)
	assert.Equal(t, ".less", cfg.Less.DefaultExtension)
}

func TestLoadConfig_ReadsExistingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, config.DefaultFileName), "version = 1\n[less]\nfiles = [\"styles/main.less\"]\n")

	cfg, _, err := loadConfig(config.DefaultFileName, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"styles/main.less"}, cfg.Less.Files)
}

func newTestRuntime(t *testing.T) *runtime {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions": {"baseUrl": ".", "paths": {"@/*": ["src/*"]}}}`)
	writeFile(t, filepath.Join(root, "src", "theme.less"), "@import \"./vars\";\n.btn(@c) { color: @c; }\n")
	writeFile(t, filepath.Join(root, "src", "vars.less"), "@primary: #ff0000;\n")

	cfg := config.Default(root)
	cfg.Less.Files = []string{"@/theme.less"}
	cfg.DB.Enabled = false
	disabled := false
	cfg.Cache.Enabled = &disabled
	rt := newRuntime(cfg, config.ResolvePaths(cfg), nil)
	require.NoError(t, rt.session().Reload(context.Background(), session.TriggerStartup))
	return rt
}

func TestRuntime_SingleCommands(t *testing.T) {
	rt := newTestRuntime(t)
	s := rt.session()
	ctx := context.Background()

	stop, code := runSingleCommand(ctx, s, rt.cfg, cliOptions{hover: "@primary"})
	assert.True(t, stop)
	assert.Equal(t, 0, code)

	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{hover: "@nope"})
	assert.True(t, stop)
	assert.Equal(t, 1, code)

	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{definition: "@primary"})
	assert.True(t, stop)
	assert.Equal(t, 0, code)

	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{definition: ".btn("})
	assert.True(t, stop)
	assert.Equal(t, 0, code)

	doc := filepath.Join(rt.paths.ProjectRoot, "src", "pages", "home.less")
	writeFile(t, doc, ".home { color: @pri }\n")
	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{complete: true, args: []string{doc, "19"}})
	assert.True(t, stop)
	assert.Equal(t, 0, code)

	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{complete: true, args: []string{doc, "x"}})
	assert.True(t, stop)
	assert.Equal(t, 1, code)

	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{query: "SELECT definitions"})
	assert.True(t, stop)
	assert.Equal(t, 0, code)

	stop, code = runSingleCommand(ctx, s, rt.cfg, cliOptions{query: "DROP symbols"})
	assert.True(t, stop)
	assert.Equal(t, 1, code)

	stop, _ = runSingleCommand(ctx, s, rt.cfg, cliOptions{})
	assert.False(t, stop)
}

func TestRuntime_ImportInsertsIntoDocument(t *testing.T) {
	rt := newTestRuntime(t)
	doc := filepath.Join(rt.paths.ProjectRoot, "src", "pages", "home.less")
	writeFile(t, doc, ".home { color: @primary; }\n")

	code := runImport(context.Background(), rt.session(), doc, "@primary")
	require.Equal(t, 0, code)

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "@import (reference) '@/theme.less';")
}

func TestRuntime_StressPasses(t *testing.T) {
	rt := newTestRuntime(t)
	rt.cfg.Diagnostics.MaxHeapGrowthBytes = 1 << 40
	reportPath := filepath.Join(t.TempDir(), "stress.json")
	code := runStressMode(context.Background(), rt.session(), rt.cfg, 2, reportPath)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pass": true`)
}

func TestRuntime_ApplyConfigSwapsSession(t *testing.T) {
	rt := newTestRuntime(t)
	before := rt.session()

	var swapped *session.Session
	rt.onSwap(func(s *session.Session) { swapped = s })

	same := *rt.cfg
	rt.applyConfig(context.Background(), &same)
	assert.Same(t, before, rt.session())

	next := *rt.cfg
	next.Less.Files = []string{"@/vars.less"}
	rt.applyConfig(context.Background(), &next)
	t.Cleanup(rt.stopWatching)

	require.NotSame(t, before, rt.session())
	assert.Same(t, rt.session(), swapped)
	_, ok := rt.session().Current().Table.Variable("@primary")
	assert.True(t, ok)
}

func TestObservabilityHandler_Health(t *testing.T) {
	rt := newTestRuntime(t)
	srv := NewObservabilityServer("127.0.0.1:0", rt.session)

	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, 2, status.Symbols)
	assert.Equal(t, 2, status.Files)
}

func TestExplorerModel_SplitsAndShowsDetail(t *testing.T) {
	m := initialModel(nil)
	next, _ := m.Update(updateMsg{
		items: []lookup.CompletionItem{
			{Symbol: "@primary", Label: "primary", Detail: "#ff0000", Kind: lookup.KindColor, FilterText: "@primary"},
			{Symbol: "@gap", Label: "gap", Detail: "4px", Kind: lookup.KindVariable, FilterText: "@gap"},
			{Symbol: ".btn", Label: "btn", Detail: ".btn(@c) { color: @c; }", Kind: lookup.KindMethod, FilterText: ".btn"},
		},
		sources:    map[string]string{".btn": "src/theme.less"},
		generation: "0123456789",
		fileCount:  2,
	})
	m = next.(model)

	assert.Len(t, m.variableList.Items(), 2)
	assert.Len(t, m.definitionList.Items(), 1)
	assert.Equal(t, 3, m.symbols)
	assert.Contains(t, m.View(), "01234567")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(model)
	if m.mode != panelDefinitions {
		t.Fatalf("expected definitions panel, got %v", m.mode)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	assert.Contains(t, m.detail, ".btn")
	assert.Contains(t, m.detail, "Defined in src/theme.less")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)
	assert.Empty(t, m.detail)
}

func TestExplorerModel_ReloadKeyRunsReload(t *testing.T) {
	calls := 0
	m := initialModel(func() error {
		calls++
		return nil
	})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, calls)

	next, _ = next.(model).Update(msg)
	assert.Contains(t, next.(model).status, "Reloaded")
}

func TestOpenHistoryStore_CorruptFileRunsWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	require.NoError(t, os.WriteFile(dbPath, []byte(strings.Repeat("plain text, no sqlite header\n", 64)), 0o644))

	cfg := config.Default(dir)
	cfg.DB.Enabled = true
	store, err := openHistoryStoreIfEnabled(cfg, config.ResolvedPaths{ProjectRoot: dir, DBPath: dbPath})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestOpenHistoryStore_Disabled(t *testing.T) {
	store, err := openHistoryStoreIfEnabled(config.Default(t.TempDir()), config.ResolvedPaths{})
	require.NoError(t, err)
	assert.Nil(t, store)
}
