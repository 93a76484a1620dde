package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
version = 1

[less]
files = ["@/styles/theme.less", " ./src/mixins.less ", ""]
notice = false
default_extension = "less"

[import]
unlock_delay = "250ms"

[watch]
debounce = "1s"
reload_rate = 5.0
reload_burst = 2

[exclude]
files = ["*.min.less"]

[db]
enabled = true
path = "diag.db"

[diagnostics]
max_heap_growth_bytes = 1024
max_reload_duration = "3s"

[observability]
metrics_address = "127.0.0.1:9464"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ProjectRoot != dir {
		t.Errorf("expected project root %q, got %q", dir, cfg.ProjectRoot)
	}
	if len(cfg.Less.Files) != 2 || cfg.Less.Files[1] != "./src/mixins.less" {
		t.Errorf("unexpected less.files: %v", cfg.Less.Files)
	}
	if cfg.Less.NoticeEnabled() {
		t.Error("expected notice disabled")
	}
	if cfg.Less.DefaultExtension != ".less" {
		t.Errorf("expected normalized extension, got %q", cfg.Less.DefaultExtension)
	}
	if cfg.Import.UnlockDelay != 250*time.Millisecond {
		t.Errorf("expected unlock delay 250ms, got %v", cfg.Import.UnlockDelay)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.ReloadRate != 5 || cfg.Watch.ReloadBurst != 2 {
		t.Errorf("unexpected watch config: %+v", cfg.Watch)
	}
	if cfg.Diagnostics.MaxHeapGrowthBytes != 1024 || cfg.Diagnostics.MaxReloadDuration != 3*time.Second {
		t.Errorf("unexpected diagnostics: %+v", cfg.Diagnostics)
	}
	if !cfg.DB.Enabled {
		t.Error("expected db enabled")
	}

	paths := ResolvePaths(cfg)
	if paths.DBPath != filepath.Join(dir, ".easierless", "diag.db") {
		t.Errorf("unexpected db path %q", paths.DBPath)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Less.NoticeEnabled() || cfg.Less.SuppressNotice {
		t.Error("expected notice on and not suppressed by default")
	}
	if cfg.Import.UnlockDelay != 500*time.Millisecond {
		t.Errorf("expected default unlock delay, got %v", cfg.Import.UnlockDelay)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("expected default debounce, got %v", cfg.Watch.Debounce)
	}
	if got := strings.Join(cfg.Less.AliasFiles, ","); got != "jsconfig.json,tsconfig.json" {
		t.Errorf("unexpected alias files %q", got)
	}
	if cfg.Diagnostics.MaxHeapGrowthBytes != 10*1024*1024 || cfg.Diagnostics.MaxReloadDuration != 2*time.Second {
		t.Errorf("unexpected diagnostics defaults: %+v", cfg.Diagnostics)
	}
	if !cfg.Cache.IsEnabled() {
		t.Error("expected cache enabled by default")
	}
}

func TestLoadRelativeProjectRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `project_root = "web"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ProjectRoot != filepath.Join(dir, "web") {
		t.Fatalf("expected %q, got %q", filepath.Join(dir, "web"), cfg.ProjectRoot)
	}
}

func TestLoadError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	path := writeConfig(t, dir, "[less\nfiles = ")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"version", "version = 3", "unsupported config version"},
		{"wildcard root", "[less]\nfiles = [\"src/*.less\"]", "wildcards are not supported"},
		{"bad glob", "[exclude]\nfiles = [\"[oops\"]", "not a valid glob"},
		{"overlap", "[db]\nenabled = true\npath = \"same\"\n[cache]\npath = \"same\"", "must not overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EASIERLESS_LESS_FILES", "a.less, b.less")
	t.Setenv("EASIERLESS_DB_ENABLED", "true")
	t.Setenv("EASIERLESS_WATCH_DEBOUNCE", "50ms")

	cfg := Default(t.TempDir())
	if len(cfg.Less.Files) != 2 || cfg.Less.Files[1] != "b.less" {
		t.Errorf("unexpected files %v", cfg.Less.Files)
	}
	if !cfg.DB.Enabled {
		t.Error("expected db enabled from env")
	}
	if cfg.Watch.Debounce != 50*time.Millisecond {
		t.Errorf("expected debounce override, got %v", cfg.Watch.Debounce)
	}
}

func TestValidateCollectsPathErrors(t *testing.T) {
	cfg := Default("/non/existent/root")
	errs := Validate(cfg)
	found := false
	for _, err := range errs {
		if err.Error() == `project_root "/non/existent/root" does not exist` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected project_root error, got %v", errs)
	}
}

func TestDetectProjectRoot(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := DetectProjectRoot([]string{sub})
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Clean(root) {
		t.Fatalf("expected %q, got %q", root, got)
	}
}

func TestSaveFilesKeepsOtherKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[less]
notice = true

[watch]
debounce = "1s"
`)

	if err := SaveFiles(path, []string{"@/theme.less", "./extra.less"}); err != nil {
		t.Fatalf("SaveFiles failed: %v", err)
	}
	if err := SaveSuppressNotice(path, true); err != nil {
		t.Fatalf("SaveSuppressNotice failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if len(cfg.Less.Files) != 2 || cfg.Less.Files[0] != "@/theme.less" {
		t.Errorf("files not persisted: %v", cfg.Less.Files)
	}
	if !cfg.Less.SuppressNotice || !cfg.Less.NoticeEnabled() {
		t.Errorf("notice flags not persisted: %+v", cfg.Less)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("unrelated key lost: debounce=%v", cfg.Watch.Debounce)
	}
}

func TestSaveSuppressNoticeCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := SaveSuppressNotice(path, true); err != nil {
		t.Fatalf("SaveSuppressNotice failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Less.SuppressNotice {
		t.Error("expected notice suppressed")
	}
}

func TestShouldReactToConfigChange(t *testing.T) {
	base := Default("/repo")
	base.Less.Files = []string{"a.less"}

	same := Default("/repo")
	same.Less.Files = []string{"a.less"}
	same.Watch.Debounce = time.Hour
	if ShouldReactToConfigChange(base, same) {
		t.Error("unrelated change should not trigger a reload")
	}

	files := Default("/repo")
	files.Less.Files = []string{"a.less", "b.less"}
	if !ShouldReactToConfigChange(base, files) {
		t.Error("files change should trigger a reload")
	}

	off := false
	notice := Default("/repo")
	notice.Less.Files = []string{"a.less"}
	notice.Less.Notice = &off
	if !ShouldReactToConfigChange(base, notice) {
		t.Error("notice change should trigger a reload")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[less]\nfiles = [\"a.less\"]\n")

	got := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case got <- cfg:
		default:
		}
	})
	if err := w.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[less]\nfiles = [\"b.less\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		if len(cfg.Less.Files) != 1 || cfg.Less.Files[0] != "b.less" {
			t.Fatalf("unexpected reloaded files %v", cfg.Less.Files)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcherSkipsUnchangedAndInvalidEdits(t *testing.T) {
	dir := t.TempDir()
	body := "[less]\nfiles = [\"a.less\"]\n"
	path := writeConfig(t, dir, body)

	got := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { got <- cfg })
	w.Debounce = 20 * time.Millisecond
	if err := w.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("version = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		t.Fatalf("unexpected reload with files %v", cfg.Less.Files)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("[less]\nfiles = [\"c.less\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		if cfg.Less.Files[0] != "c.less" {
			t.Fatalf("unexpected reloaded files %v", cfg.Less.Files)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
