package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the project config file looked up by the CLI.
const DefaultFileName = "easierless.toml"

type Config struct {
	Version       int           `toml:"version"`
	ProjectRoot   string        `toml:"project_root"`
	StateDir      string        `toml:"state_dir"`
	Less          Less          `toml:"less"`
	Import        Import        `toml:"import"`
	Watch         Watch         `toml:"watch"`
	Exclude       Exclude       `toml:"exclude"`
	DB            Database      `toml:"db"`
	Diagnostics   Diagnostics   `toml:"diagnostics"`
	Cache         Cache         `toml:"cache"`
	Observability Observability `toml:"observability"`
}

type Less struct {
	// Files are the root stylesheets, alias or workspace-relative form.
	Files            []string `toml:"files"`
	Notice           *bool    `toml:"notice"`
	SuppressNotice   bool     `toml:"suppress_notice"`
	DefaultExtension string   `toml:"default_extension"`
	AliasFiles       []string `toml:"alias_files"`
}

type Import struct {
	UnlockDelay time.Duration `toml:"unlock_delay"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	ReloadRate  float64       `toml:"reload_rate"`
	ReloadBurst int           `toml:"reload_burst"`
}

type Exclude struct {
	Files []string `toml:"files"`
}

type Database struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Session string `toml:"session"`
}

type Diagnostics struct {
	MaxHeapGrowthBytes uint64        `toml:"max_heap_growth_bytes"`
	MaxReloadDuration  time.Duration `toml:"max_reload_duration"`
	StressCycles       int           `toml:"stress_cycles"`
}

type Cache struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}

// NoticeEnabled reports the effective first-run notice flag.
func (l Less) NoticeEnabled() bool {
	return l.Notice == nil || *l.Notice
}

// IsEnabled reports the effective warm-start cache flag.
func (c Cache) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Load decodes, defaults and validates the config at path. A relative or
// empty project_root is taken relative to the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.ProjectRoot = ResolveRelative(base, cfg.ProjectRoot)

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	normalizeLess(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateLess(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateDiagnostics(&cfg); err != nil {
		return nil, err
	}
	if err := validateStorage(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the config used when no config file exists.
func Default(projectRoot string) *Config {
	cfg := &Config{ProjectRoot: filepath.Clean(projectRoot)}
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)
	normalizeLess(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.StateDir) == "" {
		cfg.StateDir = ".easierless"
	}

	if strings.TrimSpace(cfg.Less.DefaultExtension) == "" {
		cfg.Less.DefaultExtension = ".less"
	}
	if len(cfg.Less.AliasFiles) == 0 {
		cfg.Less.AliasFiles = []string{"jsconfig.json", "tsconfig.json"}
	}

	if cfg.Import.UnlockDelay <= 0 {
		cfg.Import.UnlockDelay = 500 * time.Millisecond
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.ReloadRate == 0 {
		cfg.Watch.ReloadRate = 2
	}
	if cfg.Watch.ReloadBurst <= 0 {
		cfg.Watch.ReloadBurst = 4
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "history.db"
	}
	if strings.TrimSpace(cfg.DB.Session) == "" {
		cfg.DB.Session = "default"
	}

	if cfg.Diagnostics.MaxHeapGrowthBytes == 0 {
		cfg.Diagnostics.MaxHeapGrowthBytes = 10 * 1024 * 1024
	}
	if cfg.Diagnostics.MaxReloadDuration <= 0 {
		cfg.Diagnostics.MaxReloadDuration = 2 * time.Second
	}
	if cfg.Diagnostics.StressCycles <= 0 {
		cfg.Diagnostics.StressCycles = 5
	}

	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = "index.msgpack"
	}
}

func normalizeLess(cfg *Config) {
	files := make([]string, 0, len(cfg.Less.Files))
	for _, f := range cfg.Less.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	cfg.Less.Files = files
	ext := strings.TrimSpace(cfg.Less.DefaultExtension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	cfg.Less.DefaultExtension = ext
}
