package config

import (
	"easierless/internal/shared/util"
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateLess(cfg *Config) error {
	for i, f := range cfg.Less.Files {
		if strings.ContainsAny(f, "*?[]{}") {
			return fmt.Errorf("less.files[%d] %q must name a single file, wildcards are not supported", i, f)
		}
	}
	if cfg.Less.DefaultExtension == "." {
		return fmt.Errorf("less.default_extension must not be empty")
	}
	for i, name := range cfg.Less.AliasFiles {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("less.alias_files[%d] must not be empty", i)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateDiagnostics(cfg *Config) error {
	if cfg.Diagnostics.MaxReloadDuration <= 0 {
		return fmt.Errorf("diagnostics.max_reload_duration must be positive")
	}
	if cfg.Diagnostics.StressCycles > 1000 {
		return fmt.Errorf("diagnostics.stress_cycles must be <= 1000, got %d", cfg.Diagnostics.StressCycles)
	}
	return nil
}

func validateStorage(cfg *Config) error {
	paths := ResolvePaths(cfg)
	if cfg.DB.Enabled && cfg.Cache.IsEnabled() && (util.HasPathPrefix(paths.DBPath, paths.CachePath) || util.HasPathPrefix(paths.CachePath, paths.DBPath)) {
		return fmt.Errorf("db.path and cache.path must not overlap: %q", paths.DBPath)
	}
	return nil
}

// Validate collects every problem instead of stopping at the first.
func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateLess(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateDiagnostics(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(cfg); err != nil {
		errs = append(errs, err)
	}

	// Path verification
	errs = append(errs, validatePaths(cfg)...)

	return errs
}

func validatePaths(cfg *Config) []error {
	var errs []error

	root := strings.TrimSpace(cfg.ProjectRoot)
	if root == "" {
		return append(errs, fmt.Errorf("project_root must not be empty"))
	}
	stat, err := os.Stat(root)
	if os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("project_root %q does not exist", root))
	} else if err == nil && !stat.IsDir() {
		errs = append(errs, fmt.Errorf("project_root %q is not a directory", root))
	}

	return errs
}
