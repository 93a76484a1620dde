package config

import (
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	StateDir    string
	DBPath      string
	CachePath   string
}

// ResolvePaths makes every configured location absolute. Relative state
// locations live under the project root.
func ResolvePaths(cfg *Config) ResolvedPaths {
	projectRoot := filepath.Clean(cfg.ProjectRoot)
	stateDir := ResolveRelative(projectRoot, cfg.StateDir)
	return ResolvedPaths{
		ProjectRoot: projectRoot,
		StateDir:    stateDir,
		DBPath:      ResolveRelative(stateDir, cfg.DB.Path),
		CachePath:   ResolveRelative(stateDir, cfg.Cache.Path),
	}
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate until a directory holding
// a project marker is found, falling back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFileName,
		"package.json",
		"tsconfig.json",
		"jsconfig.json",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
