package alias

import (
	"context"
	"easierless/internal/core/errors"
	"easierless/internal/core/ports"
	"log/slog"
	"path/filepath"
)

// DefaultConfigFiles are probed in order under the workspace root.
var DefaultConfigFiles = []string{"jsconfig.json", "tsconfig.json"}

// Load parses the first existing config file among names under workspaceRoot.
// It never fails: unreadable or malformed configs yield an empty Config and
// are only logged. The returned path is the file that was used, if any.
func Load(ctx context.Context, fs ports.FileSystem, workspaceRoot string, names []string) (*Config, string) {
	if len(names) == 0 {
		names = DefaultConfigFiles
	}
	for _, name := range names {
		path := filepath.Join(workspaceRoot, name)
		if !fs.Exists(ctx, path) {
			continue
		}
		data, err := fs.ReadFile(ctx, path)
		if err != nil {
			slog.Warn("alias config unreadable, continuing without aliases", "path", path, "error", err)
			return Empty(), path
		}
		cfg, err := Parse(data, workspaceRoot)
		if err != nil {
			err = errors.AddContext(err, errors.CtxPath, path)
			slog.Warn("alias config malformed, continuing without aliases", "error", err)
			return Empty(), path
		}
		slog.Debug("alias config loaded", "path", path, "aliases", cfg.Len())
		return cfg, path
	}
	return Empty(), ""
}
