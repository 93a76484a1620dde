// Package loader follows @import chains from configured root stylesheets and
// collects every reachable file.
package loader

import (
	"context"
	"easierless/internal/core/errors"
	"easierless/internal/core/ports"
	"easierless/internal/engine/imports"
	"easierless/internal/engine/lesstext"
	"easierless/internal/shared/observability"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// FileRecord is one loaded file. Root is the configured entry file whose
// traversal reached it.
type FileRecord struct {
	Path    string
	Content string
	Root    string
}

// Loader reads import graphs through a FileSystem.
type Loader struct {
	fs       ports.FileSystem
	analyzer *imports.Analyzer
	// MaxParallelRoots bounds concurrent root traversals; <=0 means unbounded.
	MaxParallelRoots int
}

// New returns a Loader resolving specifiers with analyzer.
func New(fs ports.FileSystem, analyzer *imports.Analyzer) *Loader {
	return &Loader{fs: fs, analyzer: analyzer}
}

// Visited is the per-traversal guard against revisiting a file.
type Visited map[string]struct{}

// ReadFileWithImports returns rootPath followed by everything it imports,
// depth-first in import statement order. Files already in visited yield
// nothing. A root that cannot be read yields no records; unreadable imports
// are skipped.
func (l *Loader) ReadFileWithImports(ctx context.Context, rootPath string, visited Visited) []FileRecord {
	root := l.absolute(rootPath)
	var out []FileRecord
	l.walk(ctx, root, root, visited, &out)
	return out
}

func (l *Loader) walk(ctx context.Context, path, root string, visited Visited, out *[]FileRecord) {
	if _, seen := visited[path]; seen {
		return
	}
	visited[path] = struct{}{}
	if ctx.Err() != nil {
		return
	}

	data, err := l.fs.ReadFile(ctx, path)
	if err != nil {
		err = errors.AddContext(err, errors.CtxRoot, root)
		if path == root {
			slog.Warn("root stylesheet unreadable", "error", err)
		} else {
			slog.Debug("skipping unreadable import", "error", err)
		}
		observability.ImportReadFailures.Inc()
		return
	}

	content := string(data)
	*out = append(*out, FileRecord{Path: path, Content: content, Root: root})

	dir := filepath.Dir(path)
	for _, stmt := range lesstext.ScanImports(content) {
		next, ok := l.resolveExisting(ctx, stmt.Specifier, dir)
		if !ok {
			continue
		}
		l.walk(ctx, next, root, visited, out)
	}
}

// resolveExisting resolves specifier and, when it has no extension, prefers
// the default-extension variant if that exists.
func (l *Loader) resolveExisting(ctx context.Context, specifier, dir string) (string, bool) {
	resolved, ok := l.analyzer.ResolveSpecifier(specifier, dir)
	if !ok {
		return "", false
	}
	if filepath.Ext(resolved) == "" {
		withExt, _ := l.analyzer.ResolveImportSpecifierToAbsolute(specifier, dir)
		if l.fs.Exists(ctx, withExt) {
			return withExt, true
		}
	}
	if l.fs.Exists(ctx, resolved) {
		return resolved, true
	}
	return "", false
}

func (l *Loader) absolute(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(l.analyzer.WorkspaceRoot, p)
}

// Load traverses every root with its own visited set and concatenates the
// records in root order. Roots are read concurrently; the result is the same
// as reading them one after another.
func (l *Loader) Load(ctx context.Context, rootPaths []string) ([]FileRecord, error) {
	ctx, span := observability.Tracer.Start(ctx, "loader.Load", trace.WithAttributes(
		attribute.Int("roots", len(rootPaths)),
	))
	defer span.End()

	slots := make([][]FileRecord, len(rootPaths))
	g, gctx := errgroup.WithContext(ctx)
	if l.MaxParallelRoots > 0 {
		g.SetLimit(l.MaxParallelRoots)
	}
	for i, root := range rootPaths {
		g.Go(func() error {
			slots[i] = l.ReadFileWithImports(gctx, root, Visited{})
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	total := 0
	for _, s := range slots {
		total += len(s)
	}
	records := make([]FileRecord, 0, total)
	for _, s := range slots {
		records = append(records, s...)
	}
	span.SetAttributes(attribute.Int("files", len(records)))
	observability.FilesLoaded.Set(float64(len(records)))
	return records, nil
}

// Paths returns the distinct file paths of records in first-seen order.
func Paths(records []FileRecord) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Path]; ok {
			continue
		}
		seen[r.Path] = struct{}{}
		out = append(out, r.Path)
	}
	return out
}
