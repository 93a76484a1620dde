// Package workspace adapts local storage to the engine ports.
package workspace

import (
	"context"
	"easierless/internal/core/errors"
	"easierless/internal/core/ports"
	"fmt"
	"log/slog"
	"os"

	"github.com/viant/afs"
)

// FS reads workspace files through an afs service.
type FS struct {
	service afs.Service
}

var _ ports.FileSystem = (*FS)(nil)

// NewFS returns an FS over service, or over a fresh afs service when nil.
func NewFS(service afs.Service) *FS {
	if service == nil {
		service = afs.New()
	}
	return &FS{service: service}
}

func (f *FS) Exists(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}
	ok, err := f.service.Exists(ctx, path)
	if err != nil {
		slog.Debug("exists check failed", "path", path, "error", err)
		return false
	}
	return ok
}

func (f *FS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := f.service.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeFileRead, "read file"), errors.CtxPath, path)
	}
	return data, nil
}

// Editor inserts text directly into files on disk.
type Editor struct{}

var _ ports.DocumentEditor = Editor{}

func (Editor) InsertText(ctx context.Context, path string, offset int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeFileRead, "stat document"), errors.CtxPath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeFileRead, "read document"), errors.CtxPath, path)
	}
	if offset < 0 || offset > len(data) {
		msg := fmt.Sprintf("offset %d outside document of %d bytes", offset, len(data))
		return errors.AddContext(errors.New(errors.CodeInsertion, msg), errors.CtxPath, path)
	}

	out := make([]byte, 0, len(data)+len(text))
	out = append(out, data[:offset]...)
	out = append(out, text...)
	out = append(out, data[offset:]...)
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInsertion, "write document"), errors.CtxPath, path)
	}
	return nil
}

// LogNotifier forwards notifications to slog.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ ports.Notifier = LogNotifier{}

func (n LogNotifier) Info(msg string) { n.logger().Info(msg) }
func (n LogNotifier) Warn(msg string) { n.logger().Warn(msg) }

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
