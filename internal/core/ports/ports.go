package ports

import (
	"context"
	"time"
)

// FileSystem abstracts workspace reads so engines never touch the OS directly.
type FileSystem interface {
	Exists(ctx context.Context, path string) bool
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// DocumentEditor applies a single text insertion to an open document.
type DocumentEditor interface {
	InsertText(ctx context.Context, path string, offset int, text string) error
}

// Notifier surfaces user-facing messages from the engines.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
}

// RuntimeSnapshot is one sample of process health taken around a reload.
type RuntimeSnapshot struct {
	Label              string
	TakenAt            time.Time
	HeapUsedBytes      uint64
	ReloadDuration     time.Duration
	WatcherCount       int
	RegistrationCount  int
	LoadedFiles        int
	CompletionSymbols  int
	ReloadGenerationID string
}

// SnapshotStore abstracts runtime snapshot persistence for diagnostics.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, session string, snapshot RuntimeSnapshot) error
	LoadSnapshots(ctx context.Context, session string) ([]RuntimeSnapshot, error)
}
