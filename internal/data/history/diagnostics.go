package history

import (
	"context"
	"easierless/internal/core/ports"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Thresholds bound acceptable runtime behaviour across reloads.
type Thresholds struct {
	MaxHeapGrowthBytes uint64
	MaxReloadDuration  time.Duration
}

// DefaultThresholds allows 10 MiB of heap growth and 2s per reload.
var DefaultThresholds = Thresholds{
	MaxHeapGrowthBytes: 10 * 1024 * 1024,
	MaxReloadDuration:  2 * time.Second,
}

// Result is the verdict over a snapshot series.
type Result struct {
	Pass      bool
	Reasons   []string
	Snapshots []ports.RuntimeSnapshot
}

// Evaluate fails when there are no snapshots, when heap grew more than
// allowed between the first and last snapshot, when any reload was too slow,
// or when watcher or registration counts grow from one snapshot to the next.
func Evaluate(th Thresholds, snapshots []ports.RuntimeSnapshot) Result {
	if len(snapshots) == 0 {
		return Result{Reasons: []string{"no diagnostic snapshots available"}}
	}

	var reasons []string
	first, last := snapshots[0], snapshots[len(snapshots)-1]
	if last.HeapUsedBytes > first.HeapUsedBytes {
		if growth := last.HeapUsedBytes - first.HeapUsedBytes; growth > th.MaxHeapGrowthBytes {
			reasons = append(reasons, fmt.Sprintf("heap growth over threshold: %d > %d", growth, th.MaxHeapGrowthBytes))
		}
	}

	for i, s := range snapshots {
		if s.ReloadDuration > th.MaxReloadDuration {
			reasons = append(reasons, fmt.Sprintf("reload %d over threshold: %s > %s", i+1, s.ReloadDuration, th.MaxReloadDuration))
		}
	}

	for i := 1; i < len(snapshots); i++ {
		prev, curr := snapshots[i-1], snapshots[i]
		if curr.WatcherCount > prev.WatcherCount {
			reasons = append(reasons, fmt.Sprintf("watcher count trending up: %d -> %d", prev.WatcherCount, curr.WatcherCount))
			break
		}
		if curr.RegistrationCount > prev.RegistrationCount {
			reasons = append(reasons, fmt.Sprintf("registration count trending up: %d -> %d", prev.RegistrationCount, curr.RegistrationCount))
			break
		}
	}

	return Result{
		Pass:      len(reasons) == 0,
		Reasons:   reasons,
		Snapshots: append([]ports.RuntimeSnapshot(nil), snapshots...),
	}
}

// Recorder collects the snapshots of one session in memory and mirrors them
// to an optional store.
type Recorder struct {
	session string
	store   ports.SnapshotStore

	mu        sync.Mutex
	snapshots []ports.RuntimeSnapshot
}

// NewRecorder returns a Recorder. store may be nil.
func NewRecorder(session string, store ports.SnapshotStore) *Recorder {
	return &Recorder{session: session, store: store}
}

// Record appends snapshot and persists it when a store is configured.
// Persistence failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, snapshot ports.RuntimeSnapshot) {
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.snapshots = append(r.snapshots, snapshot)
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.SaveSnapshot(ctx, r.session, snapshot); err != nil {
		slog.Warn("persist runtime snapshot failed", "session", r.session, "error", err)
	}
}

// Snapshots returns a copy of the recorded series.
func (r *Recorder) Snapshots() []ports.RuntimeSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.RuntimeSnapshot(nil), r.snapshots...)
}

// Len reports how many snapshots were recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// Clear drops the in-memory series.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.snapshots = nil
	r.mu.Unlock()
}

// RunStress clears the recorder, runs reloadOnce cycles times and evaluates
// the series. A cycle whose reload did not record a snapshot itself has the
// returned snapshot recorded. Progress is drawn on progress when non-nil.
func RunStress(
	ctx context.Context,
	rec *Recorder,
	cycles int,
	reloadOnce func(context.Context) (ports.RuntimeSnapshot, error),
	th Thresholds,
	progress io.Writer,
) (Result, error) {
	rec.Clear()

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(cycles,
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("stress reloads"),
			progressbar.OptionShowCount(),
		)
	}

	for i := 0; i < cycles; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		before := rec.Len()
		snapshot, err := reloadOnce(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("stress cycle %d: %w", i+1, err)
		}
		if rec.Len() == before {
			rec.Record(ctx, snapshot)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return Evaluate(th, rec.Snapshots()), nil
}
