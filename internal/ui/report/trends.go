package report

import (
	"easierless/internal/core/ports"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RenderSnapshotsTSV renders a snapshot series with the heap delta to the
// previous row.
func RenderSnapshotsTSV(snapshots []ports.RuntimeSnapshot) []byte {
	var buf strings.Builder

	buf.WriteString("TakenAt\tLabel\tGeneration\tHeapBytes\tDeltaHeapBytes\tReloadMs\tWatchers\tRegistrations\tFiles\tSymbols\n")
	var prevHeap uint64
	for i, s := range snapshots {
		var delta int64
		if i > 0 {
			delta = int64(s.HeapUsedBytes) - int64(prevHeap)
		}
		prevHeap = s.HeapUsedBytes
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.TakenAt.UTC().Format(time.RFC3339),
			s.Label,
			s.ReloadGenerationID,
			s.HeapUsedBytes,
			delta,
			s.ReloadDuration.Milliseconds(),
			s.WatcherCount,
			s.RegistrationCount,
			s.LoadedFiles,
			s.CompletionSymbols,
		)
	}
	return []byte(buf.String())
}

type snapshotJSON struct {
	TakenAt           time.Time `json:"taken_at"`
	Label             string    `json:"label"`
	Generation        string    `json:"generation,omitempty"`
	HeapUsedBytes     uint64    `json:"heap_used_bytes"`
	ReloadMillis      int64     `json:"reload_ms"`
	WatcherCount      int       `json:"watcher_count"`
	RegistrationCount int       `json:"registration_count"`
	LoadedFiles       int       `json:"loaded_files"`
	CompletionSymbols int       `json:"completion_symbols"`
}

type seriesJSON struct {
	Pass      *bool          `json:"pass,omitempty"`
	Reasons   []string       `json:"reasons,omitempty"`
	Snapshots []snapshotJSON `json:"snapshots"`
}

// RenderSnapshotsJSON renders a snapshot series. pass is omitted when nil.
func RenderSnapshotsJSON(snapshots []ports.RuntimeSnapshot, pass *bool, reasons []string) ([]byte, error) {
	out := seriesJSON{Pass: pass, Reasons: reasons, Snapshots: make([]snapshotJSON, 0, len(snapshots))}
	for _, s := range snapshots {
		out.Snapshots = append(out.Snapshots, snapshotJSON{
			TakenAt:           s.TakenAt.UTC(),
			Label:             s.Label,
			Generation:        s.ReloadGenerationID,
			HeapUsedBytes:     s.HeapUsedBytes,
			ReloadMillis:      s.ReloadDuration.Milliseconds(),
			WatcherCount:      s.WatcherCount,
			RegistrationCount: s.RegistrationCount,
			LoadedFiles:       s.LoadedFiles,
			CompletionSymbols: s.CompletionSymbols,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
