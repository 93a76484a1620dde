package report

import (
	"easierless/internal/data/history"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiagnosticsMarker names the block InjectDiagnostics rewrites.
const DiagnosticsMarker = "diagnostics"

// RenderDiagnosticsMarkdown renders a stress verdict and its snapshot series.
func RenderDiagnosticsMarkdown(result history.Result, th history.Thresholds) string {
	var b strings.Builder

	verdict := "PASS"
	if !result.Pass {
		verdict = "FAIL"
	}
	fmt.Fprintf(&b, "### Reload diagnostics: %s\n\n", verdict)
	fmt.Fprintf(&b, "Thresholds: heap growth <= %d bytes, reload <= %s\n\n", th.MaxHeapGrowthBytes, th.MaxReloadDuration)

	if len(result.Reasons) > 0 {
		for _, reason := range result.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("| # | Label | Heap | Reload | Watchers | Registrations | Files | Symbols |\n")
	b.WriteString("|---|-------|------|--------|----------|---------------|-------|---------|\n")
	for i, s := range result.Snapshots {
		fmt.Fprintf(&b, "| %d | %s | %d | %s | %d | %d | %d | %d |\n",
			i+1, s.Label, s.HeapUsedBytes, s.ReloadDuration, s.WatcherCount, s.RegistrationCount, s.LoadedFiles, s.CompletionSymbols)
	}
	return b.String()
}

// InjectDiagnostics replaces the diagnostics marker block of an existing
// markdown file, or writes content as a new file when path does not exist.
func InjectDiagnostics(filePath, content string) error {
	existing, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return writeAtomic(filePath, content)
	}
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}

	next, err := ReplaceBetweenMarkers(string(existing), DiagnosticsMarker, content)
	if err != nil {
		return err
	}
	return writeAtomic(filePath, next)
}

func writeAtomic(filePath, content string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".easierless-report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", filePath, err)
	}
	tmpName := tmp.Name()

	writeErr := error(nil)
	if _, err := tmp.WriteString(content); err != nil {
		writeErr = fmt.Errorf("write temp report file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close temp report file %q: %w", tmpName, err)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace report file %q: %w", filePath, err)
	}
	return nil
}

func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start := fmt.Sprintf("<!-- easierless:%s:start -->", marker)
	end := fmt.Sprintf("<!-- easierless:%s:end -->", marker)
	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", marker)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", marker)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	cleanReplacement := strings.TrimRight(replacement, "\r\n")

	return prefix + newline + cleanReplacement + newline + suffix, nil
}
