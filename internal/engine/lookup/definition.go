package lookup

import (
	"easierless/internal/engine/lesstext"
	"easierless/internal/engine/loader"
	"easierless/internal/engine/symbols"
	"path/filepath"
	"strings"
)

// Location is a 0-based line in a file.
type Location struct {
	Path string
	Line int
}

// FindDefinitions returns, for every loaded file mentioning word outside a
// comment, the line of its first mention. Nothing is returned when the
// requesting document is itself a configured root.
func FindDefinitions(records []loader.FileRecord, word, documentPath string, roots []string) []Location {
	if !IsSymbolWord(word) || isRoot(documentPath, roots) {
		return nil
	}

	var out []Location
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.Path] {
			continue
		}
		seen[rec.Path] = true

		idx := strings.Index(lesstext.Neutralize(rec.Content), word)
		if idx == -1 {
			continue
		}
		out = append(out, Location{Path: rec.Path, Line: lesstext.LineOf(rec.Content, idx)})
	}
	return out
}

// Hover returns the formatted definition of the symbol under the cursor.
func Hover(table *symbols.Table, lineText string, cursorPos int, documentPath string, roots []string) (string, bool) {
	if table == nil || isRoot(documentPath, roots) {
		return "", false
	}
	key := DetectSearchKey(lineText, cursorPos)
	if key == "" {
		return "", false
	}
	def, ok := table.Lookup(key)
	if !ok || def == "" {
		return "", false
	}
	return FormatHover(key, def), true
}

func isRoot(path string, roots []string) bool {
	clean := filepath.Clean(path)
	for _, r := range roots {
		if filepath.Clean(r) == clean {
			return true
		}
	}
	return false
}
