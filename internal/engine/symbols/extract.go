package symbols

import (
	"context"
	"easierless/internal/core/errors"
	"easierless/internal/engine/lesstext"
	"easierless/internal/engine/loader"
	"easierless/internal/shared/observability"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	variableLine = regexp.MustCompile(`^@([A-Za-z0-9_-]+)\s*:(.*)$`)
	// A class-marked identifier, its argument list, whitespace, then a body
	// up to the first closing brace. Nested braces are not balanced.
	mixinBlock = regexp.MustCompile(`\.[A-Za-z_-][\w-]*\s*\(.*?\)\s+\{[\s\S]*?\}`)
	classBlock = regexp.MustCompile(`\.([a-zA-Z0-9_-]+)\s*\{[^}]*\}`)
	className  = regexp.MustCompile(`^\.[a-zA-Z0-9_-]+`)
)

// Extract indexes records in order, attributing every symbol to the root
// that loaded its file. A file that fails to extract is logged and skipped.
func Extract(ctx context.Context, records []loader.FileRecord) *Table {
	_, span := observability.Tracer.Start(ctx, "symbols.Extract", trace.WithAttributes(
		attribute.Int("files", len(records)),
	))
	defer span.End()
	start := time.Now()

	table := NewTable()
	for _, rec := range records {
		if err := extractFile(table, rec); err != nil {
			span.RecordError(err)
			slog.Warn("symbol extraction skipped file", "error", err)
		}
	}

	observability.ExtractionDuration.Observe(time.Since(start).Seconds())
	observability.SymbolsIndexed.WithLabelValues("variable").Set(float64(table.variables.Len()))
	observability.SymbolsIndexed.WithLabelValues("definition").Set(float64(table.definitions.Len()))
	return table
}

func extractFile(table *Table, rec loader.FileRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.AddContext(
				errors.New(errors.CodeExtraction, fmt.Sprintf("extract symbols: %v", r)),
				errors.CtxPath, rec.Path,
			)
		}
	}()

	// Matching runs on neutralized text so commented-out declarations are
	// not indexed; offsets are shared with the raw content.
	clean := lesstext.Neutralize(rec.Content)

	for _, line := range strings.Split(clean, "\n") {
		name, value, ok := parseVariableLine(strings.TrimSuffix(line, "\r"))
		if ok {
			table.AddVariable(name, value, rec.Root)
		}
	}

	for _, loc := range mixinBlock.FindAllStringIndex(clean, -1) {
		block := rec.Content[loc[0]:loc[1]]
		name := mixinName(block)
		if name == "" {
			continue
		}
		table.AddDefinition(name, block, rec.Root)
	}

	for _, loc := range classBlock.FindAllStringIndex(clean, -1) {
		block := rec.Content[loc[0]:loc[1]]
		name := className.FindString(block)
		if name == "" || hasKey(table.definitions, name) || strings.Contains(block, "(") {
			continue
		}
		table.AddDefinition(name, block, rec.Root)
	}
	return nil
}

// parseVariableLine splits "@name: value;" at the first colon. The value ends
// at the first semicolon outside quotes and parentheses.
func parseVariableLine(line string) (string, string, bool) {
	m := variableLine.FindStringSubmatch(line)
	if m == nil || m[1] == "import" {
		return "", "", false
	}
	return "@" + m[1], strings.TrimSpace(cutStatement(m[2])), true
}

func cutStatement(value string) string {
	var quote byte
	depth := 0
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case ch == ';' && depth == 0:
			return value[:i]
		}
	}
	return value
}

// mixinName is the header up to the first "(" or whitespace followed by "{".
func mixinName(block string) string {
	for i := 1; i < len(block); i++ {
		switch block[i] {
		case '(':
			return strings.TrimSpace(block[:i])
		case ' ', '\t', '\n', '\r':
			j := i
			for j < len(block) && strings.IndexByte(" \t\n\r", block[j]) >= 0 {
				j++
			}
			if j < len(block) && block[j] == '{' {
				return block[:i]
			}
		}
	}
	return ""
}
