package session

import (
	"easierless/internal/data/query"
	"easierless/internal/engine/lookup"
	"path/filepath"
	"strings"
)

// Hover returns the hover text for the symbol under cursorPos in lineText.
func (s *Session) Hover(documentPath, lineText string, cursorPos int) (string, bool) {
	gen := s.Current()
	return lookup.Hover(gen.Table, lineText, cursorPos, filepath.Clean(documentPath), gen.Roots)
}

// Definitions locates the symbol under cursorPos in lineText across the
// loaded files.
func (s *Session) Definitions(documentPath, lineText string, cursorPos int) []lookup.Location {
	word := lookup.DefinitionWordAt(lineText, cursorPos)
	if word == "" {
		return nil
	}
	gen := s.Current()
	return lookup.FindDefinitions(gen.Records, word, filepath.Clean(documentPath), gen.Roots)
}

// Completions lists variables followed by mixins and classes.
func (s *Session) Completions() []lookup.CompletionItem {
	gen := s.Current()
	items := lookup.VariableCompletions(gen.Table)
	return append(items, lookup.DefinitionCompletions(gen.Table)...)
}

// CompleteAt lists completions for the cursor at offset in text. Documents
// that are not stylesheets only complete inside a <style> block.
func (s *Session) CompleteAt(documentPath, text string, offset int) []lookup.CompletionItem {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	ext := strings.ToLower(filepath.Ext(documentPath))
	if ext != "" && ext != s.opts.DefaultExtension && !lookup.IsInStyleTag(text, offset) {
		return nil
	}
	left := text[strings.LastIndexByte(text[:offset], '\n')+1 : offset]
	right := text[offset:]
	if i := strings.IndexByte(right, '\n'); i >= 0 {
		right = right[:i]
	}
	return lookup.CompletionsAt(s.Current().Table, left, strings.TrimSuffix(right, "\r"))
}

// Query runs a SELECT over the current index.
func (s *Session) Query(raw string, limit int) ([]query.Row, error) {
	q, err := query.Parse(raw)
	if err != nil {
		return nil, err
	}
	gen := s.Current()
	items := append(lookup.VariableCompletions(gen.Table), lookup.DefinitionCompletions(gen.Table)...)
	rows := make([]query.Row, 0, len(items))
	for _, item := range items {
		src, _ := gen.Table.SourceOf(item.Symbol)
		rows = append(rows, query.Row{
			Name:   item.Symbol,
			Value:  item.Detail,
			Kind:   item.Kind.String(),
			Source: src,
		})
	}
	return query.Execute(q, rows, limit), nil
}
