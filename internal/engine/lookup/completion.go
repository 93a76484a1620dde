package lookup

import (
	"easierless/internal/engine/symbols"
	"strings"
)

// ItemKind classifies completion items.
type ItemKind int

const (
	KindVariable ItemKind = iota
	KindColor
	KindMethod
)

func (k ItemKind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindMethod:
		return "method"
	}
	return "variable"
}

// CompletionItem is one completion proposal.
type CompletionItem struct {
	// Symbol is the index key, including its sigil.
	Symbol     string
	Label      string
	Detail     string
	Kind       ItemKind
	FilterText string
	// InsertText is set by CompletionsAt for the cursor context it was
	// built for.
	InsertText string
}

// VariableCompletions lists every variable, flagging color candidates.
func VariableCompletions(table *symbols.Table) []CompletionItem {
	out := make([]CompletionItem, 0, table.Variables().Len())
	for p := table.Variables().Oldest(); p != nil; p = p.Next() {
		name, value := p.Key, p.Value
		label := strings.TrimPrefix(name, "@")
		kind := KindVariable
		if symbols.IsColorVariable(name, value) {
			kind = KindColor
		}
		out = append(out, CompletionItem{
			Symbol:     name,
			Label:      label,
			Detail:     value,
			Kind:       kind,
			FilterText: "@" + label,
		})
	}
	return out
}

// DefinitionCompletions lists every mixin and class.
func DefinitionCompletions(table *symbols.Table) []CompletionItem {
	out := make([]CompletionItem, 0, table.Definitions().Len())
	for p := table.Definitions().Oldest(); p != nil; p = p.Next() {
		name, block := p.Key, p.Value
		label := strings.TrimPrefix(name, ".")
		out = append(out, CompletionItem{
			Symbol:     name,
			Label:      label,
			Detail:     block,
			Kind:       KindMethod,
			FilterText: "." + label,
		})
	}
	return out
}

func shouldAppendSemicolon(rightText string) bool {
	trimmed := strings.TrimLeft(rightText, " \t\r\n")
	return trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
}

type methodCall struct {
	full         string
	args         string
	hasSemicolon bool
}

// leadingMethodCall parses a parenthesized argument list at the start of
// rightText, plus an optional following semicolon.
func leadingMethodCall(rightText string) (methodCall, bool) {
	i := 0
	for i < len(rightText) && isSpace(rightText[i]) {
		i++
	}
	if i >= len(rightText) || rightText[i] != '(' {
		return methodCall{}, false
	}

	open := i
	depth := 0
	var quote byte
	escaped := false
	for ; i < len(rightText); i++ {
		ch := rightText[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
			continue
		}
		if ch == '(' {
			depth++
			continue
		}
		if ch == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	if depth != 0 || i >= len(rightText) {
		return methodCall{}, false
	}

	end := i + 1
	probe := end
	for probe < len(rightText) && isSpace(rightText[probe]) {
		probe++
	}
	call := methodCall{args: rightText[open+1 : i]}
	if probe < len(rightText) && rightText[probe] == ';' {
		call.hasSemicolon = true
		end = probe + 1
	}
	call.full = rightText[:end]
	return call, true
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

// DotCompletionInsertText is the snippet inserted for a class or mixin
// completion given the text right of the cursor. "$1" marks the argument
// placeholder.
func DotCompletionInsertText(key, definition, rightText string) string {
	label := strings.TrimPrefix(key, ".")
	if !methodLike.MatchString(definition) {
		if leadingSemicolon.MatchString(rightText) || !shouldAppendSemicolon(rightText) {
			return label
		}
		return label + ";"
	}

	if call, ok := leadingMethodCall(rightText); ok {
		bare := strings.TrimRight(trailingSemicolon.ReplaceAllString(call.full, ""), " \t\r\n")
		needSemicolon := call.hasSemicolon || shouldAppendSemicolon(rightText[len(call.full):])
		if strings.TrimSpace(call.args) != "" {
			if needSemicolon {
				return label + bare + ";"
			}
			return label + bare
		}
		if needSemicolon {
			return label + "($1);"
		}
		return label + "($1)"
	}

	if leadingSemicolon.MatchString(rightText) || !shouldAppendSemicolon(rightText) {
		return label + "($1)"
	}
	return label + "($1);"
}

// DotCompletionSuffixReplaceLength is how much text right of the cursor a
// mixin completion replaces: an existing call with its semicolon.
func DotCompletionSuffixReplaceLength(definition, rightText string) int {
	if !methodLike.MatchString(definition) {
		return 0
	}
	if call, ok := leadingMethodCall(rightText); ok {
		return len(call.full)
	}
	return 0
}

// AtCompletionInsertText is the text inserted for a variable completion.
func AtCompletionInsertText(label, rightText string, keepAtPrefix bool) string {
	base := label
	if keepAtPrefix {
		base = "@" + label
	}
	if leadingSemicolon.MatchString(rightText) || !shouldAppendSemicolon(rightText) {
		return base
	}
	return base + ";"
}

// CompletionsAt lists the items that fit the cursor position of one line.
// leftText ends at the cursor and rightText is the rest of the line. A
// partially typed "@name" keeps variables only, a bare property value offers
// variables with their "@", and a class marker offers mixins and classes.
func CompletionsAt(table *symbols.Table, leftText, rightText string) []CompletionItem {
	if partial, ok := MatchAtCompletion(leftText); ok {
		return variablesWithPrefix(table, partial, rightText, false)
	}
	if partial, ok := MatchPropertyValueCompletion(leftText); ok {
		return variablesWithPrefix(table, strings.TrimPrefix(partial, "@"), rightText, true)
	}
	if !ShouldTriggerDotCompletion(leftText) {
		return nil
	}
	partial := leftText[strings.LastIndexByte(leftText, '.')+1:]
	var out []CompletionItem
	for _, item := range DefinitionCompletions(table) {
		if !strings.HasPrefix(item.Label, partial) {
			continue
		}
		item.InsertText = DotCompletionInsertText(item.Symbol, item.Detail, rightText)
		out = append(out, item)
	}
	return out
}

func variablesWithPrefix(table *symbols.Table, partial, rightText string, keepAtPrefix bool) []CompletionItem {
	var out []CompletionItem
	for _, item := range VariableCompletions(table) {
		if !strings.HasPrefix(item.Label, partial) {
			continue
		}
		item.InsertText = AtCompletionInsertText(item.Label, rightText, keepAtPrefix)
		out = append(out, item)
	}
	return out
}
