// Package lookup serves hover, go-to-definition and completion from a
// built symbol index.
package lookup

import (
	"regexp"
	"strings"
)

var (
	atCompletion      = regexp.MustCompile(`@([\w-]*)$`)
	valueCompletion   = regexp.MustCompile(`:\s*(@[\w-]*)?$`)
	dotCompletion     = regexp.MustCompile(`(?:^|[\s,{;(])\.[\w.-]*$`)
	identifierPrefix  = regexp.MustCompile(`^[\w-]*`)
	methodLike        = regexp.MustCompile(`^\s*\.[a-zA-Z0-9_-]+\s*\([^)]*\)\s*\{`)
	hoverBlock        = regexp.MustCompile(`(\.[a-zA-Z0-9_-]+(?:\([^)]*\))?)\s*\{([^}]*)\}`)
	declarationSplit  = regexp.MustCompile(`;\s*`)
	classWord         = regexp.MustCompile(`^\.[a-zA-Z0-9_-]+`)
	variableWord      = regexp.MustCompile(`(?i)^@([a-zA-Z0-9_-]+)`)
	leadingSemicolon  = regexp.MustCompile(`^\s*;`)
	trailingSemicolon = regexp.MustCompile(`\s*;\s*$`)
)

func isIdentByte(ch byte) bool {
	return ch == '_' || ch == '-' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

// IsInStyleTag reports whether offset lies inside an opened <style> block.
func IsInStyleTag(text string, offset int) bool {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	open := strings.LastIndex(before, "<style")
	closing := strings.LastIndex(before, "</style>")
	if open == -1 || open <= closing {
		return false
	}
	tagEnd := strings.IndexByte(text[open:], '>')
	return tagEnd != -1 && offset > open+tagEnd
}

// IsInParentheses reports whether lineText ends inside an open parenthesis.
func IsInParentheses(lineText string) bool {
	depth := 0
	for i := 0; i < len(lineText); i++ {
		switch lineText[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth > 0
}

// MatchAtCompletion returns the partial variable name typed after "@".
func MatchAtCompletion(lineText string) (string, bool) {
	m := atCompletion.FindStringSubmatch(lineText)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MatchPropertyValueCompletion reports whether the cursor sits in a property
// value position, returning any partial "@name" already typed.
func MatchPropertyValueCompletion(lineText string) (string, bool) {
	m := valueCompletion.FindStringSubmatch(lineText)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IdentifierSuffixLength is the length of the identifier directly right of
// the cursor, which a completion replaces.
func IdentifierSuffixLength(rightText string) int {
	return len(identifierPrefix.FindString(rightText))
}

// ShouldTriggerDotCompletion reports whether lineText ends in a class marker
// at a selector or statement boundary.
func ShouldTriggerDotCompletion(lineText string) bool {
	return dotCompletion.MatchString(lineText)
}

// DetectSearchKey returns the "@variable" or ".class" under cursorPos in
// lineText, or "" when the cursor is on neither.
func DetectSearchKey(lineText string, cursorPos int) string {
	if cursorPos > len(lineText) {
		cursorPos = len(lineText)
	}
	start := cursorPos
	for start > 0 && isIdentByte(lineText[start-1]) {
		start--
	}
	end := cursorPos
	for end < len(lineText) && isIdentByte(lineText[end]) {
		end++
	}

	if start > 0 && (lineText[start-1] == '@' || lineText[start-1] == '.') {
		return lineText[start-1 : end]
	}
	if cursorPos < len(lineText) && lineText[cursorPos] == '.' {
		end = cursorPos + 1
		for end < len(lineText) && isIdentByte(lineText[end]) {
			end++
		}
		return lineText[cursorPos:end]
	}
	return ""
}

// FormatHover renders a hover body. Variables render as "name: value";
// blocks are re-indented one declaration per line.
func FormatHover(searchKey, definition string) string {
	if !strings.Contains(definition, "{") || !strings.Contains(definition, "}") {
		return searchKey + ": " + definition
	}
	m := hoverBlock.FindStringSubmatch(definition)
	if m == nil {
		return definition
	}

	var lines []string
	for _, decl := range declarationSplit.Split(strings.TrimSpace(m[2]), -1) {
		decl = strings.TrimSpace(decl)
		if decl != "" {
			lines = append(lines, "  "+decl+";")
		}
	}
	if len(lines) == 0 {
		return definition
	}
	return m[1] + " {\n" + strings.Join(lines, "\n") + "\n}"
}

// NormalizeDefinitionWord restores a class marker the editor's word range
// left out.
func NormalizeDefinitionWord(word, lineText string, wordStart int) string {
	if strings.HasPrefix(word, ".") {
		return word
	}
	if wordStart > 0 && wordStart <= len(lineText) && lineText[wordStart-1] == '.' {
		return "." + word
	}
	return word
}

// DefinitionWordAt is the identifier under cursorPos, with its "@" kept and a
// class marker the identifier run left out restored. Call syntax after the
// word is ignored.
func DefinitionWordAt(lineText string, cursorPos int) string {
	if cursorPos > len(lineText) {
		cursorPos = len(lineText)
	}
	start := cursorPos
	for start > 0 && isIdentByte(lineText[start-1]) {
		start--
	}
	end := cursorPos
	for end < len(lineText) && isIdentByte(lineText[end]) {
		end++
	}
	if start > 0 && lineText[start-1] == '@' {
		start--
	}
	return NormalizeDefinitionWord(lineText[start:end], lineText, start)
}

// IsSymbolWord reports whether word names a class or a variable other than
// the import keyword.
func IsSymbolWord(word string) bool {
	if classWord.MatchString(word) {
		return true
	}
	m := variableWord.FindStringSubmatch(word)
	if m == nil {
		return false
	}
	name := strings.ToLower(m[1])
	return name != "import" && !strings.HasPrefix(name, "import-")
}
