// Package lesstext holds the text-level primitives shared by every component
// that reads stylesheet source: comment neutralization and import scanning.
package lesstext

import "strings"

type scanState int

const (
	stateCode scanState = iota
	stateSingleQuote
	stateDoubleQuote
	stateURL
	stateBlockComment
	stateLineComment
)

// Neutralize returns text with every comment byte replaced by a space.
// Line breaks inside comments are kept, so byte offsets, line numbers and
// columns computed on the result are valid against the original text.
//
// A "//" only opens a line comment outside string literals and unquoted
// url(...) arguments, and only when it starts the text or follows whitespace
// or one of ( { [ ; , }. This keeps values such as http://host intact.
func Neutralize(text string) string {
	if !strings.Contains(text, "/") {
		return text
	}

	out := []byte(text)
	state := stateCode
	escaped := false

	for i := 0; i < len(out); i++ {
		ch := text[i]
		switch state {
		case stateCode:
			switch {
			case ch == '\'':
				state = stateSingleQuote
			case ch == '"':
				state = stateDoubleQuote
			case ch == '/' && i+1 < len(text) && text[i+1] == '*':
				state = stateBlockComment
				out[i], out[i+1] = ' ', ' '
				i++
			case ch == '/' && i+1 < len(text) && text[i+1] == '/' && opensLineComment(text, i):
				state = stateLineComment
				out[i], out[i+1] = ' ', ' '
				i++
			case (ch == '(') && isURLCall(text, i) && !nextIsQuote(text, i+1):
				state = stateURL
			}
		case stateSingleQuote, stateDoubleQuote:
			quote := byte('\'')
			if state == stateDoubleQuote {
				quote = '"'
			}
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				state = stateCode
			case ch == '\n':
				// CSS strings cannot span lines; recover at the break.
				state = stateCode
			}
		case stateURL:
			if ch == ')' || ch == '\n' {
				state = stateCode
			}
		case stateBlockComment:
			if ch == '*' && i+1 < len(text) && text[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = stateCode
				continue
			}
			if ch != '\n' && ch != '\r' {
				out[i] = ' '
			}
		case stateLineComment:
			if ch == '\n' || ch == '\r' {
				state = stateCode
				continue
			}
			out[i] = ' '
		}
	}

	return string(out)
}

func opensLineComment(text string, i int) bool {
	if i == 0 {
		return true
	}
	switch text[i-1] {
	case ' ', '\t', '\n', '\r', '\f', '(', '{', '[', ';', ',', '}':
		return true
	}
	return false
}

func isURLCall(text string, paren int) bool {
	if paren < 3 {
		return false
	}
	if !strings.EqualFold(text[paren-3:paren], "url") {
		return false
	}
	if paren == 3 {
		return true
	}
	prev := text[paren-4]
	return !(prev == '-' || prev == '_' || isAlnum(prev))
}

func nextIsQuote(text string, i int) bool {
	for ; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r', '\f':
			continue
		case '\'', '"':
			return true
		default:
			return false
		}
	}
	return false
}

func isAlnum(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

// LineOf returns the 0-based line containing byte offset in text.
func LineOf(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		return 0
	}
	return strings.Count(text[:offset], "\n")
}
