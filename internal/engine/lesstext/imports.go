package lesstext

import "regexp"

var importPattern = regexp.MustCompile(`@import\s*(\([^)]*\))?\s*['"]([^'"]+)['"]`)

// ImportStatement is one @import found in neutralized source.
type ImportStatement struct {
	Specifier string
	Options   string
	// Start and End are byte offsets of the whole statement match.
	Start int
	End   int
}

// ScanImports returns the import statements of text in source order,
// ignoring anything that sits inside a comment.
func ScanImports(text string) []ImportStatement {
	clean := Neutralize(text)
	matches := importPattern.FindAllStringSubmatchIndex(clean, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]ImportStatement, 0, len(matches))
	for _, m := range matches {
		stmt := ImportStatement{
			Specifier: clean[m[4]:m[5]],
			Start:     m[0],
			End:       m[1],
		}
		if m[2] >= 0 {
			stmt.Options = clean[m[2]:m[3]]
		}
		out = append(out, stmt)
	}
	return out
}
