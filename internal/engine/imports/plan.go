package imports

import "path/filepath"

// DocumentKind distinguishes pure stylesheets from markup with an embedded
// style block.
type DocumentKind int

const (
	KindStylesheet DocumentKind = iota
	KindMarkup
)

// KindForPath infers the document kind from a file extension.
func KindForPath(path string) DocumentKind {
	switch filepath.Ext(path) {
	case ".vue", ".html", ".htm", ".svelte":
		return KindMarkup
	}
	return KindStylesheet
}

// Insertion is the text edit that adds one import statement.
type Insertion struct {
	Specifier string
	Text      string
	Offset    int
}

// PlanInsertion computes the edit importing targetPath into the document at
// documentPath. ok is false when the target is already imported.
func (a *Analyzer) PlanInsertion(documentText, documentPath string, kind DocumentKind, targetPath string) (Insertion, bool) {
	if a.IsAlreadyImported(documentText, targetPath, filepath.Dir(documentPath)) {
		return Insertion{}, false
	}

	spec := a.BuildImportSpecifier(documentPath, targetPath)
	ins := Insertion{Specifier: spec, Text: Statement(spec)}
	if kind != KindMarkup {
		return ins, true
	}

	offset := LocateStyleInsertionOffset(documentText)
	switch {
	case offset == NoStyleTag:
		ins.Offset = 0
	case offset > 0 && documentText[offset-1] == '>':
		// The tag is not followed by a line break; supply one.
		ins.Offset = offset
		ins.Text = "\n" + ins.Text
	default:
		ins.Offset = offset
	}
	return ins, true
}
