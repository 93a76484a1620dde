// Package imports answers the questions auto-import needs: is a file already
// imported by a document, how should it be referenced, and where does the
// statement go.
package imports

import (
	"easierless/internal/engine/alias"
	"easierless/internal/engine/lesstext"
	"easierless/internal/shared/util"
	"path/filepath"
	"strings"
)

// DefaultExtension is appended to extension-less specifiers.
const DefaultExtension = ".less"

// Analyzer resolves specifiers for one workspace generation.
type Analyzer struct {
	WorkspaceRoot string
	Aliases       *alias.Config
	// DefaultExtension defaults to ".less" when empty.
	DefaultExtension string
}

// NewAnalyzer returns an Analyzer for root. A nil aliases is treated as empty.
func NewAnalyzer(root string, aliases *alias.Config, defaultExt string) *Analyzer {
	if aliases == nil {
		aliases = alias.Empty()
	}
	return &Analyzer{WorkspaceRoot: root, Aliases: aliases, DefaultExtension: defaultExt}
}

func (a *Analyzer) ext() string {
	if a.DefaultExtension == "" {
		return DefaultExtension
	}
	return a.DefaultExtension
}

// ResolveSpecifier resolves specifier without touching its extension. Alias
// matches win over relative markers, which win over absolute paths. Bare
// module-style specifiers are not resolvable.
func (a *Analyzer) ResolveSpecifier(specifier, currentFileDir string) (string, bool) {
	if resolved, ok := a.Aliases.Expand(specifier); ok {
		return filepath.Clean(resolved), true
	}
	if IsRelative(specifier) {
		return filepath.Join(currentFileDir, filepath.FromSlash(specifier)), true
	}
	if filepath.IsAbs(specifier) {
		return filepath.Clean(specifier), true
	}
	return "", false
}

// ResolveImportSpecifierToAbsolute is ResolveSpecifier with the default
// extension appended when the resolved path has none.
func (a *Analyzer) ResolveImportSpecifierToAbsolute(specifier, currentFileDir string) (string, bool) {
	resolved, ok := a.ResolveSpecifier(specifier, currentFileDir)
	if !ok {
		return "", false
	}
	if filepath.Ext(resolved) == "" {
		resolved += a.ext()
	}
	return resolved, true
}

// IsAlreadyImported reports whether an uncommented @import of documentText
// resolves to targetPath.
func (a *Analyzer) IsAlreadyImported(documentText, targetPath, currentFileDir string) bool {
	target := filepath.Clean(targetPath)
	for _, stmt := range lesstext.ScanImports(documentText) {
		resolved, ok := a.ResolveImportSpecifierToAbsolute(stmt.Specifier, currentFileDir)
		if ok && resolved == target {
			return true
		}
	}
	return false
}

// BuildImportSpecifier returns how fromPath should reference toPath: the
// alias form when an alias covers toPath, otherwise a ./ or ../ relative path.
func (a *Analyzer) BuildImportSpecifier(fromPath, toPath string) string {
	if spec, ok := a.Aliases.Contract(toPath); ok {
		return spec
	}
	rel, err := filepath.Rel(filepath.Dir(fromPath), toPath)
	if err != nil {
		return util.ToSlash(toPath)
	}
	rel = util.ToSlash(rel)
	if !IsRelative(rel) {
		rel = "./" + rel
	}
	return rel
}

// IsRelative reports whether specifier starts with ./ or ../.
func IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// Statement renders the import statement inserted by auto-import.
func Statement(specifier string) string {
	return "@import (reference) '" + specifier + "';\n"
}
