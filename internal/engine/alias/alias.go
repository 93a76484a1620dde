// Package alias parses project path aliases and resolves import specifiers
// against them.
package alias

import (
	"easierless/internal/core/errors"
	"easierless/internal/shared/util"
	"path/filepath"
	"strings"

	"github.com/francoispqt/gojay"
	"github.com/tailscale/hujson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Config maps alias prefixes (e.g. "@") to absolute directories, in the order
// the aliases were declared. A Config is read-only once built.
type Config struct {
	dirs *orderedmap.OrderedMap[string, string]
}

// Alias is one declared prefix and the directory it stands for.
type Alias struct {
	Prefix string
	Dir    string
}

// Empty returns a Config with no aliases.
func Empty() *Config {
	return &Config{dirs: orderedmap.New[string, string]()}
}

// New builds a Config from aliases in the given order. Later duplicates of a
// prefix replace the directory but keep the first declaration's position.
func New(aliases ...Alias) *Config {
	cfg := Empty()
	for _, a := range aliases {
		cfg.dirs.Set(a.Prefix, filepath.Clean(a.Dir))
	}
	return cfg
}

// Parse reads the compilerOptions.baseUrl and compilerOptions.paths of a
// JSON-with-comments project config. Only the first target of every path
// pattern is used. On malformed input it returns an empty Config together
// with a CONFIG_PARSE error; the Config is always usable.
func Parse(configText []byte, workspaceRoot string) (*Config, error) {
	std, err := hujson.Standardize(configText)
	if err != nil {
		return Empty(), errors.Wrap(err, errors.CodeConfigParse, "parse alias config")
	}
	var pc projectConfig
	if err := gojay.UnmarshalJSONObject(std, &pc); err != nil {
		return Empty(), errors.Wrap(err, errors.CodeConfigParse, "parse alias config")
	}

	baseURL := pc.compilerOptions.baseURL
	if baseURL == "" {
		baseURL = "."
	}

	cfg := Empty()
	for _, entry := range pc.compilerOptions.paths {
		prefix := strings.TrimSuffix(entry.pattern, "/*")
		target := strings.TrimSuffix(entry.target, "/*")
		cfg.dirs.Set(prefix, filepath.Join(workspaceRoot, baseURL, target))
	}
	return cfg, nil
}

// Len reports the number of aliases.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return c.dirs.Len()
}

// Dir returns the directory of prefix.
func (c *Config) Dir(prefix string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.dirs.Get(prefix)
}

// Aliases returns the aliases in declaration order.
func (c *Config) Aliases() []Alias {
	if c == nil {
		return nil
	}
	out := make([]Alias, 0, c.dirs.Len())
	for p := c.dirs.Oldest(); p != nil; p = p.Next() {
		out = append(out, Alias{Prefix: p.Key, Dir: p.Value})
	}
	return out
}

// Expand substitutes the first declared alias that matches specifier, either
// exactly or as a leading path segment. No longest-match is attempted.
func (c *Config) Expand(specifier string) (string, bool) {
	if c == nil {
		return "", false
	}
	for p := c.dirs.Oldest(); p != nil; p = p.Next() {
		prefix, dir := p.Key, p.Value
		if specifier == prefix {
			return dir, true
		}
		if strings.HasPrefix(specifier, prefix+"/") {
			return filepath.Join(dir, filepath.FromSlash(specifier[len(prefix)+1:])), true
		}
	}
	return "", false
}

// Contract returns the alias form of absPath using the first declared alias
// whose directory contains it.
func (c *Config) Contract(absPath string) (string, bool) {
	if c == nil {
		return "", false
	}
	absPath = filepath.Clean(absPath)
	for p := c.dirs.Oldest(); p != nil; p = p.Next() {
		prefix, dir := p.Key, p.Value
		if !util.HasPathPrefix(util.ToSlash(absPath), util.ToSlash(dir)) {
			continue
		}
		rel, err := filepath.Rel(dir, absPath)
		if err != nil {
			continue
		}
		if rel == "." {
			return prefix, true
		}
		return prefix + "/" + util.ToSlash(rel), true
	}
	return "", false
}

// ResolvePathByAliasOrRelative maps specifier to an absolute path: the first
// matching alias wins, otherwise a relative specifier is joined onto
// workspaceRoot and an absolute one passes through.
func (c *Config) ResolvePathByAliasOrRelative(specifier, workspaceRoot string) string {
	if resolved, ok := c.Expand(specifier); ok {
		return resolved
	}
	if filepath.IsAbs(specifier) {
		return specifier
	}
	return filepath.Join(workspaceRoot, filepath.FromSlash(specifier))
}

// ToAliasOrWorkspaceRelativePath is the inverse of ResolvePathByAliasOrRelative.
// Paths outside workspaceRoot are returned unchanged.
func (c *Config) ToAliasOrWorkspaceRelativePath(absPath, workspaceRoot string) string {
	if workspaceRoot == "" || !util.HasPathPrefix(util.ToSlash(filepath.Clean(absPath)), util.ToSlash(filepath.Clean(workspaceRoot))) {
		return absPath
	}
	if spec, ok := c.Contract(absPath); ok {
		return spec
	}
	rel, err := filepath.Rel(workspaceRoot, absPath)
	if err != nil {
		return absPath
	}
	return util.ToSlash(rel)
}
