// Package grammar provides pooled tree-sitter parsers for the grammars the
// engines embed: CSS for value classification and HTML for markup documents.
package grammar

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
)

// ParserPool recycles tree-sitter parsers configured for one language.
// Safe for concurrent use.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
type ParserPool struct {
	lang *sitter.Language
	pool sync.Pool

	mu     sync.Mutex
	leased int
}

// NewParserPool creates a pool for lang. lang must outlive the pool.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			_ = sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

// Get returns a parser set to the pool's language.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)

	p.mu.Lock()
	p.leased++
	p.mu.Unlock()
	return sp
}

// Put resets sp and returns it to the pool. sp must not be used afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.mu.Lock()
	p.leased--
	p.mu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}

// Leased reports how many parsers are currently checked out.
func (p *ParserPool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

var (
	cssOnce  sync.Once
	cssPool  *ParserPool
	htmlOnce sync.Once
	htmlPool *ParserPool
)

// CSS returns the shared CSS parser pool.
func CSS() *ParserPool {
	cssOnce.Do(func() {
		cssPool = NewParserPool(sitter.NewLanguage(tree_sitter_css.Language()))
	})
	return cssPool
}

// HTML returns the shared HTML parser pool.
func HTML() *ParserPool {
	htmlOnce.Do(func() {
		htmlPool = NewParserPool(sitter.NewLanguage(tree_sitter_html.Language()))
	})
	return htmlPool
}

// Walk visits n and its descendants depth-first in source order until visit
// returns false.
func Walk(n *sitter.Node, visit func(*sitter.Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if !Walk(n.Child(i), visit) {
			return false
		}
	}
	return true
}
