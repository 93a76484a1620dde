package imports

import (
	"regexp"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"easierless/internal/engine/grammar"
)

// NoStyleTag is returned by LocateStyleInsertionOffset when the markup has
// no opening style tag.
const NoStyleTag = -1

var styleTagPattern = regexp.MustCompile(`<style[^>]*>`)

// LocateStyleInsertionOffset returns the byte offset just after the first
// opening <style> tag, past one following line break (\n, \r or \r\n) if any.
func LocateStyleInsertionOffset(markup string) int {
	end, ok := styleTagEnd(markup)
	if !ok {
		return NoStyleTag
	}
	switch {
	case end+1 < len(markup) && markup[end] == '\r' && markup[end+1] == '\n':
		return end + 2
	case end < len(markup) && (markup[end] == '\n' || markup[end] == '\r'):
		return end + 1
	}
	return end
}

// styleTagEnd finds the end of the first style start tag using the HTML
// grammar, so tags inside scripts or comments are ignored. Documents the
// grammar cannot make sense of fall back to a plain pattern scan.
func styleTagEnd(markup string) (int, bool) {
	if end, ok := styleTagEndFromTree(markup); ok {
		return end, true
	}
	loc := styleTagPattern.FindStringIndex(markup)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}

func styleTagEndFromTree(markup string) (int, bool) {
	pool := grammar.HTML()
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte(markup), nil)
	if tree == nil {
		return 0, false
	}
	defer tree.Close()

	end, found := 0, false
	grammar.Walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "style_element" {
			return true
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil || child.Kind() != "start_tag" || child.IsMissing() {
				continue
			}
			if e := int(child.EndByte()); e > 0 && e <= len(markup) && markup[e-1] == '>' {
				end, found = e, true
			}
			break
		}
		return !found
	})
	return end, found
}
