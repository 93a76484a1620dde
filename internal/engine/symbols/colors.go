package symbols

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"easierless/internal/engine/grammar"
)

var colorFunctions = map[string]bool{
	"rgb": true, "rgba": true, "hsl": true, "hsla": true,
	"hwb": true, "lab": true, "lch": true, "oklab": true, "oklch": true,
}

// IsColorVariable reports whether a variable should be offered as a color:
// its name mentions color, or its value parses as a CSS color literal.
func IsColorVariable(name, value string) bool {
	if strings.Contains(strings.ToLower(name), "color") {
		return true
	}
	return IsColorValue(value)
}

// IsColorValue reports whether value is a single CSS color: a hex literal or
// a color function call.
func IsColorValue(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, "{};") {
		return false
	}

	pool := grammar.CSS()
	sp := pool.Get()
	defer pool.Put(sp)

	src := []byte("a{b:" + value + ";}")
	tree := sp.Parse(src, nil)
	if tree == nil {
		return false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return false
	}

	var values []*sitter.Node
	grammar.Walk(root, func(n *sitter.Node) bool {
		if n.Kind() == "declaration" {
			for i := uint(0); i < n.ChildCount(); i++ {
				child := n.Child(i)
				if child != nil && child.IsNamed() && child.Kind() != "property_name" {
					values = append(values, child)
				}
			}
			return false
		}
		return true
	})
	if len(values) != 1 {
		return false
	}

	v := values[0]
	switch v.Kind() {
	case "color_value":
		return true
	case "call_expression":
		if v.ChildCount() == 0 {
			return false
		}
		fn := v.Child(0)
		return fn.Kind() == "function_name" && colorFunctions[strings.ToLower(fn.Utf8Text(src))]
	}
	return false
}
