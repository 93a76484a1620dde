package lookup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInStyleTag(t *testing.T) {
	text := `<template>x</template><style lang="less">` + "\n.a{color:@x}\n</style>"
	assert.True(t, IsInStyleTag(text, strings.Index(text, ".a")))
	assert.False(t, IsInStyleTag(text, strings.Index(text, "<template>")))
	assert.False(t, IsInStyleTag(text, len(text)))
}

func TestIsInParentheses(t *testing.T) {
	assert.True(t, IsInParentheses(".mixin(@color"))
	assert.False(t, IsInParentheses(".mixin(@color)"))
}

func TestCompletionTriggers(t *testing.T) {
	prefix, ok := MatchAtCompletion("color: @pri")
	assert.True(t, ok)
	assert.Equal(t, "pri", prefix)

	typed, ok := MatchPropertyValueCompletion("color: @pri")
	assert.True(t, ok)
	assert.Equal(t, "@pri", typed)

	assert.Equal(t, 3, IdentifierSuffixLength("lor;"))
	assert.Equal(t, 0, IdentifierSuffixLength(";"))

	assert.True(t, ShouldTriggerDotCompletion(".btn."))
	assert.True(t, ShouldTriggerDotCompletion(".bla"))
	assert.False(t, ShouldTriggerDotCompletion("display: block"))
}

func TestDotCompletionInsertText(t *testing.T) {
	mixin := ".black(@opacity: 1) { color: red; }"
	class := ".bg-gray { background: #f5f5f5; }"

	tests := []struct {
		key, def, right, want string
	}{
		{".black", mixin, "", "black($1);"},
		{".bg-gray", class, "", "bg-gray;"},
		{".black", mixin, "();", "black($1);"},
		{".bg-black", mixin, "(0.85);", "bg-black(0.85);"},
		{".bg-black", mixin, "(0.64) //", "bg-black(0.64);"},
		{".bg-gray", class, ";", "bg-gray"},
		{".bg-gray", class, " // inline comment", "bg-gray;"},
		{".bg-black", mixin, "(rgba(0,0,0,0.64)) //", "bg-black(rgba(0,0,0,0.64));"},
		{".black", mixin, " color: red", "black($1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DotCompletionInsertText(tt.key, tt.def, tt.right), "%s %q", tt.key, tt.right)
	}

	assert.Equal(t, 3, DotCompletionSuffixReplaceLength(mixin, "();"))
	assert.Equal(t, len("(0.64)"), DotCompletionSuffixReplaceLength(mixin, "(0.64) //"))
	assert.Equal(t, len("(rgba(0,0,0,0.64))"), DotCompletionSuffixReplaceLength(mixin, "(rgba(0,0,0,0.64)) //"))
	assert.Equal(t, 0, DotCompletionSuffixReplaceLength(class, "();"))
}

func TestAtCompletionInsertText(t *testing.T) {
	assert.Equal(t, "@primary-color;", AtCompletionInsertText("primary-color", "", true))
	assert.Equal(t, "@primary-color", AtCompletionInsertText("primary-color", ";", true))
	assert.Equal(t, "@primary-color;", AtCompletionInsertText("primary-color", " // inline comment", true))
	assert.Equal(t, "primary-color", AtCompletionInsertText("primary-color", ": #fff", false))
}

func TestDetectSearchKey(t *testing.T) {
	assert.Equal(t, "@primary-color", DetectSearchKey("color: @primary-color;", len("color: @prim")))
	assert.Equal(t, ".btn-primary", DetectSearchKey(".btn-primary { color: red; }", len(".btn-pr")))
	assert.Equal(t, ".btn", DetectSearchKey("  .btn;", 2))
	assert.Equal(t, "", DetectSearchKey("color: red;", 3))
}

func TestFormatHover(t *testing.T) {
	assert.Equal(t, "@a: #fff", FormatHover("@a", "#fff"))
	assert.Equal(t, ".btn {\n  color:red;\n  background:#fff;\n}", FormatHover(".btn", ".btn{color:red;background:#fff;}"))
	assert.Equal(t, ".empty{}", FormatHover(".empty", ".empty{}"))
}

func TestSymbolWords(t *testing.T) {
	assert.Equal(t, ".btn", NormalizeDefinitionWord("btn", ".btn {", 1))
	assert.Equal(t, "btn", NormalizeDefinitionWord("btn", "btn {", 0))

	assert.True(t, IsSymbolWord(".btn"))
	assert.True(t, IsSymbolWord("@color"))
	assert.True(t, IsSymbolWord("@primary-color"))
	assert.True(t, IsSymbolWord("@important"))
	assert.False(t, IsSymbolWord("@import"))
	assert.False(t, IsSymbolWord("plain"))
}

func TestDefinitionWordAt(t *testing.T) {
	cases := []struct {
		line   string
		cursor int
		want   string
	}{
		{".flex(", 1, ".flex"},
		{"  margin: @gap;", 11, "@gap"},
		{".a { .flex(); }", 7, ".flex"},
		{"color: red", 0, "color"},
		{"", 0, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DefinitionWordAt(tc.line, tc.cursor), "line %q", tc.line)
	}
}
