package imports

import (
	"easierless/internal/engine/alias"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg, err := alias.Parse([]byte(`{"compilerOptions":{"baseUrl":".","paths":{"@/*":["src/*"]}}}`), "/repo")
	require.NoError(t, err)
	return NewAnalyzer("/repo", cfg, "")
}

func TestResolveImportSpecifierToAbsolute(t *testing.T) {
	a := exampleAnalyzer(t)

	tests := []struct {
		name string
		spec string
		dir  string
		want string
		ok   bool
	}{
		{"alias", "@/styles/theme", "/repo/src/components", "/repo/src/styles/theme.less", true},
		{"alias with extension", "@/styles/theme.css", "/repo/src/components", "/repo/src/styles/theme.css", true},
		{"relative", "./vars", "/repo/src/components", "/repo/src/components/vars.less", true},
		{"parent", "../base/reset.less", "/repo/src/components", "/repo/src/base/reset.less", true},
		{"absolute", "/shared/colors", "/repo/src", "/shared/colors.less", true},
		{"bare module", "bootstrap/less/variables", "/repo/src", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.ResolveImportSpecifierToAbsolute(tt.spec, tt.dir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_AliasBeforeRelative(t *testing.T) {
	a := NewAnalyzer("/repo", alias.New(alias.Alias{Prefix: ".", Dir: "/repo/aliased"}), "")
	got, ok := a.ResolveImportSpecifierToAbsolute("./x", "/repo/src")
	require.True(t, ok)
	assert.Equal(t, "/repo/aliased/x.less", got)
}

func TestIsAlreadyImported(t *testing.T) {
	a := exampleAnalyzer(t)
	dir := "/repo/src/components"

	assert.False(t, a.IsAlreadyImported("// @import 'a.less';\n.box{color:red}", "/repo/src/components/a.less", dir))
	assert.False(t, a.IsAlreadyImported("/* @import './a.less'; */", "/repo/src/components/a.less", dir))
	assert.False(t, a.IsAlreadyImported("", "/repo/src/components/a.less", dir))
	assert.True(t, a.IsAlreadyImported("@import './a';", "/repo/src/components/a.less", dir))
	assert.True(t, a.IsAlreadyImported("@import (reference) '@/components/a';", "/repo/src/components/a.less", dir))
	assert.True(t, a.IsAlreadyImported("// @import './a';\n@import \"./a.less\";", "/repo/src/components/a.less", dir))
	assert.False(t, a.IsAlreadyImported("@import './b';", "/repo/src/components/a.less", dir))
}

func TestBuildImportSpecifier(t *testing.T) {
	a := exampleAnalyzer(t)

	assert.Equal(t, "@/styles/theme.less", a.BuildImportSpecifier("/repo/src/pages/home.less", "/repo/src/styles/theme.less"))
	assert.Equal(t, "../shared/vars.less", a.BuildImportSpecifier("/repo/pages/home.less", "/repo/shared/vars.less"))
	assert.Equal(t, "./vars.less", a.BuildImportSpecifier("/repo/pages/home.less", "/repo/pages/vars.less"))
	assert.Equal(t, "./.hidden/vars.less", a.BuildImportSpecifier("/repo/pages/home.less", "/repo/pages/.hidden/vars.less"))
}

func TestLocateStyleInsertionOffset(t *testing.T) {
	markup := "<style lang=\"less\">\n.box{}"
	offset := LocateStyleInsertionOffset(markup)
	require.GreaterOrEqual(t, offset, 0)
	assert.Equal(t, byte('.'), markup[offset])

	crlf := "<template><div/></template>\r\n<style scoped>\r\n.box{}\r\n</style>"
	offset = LocateStyleInsertionOffset(crlf)
	assert.Equal(t, byte('.'), crlf[offset])

	inline := "<style>.box{}</style>"
	assert.Equal(t, len("<style>"), LocateStyleInsertionOffset(inline))

	assert.Equal(t, NoStyleTag, LocateStyleInsertionOffset("<template><div/></template>"))
	assert.Equal(t, NoStyleTag, LocateStyleInsertionOffset(""))
}

func TestLocateStyleInsertionOffset_IgnoresScriptText(t *testing.T) {
	markup := "<script>const s = '<style>';</script>\n<style lang=\"less\">\n.a{}\n</style>"
	offset := LocateStyleInsertionOffset(markup)
	assert.Equal(t, strings.Index(markup, ".a{}"), offset)
}

func TestPlanInsertion(t *testing.T) {
	a := exampleAnalyzer(t)
	target := "/repo/src/styles/theme.less"

	ins, ok := a.PlanInsertion(".a{}", "/repo/src/pages/home.less", KindStylesheet, target)
	require.True(t, ok)
	assert.Equal(t, 0, ins.Offset)
	assert.Equal(t, "@import (reference) '@/styles/theme.less';\n", ins.Text)

	_, ok = a.PlanInsertion("@import '@/styles/theme';\n.a{}", "/repo/src/pages/home.less", KindStylesheet, target)
	assert.False(t, ok)

	vue := "<template/>\n<style lang=\"less\">\n.a{}\n</style>"
	ins, ok = a.PlanInsertion(vue, "/repo/src/pages/Home.vue", KindMarkup, target)
	require.True(t, ok)
	assert.Equal(t, strings.Index(vue, ".a{}"), ins.Offset)
	assert.Equal(t, Statement("@/styles/theme.less"), ins.Text)

	tight := "<style>.a{}</style>"
	ins, ok = a.PlanInsertion(tight, "/repo/src/pages/Home.vue", KindMarkup, target)
	require.True(t, ok)
	assert.Equal(t, len("<style>"), ins.Offset)
	assert.Equal(t, "\n"+Statement("@/styles/theme.less"), ins.Text)

	ins, ok = a.PlanInsertion("<template/>", "/repo/src/pages/Home.vue", KindMarkup, target)
	require.True(t, ok)
	assert.Equal(t, 0, ins.Offset)
}

func TestKindForPath(t *testing.T) {
	assert.Equal(t, KindMarkup, KindForPath("/a/App.vue"))
	assert.Equal(t, KindStylesheet, KindForPath("/a/app.less"))
}
