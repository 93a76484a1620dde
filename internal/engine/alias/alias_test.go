package alias

import (
	"context"
	"easierless/internal/core/errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ExampleConfig(t *testing.T) {
	cfg, err := Parse([]byte(`{"compilerOptions":{"baseUrl":".","paths":{"@/*":["src/*"]}}}`), "/repo")
	require.NoError(t, err)

	dir, ok := cfg.Dir("@")
	require.True(t, ok)
	assert.Equal(t, "/repo/src", dir)
}

func TestParse_CommentsBaseURLAndFirstTarget(t *testing.T) {
	src := `{
  // editor settings
  "compilerOptions": {
    /* base */ "baseUrl": "web",
    "paths": {
      "~styles/*": ["assets/styles/*", "fallback/*"], // first target only
      "@/*": ["src/*"],
      "bad": "not-an-array",
      "none": [],
      "url": ["http://cdn/x"],
    },
  },
}`
	cfg, err := Parse([]byte(src), "/repo")
	require.NoError(t, err)

	assert.Equal(t, []Alias{
		{Prefix: "~styles", Dir: "/repo/web/assets/styles"},
		{Prefix: "@", Dir: "/repo/web/src"},
		{Prefix: "url", Dir: "/repo/web/http:/cdn/x"},
	}, cfg.Aliases())
}

func TestParse_Malformed(t *testing.T) {
	cfg, err := Parse([]byte(`{ compilerOptions: {} }`), "/repo")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfigParse))
	require.NotNil(t, cfg)
	assert.Equal(t, 0, cfg.Len())
}

func TestParse_NoPaths(t *testing.T) {
	cfg, err := Parse([]byte(`{"compilerOptions":{"target":"es2020"}}`), "/repo")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())
}

func TestResolvePathByAliasOrRelative(t *testing.T) {
	cfg := New(Alias{Prefix: "@", Dir: "/repo/src"})

	tests := []struct {
		spec string
		want string
	}{
		{"@/styles/theme", "/repo/src/styles/theme"},
		{"@", "/repo/src"},
		{"@styles/theme", "/repo/@styles/theme"},
		{"styles/theme.less", "/repo/styles/theme.less"},
		{"/abs/theme.less", "/abs/theme.less"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.ResolvePathByAliasOrRelative(tt.spec, "/repo"), tt.spec)
	}
}

func TestResolvePathByAliasOrRelative_FirstDeclaredAliasWins(t *testing.T) {
	for n := 2; n <= 5; n++ {
		aliases := make([]Alias, 0, n)
		// "@" is declared first; more specific aliases follow.
		aliases = append(aliases, Alias{Prefix: "@", Dir: "/repo/src"})
		for i := 1; i < n; i++ {
			aliases = append(aliases, Alias{Prefix: fmt.Sprintf("@/lib%d", i), Dir: fmt.Sprintf("/repo/vendor%d", i)})
		}
		cfg := New(aliases...)

		got := cfg.ResolvePathByAliasOrRelative("@/lib1/mixins.less", "/repo")
		assert.Equal(t, "/repo/src/lib1/mixins.less", got, "n=%d", n)
	}
}

func TestToAliasOrWorkspaceRelativePath(t *testing.T) {
	cfg := New(
		Alias{Prefix: "@", Dir: "/repo/src"},
		Alias{Prefix: "~theme", Dir: "/repo/src/theme"},
	)

	assert.Equal(t, "@/theme/vars.less", cfg.ToAliasOrWorkspaceRelativePath("/repo/src/theme/vars.less", "/repo"))
	assert.Equal(t, "styles/base.less", cfg.ToAliasOrWorkspaceRelativePath("/repo/styles/base.less", "/repo"))
	assert.Equal(t, "/elsewhere/x.less", cfg.ToAliasOrWorkspaceRelativePath("/elsewhere/x.less", "/repo"))
	assert.Equal(t, "/repo/x.less", cfg.ToAliasOrWorkspaceRelativePath("/repo/x.less", ""))
	// A sibling directory sharing a name prefix is not inside the alias.
	assert.Equal(t, "src2/x.less", cfg.ToAliasOrWorkspaceRelativePath("/repo/src2/x.less", "/repo"))
}

func TestRoundTrip(t *testing.T) {
	cfg := New(
		Alias{Prefix: "@", Dir: "/repo/src"},
		Alias{Prefix: "#shared", Dir: "/repo/packages/shared"},
	)
	paths := []string{
		"/repo/src/a.less",
		"/repo/src/styles/theme/vars.less",
		"/repo/packages/shared/mixins.less",
		"/repo/plain/file.less",
	}
	for _, p := range paths {
		spec := cfg.ToAliasOrWorkspaceRelativePath(p, "/repo")
		assert.Equal(t, p, cfg.ResolvePathByAliasOrRelative(spec, "/repo"), "spec %q", spec)
	}
}

func TestNilConfigIsEmpty(t *testing.T) {
	var cfg *Config
	assert.Equal(t, 0, cfg.Len())
	assert.Equal(t, "/repo/a.less", cfg.ResolvePathByAliasOrRelative("a.less", "/repo"))
	assert.Equal(t, "a.less", cfg.ToAliasOrWorkspaceRelativePath("/repo/a.less", "/repo"))
}

type mapFS map[string]string

func (m mapFS) Exists(_ context.Context, path string) bool {
	_, ok := m[path]
	return ok
}

func (m mapFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, errors.New(errors.CodeFileRead, "missing "+path)
	}
	return []byte(data), nil
}

func TestLoad(t *testing.T) {
	root := "/repo"
	fs := mapFS{
		filepath.Join(root, "tsconfig.json"): `{"compilerOptions":{"paths":{"@/*":["ts/*"]}}}`,
	}

	cfg, used := Load(context.Background(), fs, root, nil)
	assert.Equal(t, "/repo/tsconfig.json", used)
	dir, ok := cfg.Dir("@")
	require.True(t, ok)
	assert.Equal(t, "/repo/ts", dir)

	fs[filepath.Join(root, "jsconfig.json")] = `{"compilerOptions":{"paths":{"@/*":["js/*"]}}}`
	cfg, used = Load(context.Background(), fs, root, nil)
	assert.Equal(t, "/repo/jsconfig.json", used)
	dir, _ = cfg.Dir("@")
	assert.Equal(t, "/repo/js", dir)
}

func TestLoad_MalformedFallsBackToEmpty(t *testing.T) {
	fs := mapFS{"/repo/jsconfig.json": "{ nope"}
	cfg, used := Load(context.Background(), fs, "/repo", nil)
	assert.Equal(t, "/repo/jsconfig.json", used)
	assert.Equal(t, 0, cfg.Len())

	cfg, used = Load(context.Background(), mapFS{}, "/repo", nil)
	assert.Empty(t, used)
	assert.Equal(t, 0, cfg.Len())
}
