// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files with content in an in-memory file system.
func writeTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func newTestResolver(t *testing.T, fs afero.Fs, aliases map[string][]string, opts ...ResolverOption) *Resolver {
	t.Helper()
	r, err := NewResolver(fs, NewAliasTable("/repo", aliases), opts...)
	require.NoError(t, err)
	return r
}

// =============================================================================
// Relative and absolute resolution
// =============================================================================

func TestResolver_Resolve_ExtensionProbeOrder(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/src/app.vue": "",
		"/repo/src/app.js":  "",
		"/repo/src/util.ts": "",
	})
	r := newTestResolver(t, fs, nil)

	res := r.Resolve("/repo/src", "./app")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/app.vue", res.Path, ".vue is tried before .js")
	assert.Empty(t, res.Alias)
	assert.Equal(t, ClassLocal, res.Class)

	res = r.Resolve("/repo/src/views", "../util")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/util.ts", res.Path)

	res = r.Resolve("/elsewhere", "/repo/src/app.js")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/app.js", res.Path)
}

func TestResolver_Resolve_DirectoryIndex(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/src/components/index.js": "",
	})
	r := newTestResolver(t, fs, nil)

	res := r.Resolve("/repo/src", "./components")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/components/index.js", res.Path)
}

func TestResolver_Resolve_PackageJSONMain(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/src/lib/package.json":  `{"main": "dist/lib.js", "browser": {"fs": false}}`,
		"/repo/src/lib/dist/lib.js":   "",
		"/repo/src/lib/index.js":      "",
		"/repo/src/mod/package.json":  `{"module": "esm", "main": "cjs.js"}`,
		"/repo/src/mod/esm/index.mjs": "",
		"/repo/src/mod/esm/index.ts":  "",
		"/repo/src/mod/cjs.js":        "",
	})
	r := newTestResolver(t, fs, nil)

	res := r.Resolve("/repo/src", "./lib")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/lib/dist/lib.js", res.Path, "object browser field is ignored")

	res = r.Resolve("/repo/src", "./mod")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/mod/esm/index.ts", res.Path, "module field wins over main")
}

func TestResolver_Resolve_StripsMarkers(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/src/fonts/icon.woff": "",
		"/repo/src/styles/a.css":    "",
	})
	r := newTestResolver(t, fs, map[string][]string{"@": {"src"}})

	res := r.Resolve("/repo/src/styles", "../fonts/icon.woff?v=1")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/fonts/icon.woff", res.Path)

	res = r.Resolve("/repo/src/x", "~@/styles/a.css")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/src/styles/a.css", res.Path)
	assert.Equal(t, "@", res.Alias)
}

func TestResolver_Resolve_Failure(t *testing.T) {
	fs := writeTree(t, map[string]string{"/repo/src/a.js": ""})
	r := newTestResolver(t, fs, map[string][]string{"@": {"src"}})

	res := r.Resolve("/repo/src", "./missing")
	require.False(t, res.OK())
	assert.True(t, errors.Is(res.Err, ErrNotFound))
	assert.Equal(t, "./missing", res.Err.Specifier)
	assert.Equal(t, "/repo/src", res.Err.ContextDir)

	res = r.Resolve("/repo/src", "@/nope")
	require.False(t, res.OK())
	assert.Equal(t, "@", res.Alias, "failed alias resolutions keep the alias for diagnostics")

	res = r.Resolve("/repo/src", "")
	assert.False(t, res.OK())
}

// =============================================================================
// Packages and the external boundary
// =============================================================================

func TestResolver_Resolve_NodeModulesWalk(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/node_modules/vue/package.json":        `{"main": "dist/vue.runtime.js"}`,
		"/repo/node_modules/vue/dist/vue.runtime.js": "",
		"/repo/node_modules/@scope/pkg/index.js":     "",
	})
	r := newTestResolver(t, fs, nil)

	res := r.Resolve("/repo/src/views/deep", "vue")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/node_modules/vue/dist/vue.runtime.js", res.Path)
	assert.Equal(t, ClassExternal, res.Class)
	assert.True(t, res.External())

	res = r.Resolve("/repo/src", "@scope/pkg")
	require.True(t, res.OK())
	assert.True(t, res.External())

	res = r.Resolve("/repo/src", "left-pad")
	require.False(t, res.OK())
}

func TestIsExternalPath(t *testing.T) {
	assert.True(t, IsExternalPath("/repo/node_modules/vue/index.js", "node_modules"))
	assert.False(t, IsExternalPath("/repo/src/node_modules_backup/a.js", "node_modules"))
	assert.False(t, IsExternalPath("/repo/src/a.js", "node_modules"))
}

// =============================================================================
// Aliases
// =============================================================================

func TestResolver_Resolve_LongestAliasWins(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/src/styles/vars.scss":        "",
		"/repo/src/components/Button.vue":   "",
		"/repo/src/components/styles/x.css": "",
	})
	r := newTestResolver(t, fs, map[string][]string{
		"@":       {"src"},
		"@styles": {"src/styles"},
	})

	res := r.Resolve("/repo", "@styles/vars.scss")
	require.True(t, res.OK())
	assert.Equal(t, "@styles", res.Alias)
	assert.Equal(t, "/repo/src/styles/vars.scss", res.Path)

	res = r.Resolve("/repo", "@/components/Button")
	require.True(t, res.OK())
	assert.Equal(t, "@", res.Alias)
}

func TestResolver_Resolve_AliasTargetList(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/shared/widgets/Chart.vue": "",
	})
	r := newTestResolver(t, fs, map[string][]string{
		"#w": {"src/widgets", "shared/widgets"},
	})

	res := r.Resolve("/repo/src", "#w/Chart")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/shared/widgets/Chart.vue", res.Path)
}

func TestResolver_Resolve_ExactAlias(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/vendor/vue.esm.js":         "",
		"/repo/node_modules/vue/extra.js": "",
	})
	r := newTestResolver(t, fs, map[string][]string{
		"vue$": {"vendor/vue.esm.js"},
	})

	res := r.Resolve("/repo/src", "vue")
	require.True(t, res.OK())
	assert.Equal(t, "/repo/vendor/vue.esm.js", res.Path)
	assert.Equal(t, "vue$", res.Alias)

	res = r.Resolve("/repo/src", "vue/extra")
	require.True(t, res.OK())
	assert.Empty(t, res.Alias, "exact alias does not cover subpaths")
	assert.Equal(t, "/repo/node_modules/vue/extra.js", res.Path)
}

func TestAliasTable_Match_Boundary(t *testing.T) {
	table := NewAliasTable("/repo", map[string][]string{
		"@app": {"src/app"},
		"~/":   {"src"},
	})
	tests := []struct {
		spec string
		want string
		ok   bool
	}{
		{"@app", "@app", true},
		{"@app/foo", "@app", true},
		{"@appX/foo", "", false},
		{"@ap", "", false},
		{"~/x", "~/", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			a, ok := table.Match(tt.spec)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, a.Name)
		})
	}
}

func TestAliasTable_Names_Ordered(t *testing.T) {
	table := NewAliasTable("/repo", map[string][]string{
		"@":           {"src"},
		"@components": {"src/components"},
		"@assets":     {"src/assets"},
		"empty":       {},
	})
	assert.Equal(t, []string{"@components", "@assets", "@"}, table.Names())
	assert.Equal(t, 3, table.Len())
}

// =============================================================================
// Probing helpers
// =============================================================================

func TestResolver_ExpandAndIsFile(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/src/styles/_vars.scss": "",
	})
	r := newTestResolver(t, fs, map[string][]string{"@": {"src"}})

	p, ok := r.Expand("/repo/src/views", "@/styles/_vars.scss")
	require.True(t, ok)
	assert.Equal(t, "/repo/src/styles/_vars.scss", p)
	assert.True(t, r.IsFile(p))
	assert.True(t, r.IsDir("/repo/src/styles"))

	p, ok = r.Expand("/repo/src/views", "./a.scss")
	require.True(t, ok)
	assert.Equal(t, "/repo/src/views/a.scss", p)
	assert.False(t, r.IsFile(p))

	_, ok = r.Expand("/repo/src", "bootstrap/scss/grid")
	assert.False(t, ok)

	name, ok := r.MatchAlias("@/x")
	assert.True(t, ok)
	assert.Equal(t, "@", name)
}

func TestNewResolver_NilFs(t *testing.T) {
	_, err := NewResolver(nil, nil)
	assert.Error(t, err)
}
