// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package trackers

import (
	"context"
	"testing"

	"github.com/AleutianAI/depslice/services/slice/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pluginFiles = map[string]string{
	"/repo/src/plugins/index.js": `export default {
  install(Vue) {
    const ctx = require.context('./', false, /\.js$/)
    ctx.keys().forEach(key => Vue.use(ctx(key).default))
  }
}
`,
	"/repo/src/plugins/auth.js": `const NAME = 'session'
export default {
  install(Vue) {
    Object.defineProperty(Vue.prototype, ` + "`$${NAME}`" + `, { value: {} })
  }
}
`,
	"/repo/src/plugins/storage.js":  `export default { install() {} }`,
	"/repo/src/plugins/README.md":   `# plugins`,
	"/repo/src/plugins/sub/deep.js": `export default {}`,
}

var aggregationFiles = map[string]string{
	"/repo/src/components/index.js": `function importAll(ctx) {
  return ctx.keys().reduce((acc, key) => acc, {})
}
export default importAll(require.context('./', true, /\.vue$/))
`,
	"/repo/src/components/user-card.vue":        ``,
	"/repo/src/components/base_button.vue":      ``,
	"/repo/src/components/Modal.vue":            ``,
	"/repo/src/components/forms/text-input.vue": ``,
	"/repo/src/components/helpers.js":           ``,
}

// =============================================================================
// Plugin-install manifests
// =============================================================================

func TestGlobResolver_Resolve_PluginInstall(t *testing.T) {
	g := NewGlobResolver(writeTree(t, pluginFiles))
	m := g.Resolve(context.Background(), "/repo/src/plugins/index.js", nil)

	require.Equal(t, ast.ManifestPluginInstall, m.Kind)
	assert.Equal(t, []string{"/repo/src/plugins/auth.js", "/repo/src/plugins/storage.js"}, m.Files,
		"non-recursive glob skips sub/ and never includes the manifest itself")
	assert.Equal(t, "/repo/src/plugins/auth.js", m.SymbolMap["$auth"])
	assert.Equal(t, "/repo/src/plugins/storage.js", m.SymbolMap["$storage"])
	assert.Equal(t, "/repo/src/plugins/auth.js", m.SymbolMap["$session"], "prototype mounts are alternate names")
	assert.True(t, m.IncludeSelf)
	require.Len(t, m.Descriptors, 1)
	assert.Equal(t, "/repo/src/plugins", m.Descriptors[0].Dir)
	assert.False(t, m.Descriptors[0].Recursive)
}

func TestGlobResolver_Resolve_PluginIgnoresSpecificNames(t *testing.T) {
	g := NewGlobResolver(writeTree(t, pluginFiles))
	m := g.Resolve(context.Background(), "/repo/src/plugins/index.js", []string{"$auth"})

	assert.Len(t, m.Files, 2, "installing the plugin registers every file")
	assert.True(t, m.IncludeSelf)
}

// =============================================================================
// Symbol-aggregation manifests
// =============================================================================

func TestGlobResolver_Resolve_AggregationSpecific(t *testing.T) {
	g := NewGlobResolver(writeTree(t, aggregationFiles))
	m := g.Resolve(context.Background(), "/repo/src/components/index.js", []string{"UserCard", "TextInput"})

	require.Equal(t, ast.ManifestSymbolAggregation, m.Kind)
	assert.Equal(t, []string{
		"/repo/src/components/forms/text-input.vue",
		"/repo/src/components/user-card.vue",
	}, m.Files)
	assert.Empty(t, m.Unresolved)
	assert.False(t, m.IncludeSelf)
	assert.Equal(t, "/repo/src/components/base_button.vue", m.SymbolMap["BaseButton"])
	assert.Equal(t, "/repo/src/components/Modal.vue", m.SymbolMap["Modal"])
}

func TestGlobResolver_Resolve_AggregationUnresolvedKeepsManifest(t *testing.T) {
	g := NewGlobResolver(writeTree(t, aggregationFiles))
	m := g.Resolve(context.Background(), "/repo/src/components/index.js", []string{"UserCard", "Nope"})

	assert.Equal(t, []string{"/repo/src/components/user-card.vue"}, m.Files)
	assert.Equal(t, []string{"Nope"}, m.Unresolved)
	assert.True(t, m.IncludeSelf)
}

func TestGlobResolver_Resolve_AggregationUniversal(t *testing.T) {
	for _, symbols := range [][]string{nil, {"*"}, {"default"}, {"Modal", "*"}} {
		g := NewGlobResolver(writeTree(t, aggregationFiles))
		m := g.Resolve(context.Background(), "/repo/src/components/index.js", symbols)

		assert.Len(t, m.Files, 4, "symbols %v", symbols)
		assert.NotContains(t, m.Files, "/repo/src/components/helpers.js")
		assert.True(t, m.IncludeSelf, "symbols %v", symbols)
	}
}

func TestGlobResolver_Resolve_PatternFlags(t *testing.T) {
	files := map[string]string{
		"/repo/src/icons/index.js": `export default register(require.context('./', false, /\.SVG$/i))`,
		"/repo/src/icons/home.svg": ``,
		"/repo/src/icons/user.Svg": ``,
		"/repo/src/icons/x.png":    ``,
	}
	g := NewGlobResolver(writeTree(t, files))
	m := g.Resolve(context.Background(), "/repo/src/icons/index.js", []string{"*"})

	assert.Equal(t, []string{"/repo/src/icons/home.svg", "/repo/src/icons/user.Svg"}, m.Files)
}

func TestGlobResolver_Resolve_DefaultPatternMatchesRelativePaths(t *testing.T) {
	files := map[string]string{
		"/repo/src/mixins/install.js":  `module.exports = { install: function (Vue) { require.context('./') } }`,
		"/repo/src/mixins/a.js":        ``,
		"/repo/src/mixins/nested/b.js": ``,
	}
	g := NewGlobResolver(writeTree(t, files))
	m := g.Resolve(context.Background(), "/repo/src/mixins/install.js", nil)

	assert.Equal(t, []string{"/repo/src/mixins/a.js", "/repo/src/mixins/nested/b.js"}, m.Files)
}

// =============================================================================
// Non-manifests and caching
// =============================================================================

func TestGlobResolver_Resolve_NotAManifest(t *testing.T) {
	files := map[string]string{
		"/repo/src/lib/index.js": `export { a } from './a'`,
		"/repo/src/lib/a.vue":    ``,
	}
	g := NewGlobResolver(writeTree(t, files))

	assert.Equal(t, ast.ManifestNone, g.Resolve(context.Background(), "/repo/src/lib/index.js", nil).Kind)
	assert.Equal(t, ast.ManifestNone, g.Resolve(context.Background(), "/repo/src/lib/a.vue", nil).Kind)
	assert.Equal(t, ast.ManifestNone, g.Resolve(context.Background(), "/repo/src/lib/missing.js", nil).Kind)
}

func TestGlobResolver_Resolve_Cached(t *testing.T) {
	g := NewGlobResolver(writeTree(t, aggregationFiles))
	ctx := context.Background()

	g.Resolve(ctx, "/repo/src/components/index.js", []string{"Modal", "UserCard"})
	g.Resolve(ctx, "/repo/src/components/index.js", []string{"UserCard", "Modal"})
	g.Resolve(ctx, "/repo/src/components/index.js", []string{"*"})
	g.Resolve(ctx, "/repo/src/components/index.js", nil)

	assert.Equal(t, CacheStats{Hits: 2, Misses: 2}, g.Stats())
}

func TestTransformComponentName(t *testing.T) {
	tests := map[string]string{
		"user-card":       "UserCard",
		"base_button":     "BaseButton",
		"my-FANCY_widget": "MyFancyWidget",
		"Modal":           "Modal",
		"modal":           "modal",
		"user-card.vue":   "UserCard",
		"trailing-":       "Trailing",
	}
	for in, want := range tests {
		assert.Equal(t, want, TransformComponentName(in), "input %q", in)
	}
}

func TestCompileGlobPattern(t *testing.T) {
	re, err := compileGlobPattern(`^\./[a-z]+\.js$`, "im")
	require.NoError(t, err)
	ok, err := re.MatchString("./Auth.JS")
	require.NoError(t, err)
	assert.True(t, ok)

	re, err = compileGlobPattern(`^\./[a-z]+\.js$`, "")
	require.NoError(t, err)
	ok, err = re.MatchString("./Auth.JS")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = compileGlobPattern(`(unclosed`, "")
	assert.Error(t, err)
}
