// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/depslice/services/slice/config"
	"github.com/AleutianAI/depslice/services/slice/report"
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

// run executes the command line against fs and returns stdout and stderr.
func run(t *testing.T, fs afero.Fs, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), args, fs, &out, &errOut)
	return out.String(), errOut.String(), err
}

var appFiles = map[string]string{
	"/repo/src/main.js": `import router from './router'
import Home from '@/views/Home.vue'
import './styles/app.css'
`,
	"/repo/src/router/index.js": `export default [
  { path: '/', component: () => import('../views/Home.vue') },
]
`,
	"/repo/src/views/Home.vue":   "<template><div class=\"home\"></div></template>\n",
	"/repo/src/styles/app.css":   ".home { color: red; }\n",
	"/repo/src/unused/orphan.js": "export default 0\n",
	"/repo/package.json":         `{"name": "app"}`,
}

// =============================================================================
// collect
// =============================================================================

func TestCollect_WritesReports(t *testing.T) {
	fs := writeTree(t, appFiles)

	out, _, err := run(t, fs, "collect", "--root", "/repo", "--no-color", "src/main.js")
	require.NoError(t, err)
	assert.Contains(t, out, "Files: 4")
	assert.Contains(t, out, "Top aliases: @=1")

	rep, err := report.ReadJSON(fs, filepath.Join("/repo/output", report.JSONFileName))
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Summary.TotalFiles)
	assert.Equal(t, "/repo", rep.Summary.ProjectRoot)

	list, err := afero.ReadFile(fs, filepath.Join("/repo/output", report.FileListFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(list), "orphan.js")
	assert.Contains(t, string(list), "/repo/src/views/Home.vue")

	ok, err := afero.Exists(fs, filepath.Join("/repo/output", report.TextFileName))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCollect_OutFlagAndProjectConfig(t *testing.T) {
	files := map[string]string{
		"/repo/depslice.yaml": "report:\n  text: false\n  file_list: false\n",
	}
	for k, v := range appFiles {
		files[k] = v
	}
	fs := writeTree(t, files)

	_, _, err := run(t, fs, "collect", "--root", "/repo", "--no-color", "--out", "reports", "src/main.js")
	require.NoError(t, err)

	ok, _ := afero.Exists(fs, "/repo/reports/"+report.JSONFileName)
	assert.True(t, ok)
	ok, _ = afero.Exists(fs, "/repo/reports/"+report.TextFileName)
	assert.False(t, ok, "text report disabled by the project config")
}

func TestCollect_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no entries",
			args: []string{"collect", "--root", "/repo"},
			want: "requires at least 1 arg",
		},
		{
			name: "bad log level",
			args: []string{"collect", "--root", "/repo", "--log-level", "loud", "src/main.js"},
			want: "invalid log level",
		},
		{
			name: "explicit config missing",
			args: []string{"collect", "--root", "/repo", "--config", "/repo/nope.yaml", "src/main.js"},
			want: "reading config",
		},
		{
			name: "unknown command",
			args: []string{"frobnicate"},
			want: "unknown command",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, writeTree(t, appFiles), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCollect_InvalidProjectConfig(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/depslice.yaml": "extensions: []\n",
		"/repo/src/main.js":   "",
	})

	_, _, err := run(t, fs, "collect", "--root", "/repo", "src/main.js")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// =============================================================================
// routes
// =============================================================================

func TestRoutes_Text(t *testing.T) {
	out, _, err := run(t, writeTree(t, appFiles), "routes", "--root", "/repo", "src/main.js")
	require.NoError(t, err)
	assert.Equal(t, "src/main.js\n  -> src/router/index.js\n", out)
}

func TestRoutes_JSON(t *testing.T) {
	out, _, err := run(t, writeTree(t, appFiles), "routes", "--root", "/repo", "--json", "src/main.js")
	require.NoError(t, err)
	assert.JSONEq(t, `{"src/main.js": ["src/router/index.js"]}`, out)
}

func TestWriteRoutes_Empty(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, writeRoutes(&b, nil))
	assert.Equal(t, "No route references.\n", b.String())
}

// =============================================================================
// extract
// =============================================================================

func TestExtract_CopiesAndMocksRoutes(t *testing.T) {
	fs := writeTree(t, appFiles)

	out, _, err := run(t, fs, "extract", "--root", "/repo", "--target", "/slice", "--mock-routes", "src/main.js")
	require.NoError(t, err)
	assert.Contains(t, out, "Copied 5 files to /slice")
	assert.Contains(t, out, "Mocked 1 of 1 route files")

	for _, f := range []string{"src/main.js", "src/views/Home.vue", "src/styles/app.css", "package.json"} {
		ok, err := afero.Exists(fs, filepath.Join("/slice", f))
		require.NoError(t, err)
		assert.True(t, ok, f)
	}
	ok, _ := afero.Exists(fs, "/slice/src/unused/orphan.js")
	assert.False(t, ok)

	routes, err := afero.ReadFile(fs, "/slice/src/router/index.js")
	require.NoError(t, err)
	assert.Contains(t, string(routes), "import('../mock/components/route-components.vue')")
	ok, _ = afero.Exists(fs, "/slice/src/mock/components/route-components.vue")
	assert.True(t, ok)

	original, err := afero.ReadFile(fs, "/repo/src/router/index.js")
	require.NoError(t, err)
	assert.Contains(t, string(original), "../views/Home.vue", "source tree is never modified")

	assert.Contains(t, out, "Wrote 1 used aliases to /slice/vue.config.js")
	vueConfig, err := afero.ReadFile(fs, "/slice/vue.config.js")
	require.NoError(t, err)
	assert.Contains(t, string(vueConfig), `"@": resolve("src"),`)
}

func TestExtract_AliasConfigFromProjectTemplate(t *testing.T) {
	files := map[string]string{
		"/repo/depslice.yaml": "aliases:\n  \"@unused\": [\"src/unused\"]\n",
		"/repo/vue.config.js": "module.exports = {\n  configureWebpack: { resolve: { alias: { \"@unused\": 1 } } },\n  devServer: { port: 3001 },\n}\n",
	}
	for k, v := range appFiles {
		files[k] = v
	}
	fs := writeTree(t, files)

	_, _, err := run(t, fs, "extract", "--root", "/repo", "--target", "/slice", "src/main.js")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/slice/vue.config.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"@": resolve("src"),`)
	assert.NotContains(t, string(data), "@unused")
	assert.Contains(t, string(data), "port: 3001", "the rest of the template is kept")
}

func TestExtract_RequiresTarget(t *testing.T) {
	_, _, err := run(t, writeTree(t, appFiles), "extract", "--root", "/repo", "src/main.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"target" not set`)
}

// =============================================================================
// merge
// =============================================================================

func TestMerge_Arguments(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/slice/src/main.js":    "slice",
		"/slice/src/extra.js":   "extra",
		"/app/src/main.js":      "app",
		"/app/src/untouched.js": "kept",
	})

	out, _, err := run(t, fs, "merge", "--verbose", "/slice", "/app")
	require.NoError(t, err)
	assert.Contains(t, out, "copied: src/extra.js")
	assert.Contains(t, out, "skipped: src/main.js")
	assert.Contains(t, out, "2 files, 1 copied, 1 skipped, 0 failed")

	data, err := afero.ReadFile(fs, "/app/src/main.js")
	require.NoError(t, err)
	assert.Equal(t, "app", string(data))
	ok, _ := afero.Exists(fs, "/slice/src/extra.js")
	assert.True(t, ok, "source is kept without --remove-source")
}

func TestMerge_FromProjectConfig(t *testing.T) {
	fs := writeTree(t, map[string]string{
		"/repo/depslice.yaml":    "merge:\n  source: build/slice\n  target: /app\n",
		"/repo/build/slice/a.js": "a",
		"/app/b.js":              "b",
	})

	out, _, err := run(t, fs, "merge", "--root", "/repo", "--remove-source")
	require.NoError(t, err)
	assert.Contains(t, out, "Merged /repo/build/slice into /app: 1 files, 1 copied")
	assert.Contains(t, out, "Removed /repo/build/slice")

	ok, _ := afero.Exists(fs, "/app/a.js")
	assert.True(t, ok)
	ok, _ = afero.DirExists(fs, "/repo/build/slice")
	assert.False(t, ok)
}

func TestMerge_Errors(t *testing.T) {
	fs := writeTree(t, appFiles)

	_, _, err := run(t, fs, "merge", "/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 0 or 2 args")

	_, _, err = run(t, fs, "merge", "--root", "/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge.source and merge.target")

	_, _, err = run(t, fs, "merge", "/missing", "/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

// =============================================================================
// watch
// =============================================================================

func TestWatchFilter(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	accept := watchFilter(cfg, "/repo/output")

	assert.True(t, accept("/repo/src/main.js"))
	assert.True(t, accept("/repo/src/App.vue"))
	assert.True(t, accept("/repo/depslice.yaml"))
	assert.False(t, accept("/repo/output/dependency-report.json"))
	assert.False(t, accept("/repo/output"))
	assert.False(t, accept("/repo/README.md"))
	assert.True(t, accept("/repo/outputs/a.js"))
}
