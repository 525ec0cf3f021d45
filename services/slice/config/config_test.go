// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/depslice/services/slice/graph"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, map[string][]string{"@": {"src"}}, cfg.Aliases)
	assert.Equal(t, "node_modules", cfg.ExternalMarker)
	assert.Equal(t, []string{"src", "href"}, cfg.TemplateAttributes)
	assert.Equal(t, int64(10<<20), cfg.MaxFileSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 8, cfg.Scaffold.Concurrency)
	assert.True(t, cfg.Report.JSON)
}

func TestParse_MergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
aliases:
  "@components": ["src/components"]
  "vue$": ["node_modules/vue/dist/vue.esm.js"]
extensions: [".js", ".vue"]
report:
  out_dir: build/report
`))
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"@":           {"src"},
		"@components": {"src/components"},
		"vue$":        {"node_modules/vue/dist/vue.esm.js"},
	}, cfg.Aliases, "aliases merge with defaults")
	assert.Equal(t, []string{".js", ".vue"}, cfg.Extensions, "lists replace defaults")
	assert.Equal(t, "build/report", cfg.Report.OutDir)
	assert.True(t, cfg.Report.Text, "untouched nested keys keep defaults")
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad route pattern":  "route_patterns: ['[oops']",
		"extension no dot":   "extensions: ['js']",
		"empty alias target": "aliases: {'@x': []}",
		"zero cache":         "stat_cache_size: 0",
		"marker with slash":  "external_marker: a/b",
		"zero concurrency":   "scaffold: {concurrency: 0}",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	_, err := Parse([]byte("aliases: [unterminated"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoad_MissingProjectFileUsesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, err := Load(fs, "/repo", "")
	require.NoError(t, err)
	assert.Equal(t, "/repo", cfg.ProjectRoot)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, "/repo/output", cfg.ReportDir())
}

func TestLoad_ProjectFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/depslice.yaml", []byte("project_root: app\n"), 0o644))

	cfg, err := Load(fs, "/repo", "")
	require.NoError(t, err)
	assert.Equal(t, "/repo/app", cfg.ProjectRoot)
	assert.Equal(t, "/repo/depslice.yaml", cfg.Source)
	assert.Equal(t, "/out/x/src/mock/components/route-components.vue", cfg.MockComponentPath("/out/x"))
	assert.Contains(t, cfg.ExtraFiles(), "/repo/app/package.json")
}

func TestLoad_ScaffoldAndMergePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/depslice.yaml", []byte(`
merge:
  source: build/slice
  target: /work/app
`), 0o644))

	cfg, err := Load(fs, "/repo", "")
	require.NoError(t, err)
	assert.Equal(t, "vue.config.js", cfg.Scaffold.AliasConfig)
	assert.Equal(t, "/repo/vue.config.js", cfg.AliasTemplatePath())
	source, target := cfg.MergePaths()
	assert.Equal(t, "/repo/build/slice", source)
	assert.Equal(t, "/work/app", target)

	def, err := Load(afero.NewMemMapFs(), "/repo", "")
	require.NoError(t, err)
	source, target = def.MergePaths()
	assert.Empty(t, source)
	assert.Empty(t, target)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/repo", "/etc/depslice.yaml")
	assert.Error(t, err)
}

func TestConfig_CollectorOptions(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "/repo", "")
	require.NoError(t, err)

	c, err := graph.NewCollector(afero.NewMemMapFs(), cfg.CollectorOptions(nil)...)
	require.NoError(t, err)
	opts := c.Options()
	assert.Equal(t, "/repo", opts.ProjectRoot)
	assert.Equal(t, cfg.Extensions, opts.Extensions)
	assert.Equal(t, cfg.RoutePatterns, opts.RoutePatterns)
	assert.Equal(t, int64(10<<20), opts.MaxFileSize)
}
