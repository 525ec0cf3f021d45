// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads depslice project configuration.
//
// Defaults are embedded in the binary. A project file (depslice.yaml at
// the project root, or an explicit path) overrides them key by key, and the
// merged result is validated before use.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/depslice/services/slice/graph"
	"github.com/AleutianAI/depslice/services/slice/trackers"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed default_config.yaml
var defaultConfigYAML []byte

const (
	// ProjectFileName is the project configuration file looked up at the root.
	ProjectFileName = "depslice.yaml"

	// MaxYAMLFileSize bounds configuration files.
	MaxYAMLFileSize = 1 << 20
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// configValidate is the validator instance for configuration types.
// Initialized in init() with custom validators.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("globpattern", validateGlobPattern)
}

// validateGlobPattern accepts doublestar patterns the conventions can compile.
func validateGlobPattern(fl validator.FieldLevel) bool {
	return trackers.ValidatePattern(fl.Field().String()) == nil
}

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the full project configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	// ProjectRoot anchors aliases, entries and reports. Relative values are
	// joined to the directory Load was given. Empty means that directory.
	ProjectRoot string `yaml:"project_root"`

	// Aliases maps alias keys to target directories. A key ending in "$"
	// matches only the exact specifier.
	Aliases map[string][]string `yaml:"aliases" validate:"dive,keys,required,endkeys,min=1"`

	// Extensions is the resolver's probe order.
	Extensions []string `yaml:"extensions" validate:"required,min=1,dive,startswith=."`

	// TextExtensions are parsed; any other kind is an asset.
	TextExtensions []string `yaml:"text_extensions" validate:"required,min=1,dive,startswith=."`

	// ExternalMarker is the path segment marking external package files.
	ExternalMarker string `yaml:"external_marker" validate:"required,excludesall=/"`

	RoutePatterns      []string `yaml:"route_patterns" validate:"dive,globpattern"`
	AggregatorPatterns []string `yaml:"aggregator_patterns" validate:"dive,globpattern"`
	ManifestPatterns   []string `yaml:"manifest_patterns" validate:"dive,globpattern"`

	TemplateAttributes []string `yaml:"template_attributes" validate:"dive,required"`

	MaxFileSize   int64 `yaml:"max_file_size" validate:"gt=0"`
	StatCacheSize int   `yaml:"stat_cache_size" validate:"gt=0"`

	Report   ReportConfig   `yaml:"report"`
	Scaffold ScaffoldConfig `yaml:"scaffold"`
	Merge    MergeConfig    `yaml:"merge"`
	Watch    WatchConfig    `yaml:"watch"`

	// Source is the project file that was applied, empty for pure defaults.
	Source string `yaml:"-"`
}

// ReportConfig selects the report files written after a run.
type ReportConfig struct {
	// OutDir is relative to the project root unless absolute.
	OutDir   string `yaml:"out_dir" validate:"required"`
	JSON     bool   `yaml:"json"`
	Text     bool   `yaml:"text"`
	FileList bool   `yaml:"file_list"`
}

// ScaffoldConfig controls extraction into a new project directory.
type ScaffoldConfig struct {
	// ExtraFiles are copied in addition to the collected set, relative to the root.
	ExtraFiles []string `yaml:"extra_files" validate:"dive,required"`

	// MockComponent is the target-relative component route imports are pointed at.
	MockComponent string `yaml:"mock_component" validate:"required"`

	// Concurrency bounds parallel copies.
	Concurrency int `yaml:"concurrency" validate:"gte=1,lte=256"`

	// AliasConfig is the target-relative build config written with the
	// aliases a run used. Empty disables it.
	AliasConfig string `yaml:"alias_config"`

	// AliasTemplate is the project-relative template for AliasConfig.
	AliasTemplate string `yaml:"alias_template"`
}

// MergeConfig names the default projects of the merge command.
type MergeConfig struct {
	// Source is merged into Target; both are relative to the project root
	// unless absolute.
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// WatchConfig controls the watch loop.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`

	// Ignore lists doublestar patterns whose events never trigger a run.
	Ignore []string `yaml:"ignore" validate:"dive,globpattern"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing default config: %w", err)
	}
	return &cfg, nil
}

// Parse applies YAML data over the defaults and validates the result.
//
// Description:
//
//	Keys present in data replace the default value. Lists are replaced as a
//	whole; the alias map is merged, so a project may add aliases without
//	repeating the defaults. ProjectRoot is returned as written.
//
// Outputs:
//
//	*Config - The merged configuration.
//	error   - Non-nil on oversized or malformed YAML, or failed validation
//	          (wrapping ErrInvalidConfig).
func Parse(data []byte) (*Config, error) {
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("config exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the project configuration for root.
//
// Description:
//
//	When path is empty, root/depslice.yaml is used and a missing file
//	yields the defaults. An explicit path must exist. The returned
//	ProjectRoot is always absolute.
//
// Inputs:
//
//	fs   - File system holding the configuration file.
//	root - Directory the project root is resolved against.
//	path - Explicit configuration file, or "".
//
// Outputs:
//
//	*Config - The loaded configuration.
//	error   - Non-nil when the file cannot be read, parsed or validated.
func Load(fs afero.Fs, root, path string) (*Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, ProjectFileName)
	}

	var cfg *Config
	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
		cfg, err = Default()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch {
	case cfg.ProjectRoot == "":
		cfg.ProjectRoot = root
	case !filepath.IsAbs(cfg.ProjectRoot):
		cfg.ProjectRoot = filepath.Join(root, cfg.ProjectRoot)
	}
	cfg.ProjectRoot = filepath.Clean(cfg.ProjectRoot)

	slog.Debug("config loaded",
		slog.String("source", cfg.Source),
		slog.String("project_root", cfg.ProjectRoot),
		slog.Int("aliases", len(cfg.Aliases)),
	)
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// =============================================================================
// Derived Settings
// =============================================================================

// CollectorOptions returns the graph.Collector options this config selects.
func (c *Config) CollectorOptions(logger *slog.Logger) []graph.CollectorOption {
	opts := []graph.CollectorOption{
		graph.WithProjectRoot(c.ProjectRoot),
		graph.WithAliases(c.Aliases),
		graph.WithExtensions(c.Extensions),
		graph.WithTextExtensions(c.TextExtensions),
		graph.WithExternalMarker(c.ExternalMarker),
		graph.WithRoutePatterns(c.RoutePatterns),
		graph.WithAggregatorPatterns(c.AggregatorPatterns),
		graph.WithManifestPatterns(c.ManifestPatterns),
		graph.WithTemplateAttributes(c.TemplateAttributes),
		graph.WithMaxFileSize(c.MaxFileSize),
		graph.WithStatCacheSize(c.StatCacheSize),
	}
	if logger != nil {
		opts = append(opts, graph.WithLogger(logger))
	}
	return opts
}

// ReportDir returns the absolute report directory.
func (c *Config) ReportDir() string {
	return c.abs(c.Report.OutDir)
}

// MockComponentPath returns the mock component path under target.
func (c *Config) MockComponentPath(target string) string {
	if filepath.IsAbs(c.Scaffold.MockComponent) {
		return c.Scaffold.MockComponent
	}
	return filepath.Join(target, c.Scaffold.MockComponent)
}

// ExtraFiles returns the absolute extra scaffold files.
func (c *Config) ExtraFiles() []string {
	out := make([]string, 0, len(c.Scaffold.ExtraFiles))
	for _, f := range c.Scaffold.ExtraFiles {
		out = append(out, c.abs(f))
	}
	return out
}

// AliasTemplatePath returns the absolute alias config template, or "" when unset.
func (c *Config) AliasTemplatePath() string {
	if c.Scaffold.AliasTemplate == "" {
		return ""
	}
	return c.abs(c.Scaffold.AliasTemplate)
}

// MergePaths returns the absolute merge source and target, "" when unset.
func (c *Config) MergePaths() (source, target string) {
	if c.Merge.Source != "" {
		source = c.abs(c.Merge.Source)
	}
	if c.Merge.Target != "" {
		target = c.abs(c.Merge.Target)
	}
	return source, target
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.ProjectRoot, p)
}
