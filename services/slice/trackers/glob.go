// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trackers

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/depslice/services/slice/ast"
	"github.com/dlclark/regexp2"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GlobDescriptor is one directory-glob construct and the files it matched.
type GlobDescriptor struct {
	Dir       string   `json:"dir"`
	Recursive bool     `json:"recursive"`
	Pattern   string   `json:"pattern"`
	Flags     string   `json:"flags,omitempty"`
	Files     []string `json:"files"`
}

// Manifest is the resolved view of a directory-glob manifest for one request.
type Manifest struct {
	// Kind is ast.ManifestNone when the module has no usable glob construct.
	Kind ast.ManifestKind

	// Descriptors lists each glob construct in source order.
	Descriptors []GlobDescriptor

	// SymbolMap maps every derived symbol name to its file.
	SymbolMap map[string]string

	// Files are the files to enqueue for this request, sorted.
	Files []string

	// Unresolved lists requested names with no matching file.
	Unresolved []string

	// IncludeSelf reports whether the manifest module itself is needed.
	IncludeSelf bool
}

// globAnalysis is the request-independent part of a manifest.
type globAnalysis struct {
	kind        ast.ManifestKind
	descriptors []GlobDescriptor
	files       []string
	symbols     map[string]string
}

// GlobResolver expands directory-glob manifests into concrete files.
//
// Description:
//
//	A manifest module is analyzed once per run: its require.context calls
//	are read literally, each directory is walked (recursively when asked)
//	and every file whose "./"-prefixed path relative to the glob root
//	matches the pattern is collected. The manifest module itself is never
//	part of its own file list.
//
//	Plugin-install manifests expose each file as "$" + its base name (up to
//	the first dot) and as every name the file mounts with
//	Object.defineProperty(X.prototype, ...). They always need every file
//	and the manifest itself, since installing the plugin registers them all.
//
//	Symbol-aggregation manifests expose each file under its component name
//	(see TransformComponentName). A universal request (no names, "*" or
//	"default") needs every file and the manifest; a specific request needs
//	only the matching files, plus the manifest when a name is unmatched.
//
// Thread Safety:
//
//	Safe for concurrent use. Caches are guarded by a mutex.
type GlobResolver struct {
	fs      afero.Fs
	options GlobOptions

	mu       sync.Mutex
	analyses map[string]*globAnalysis
	results  map[string]*Manifest
	stats    CacheStats
}

// GlobOptions configures GlobResolver behavior.
type GlobOptions struct {
	// MaxFileSize skips manifest analysis of larger files.
	// Default: 10MB
	MaxFileSize int64

	// ExternalMarker directories are never walked.
	// Default: node_modules
	ExternalMarker string

	// Logger receives warnings about unreadable manifests and bad patterns.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultGlobOptions returns the default options.
func DefaultGlobOptions() GlobOptions {
	return GlobOptions{
		MaxFileSize:    10 * 1024 * 1024,
		ExternalMarker: "node_modules",
		Logger:         slog.Default(),
	}
}

// GlobOption is a functional option for configuring GlobResolver.
type GlobOption func(*GlobOptions)

// WithGlobLogger sets the logger.
func WithGlobLogger(logger *slog.Logger) GlobOption {
	return func(o *GlobOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithGlobExternalMarker sets the directory name that is never walked.
func WithGlobExternalMarker(marker string) GlobOption {
	return func(o *GlobOptions) {
		if marker != "" {
			o.ExternalMarker = marker
		}
	}
}

// WithGlobMaxFileSize sets the analysis size limit.
func WithGlobMaxFileSize(size int64) GlobOption {
	return func(o *GlobOptions) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// NewGlobResolver creates a GlobResolver.
func NewGlobResolver(fsys afero.Fs, opts ...GlobOption) *GlobResolver {
	options := DefaultGlobOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &GlobResolver{
		fs:       fsys,
		options:  options,
		analyses: make(map[string]*globAnalysis),
		results:  make(map[string]*Manifest),
	}
}

// Resolve expands the manifest at path for the requested symbols.
//
// Inputs:
//
//	ctx     - Context for cancellation.
//	path    - Absolute path of the candidate manifest module.
//	symbols - Names requested at the reference site.
//
// Outputs:
//
//	*Manifest - Never nil. Kind is ast.ManifestNone for modules without a
//	            usable glob construct or that cannot be read or parsed.
//	            The returned value is shared with the cache; do not modify it.
func (g *GlobResolver) Resolve(ctx context.Context, path string, symbols []string) *Manifest {
	requested, universal := requestedNames(symbols)
	key := path + "\x00" + strings.Join(requested, ",")
	if universal {
		key = path + "\x00*"
	}

	g.mu.Lock()
	if m, ok := g.results[key]; ok {
		g.stats.Hits++
		g.mu.Unlock()
		return m
	}
	g.stats.Misses++
	g.mu.Unlock()

	a := g.analysis(ctx, path)
	m := &Manifest{Kind: a.kind, Descriptors: a.descriptors, SymbolMap: a.symbols}
	switch {
	case a.kind == ast.ManifestNone:
	case a.kind == ast.ManifestPluginInstall || universal:
		m.Files = a.files
		m.IncludeSelf = true
	default:
		seen := make(map[string]bool)
		for _, name := range requested {
			file, ok := a.symbols[name]
			if !ok {
				m.Unresolved = append(m.Unresolved, name)
				continue
			}
			if !seen[file] {
				seen[file] = true
				m.Files = append(m.Files, file)
			}
		}
		sort.Strings(m.Files)
		m.IncludeSelf = len(m.Unresolved) > 0
	}

	g.mu.Lock()
	g.results[key] = m
	g.mu.Unlock()
	return m
}

// Stats returns result cache counters.
func (g *GlobResolver) Stats() CacheStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// requestedNames returns sorted specific names and whether the request is universal.
func requestedNames(symbols []string) ([]string, bool) {
	var names []string
	universal := len(symbols) == 0
	for _, s := range symbols {
		switch s {
		case "":
		case ast.NamespaceSymbol, ast.DefaultSymbol:
			universal = true
		default:
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names, universal
}

// analysis returns the cached request-independent view of path.
func (g *GlobResolver) analysis(ctx context.Context, path string) *globAnalysis {
	g.mu.Lock()
	a, ok := g.analyses[path]
	g.mu.Unlock()
	if ok {
		return a
	}

	a = g.analyze(ctx, path)
	g.mu.Lock()
	g.analyses[path] = a
	g.mu.Unlock()
	return a
}

func (g *GlobResolver) analyze(ctx context.Context, path string) *globAnalysis {
	none := &globAnalysis{kind: ast.ManifestNone}
	ext := filepath.Ext(path)
	if !ast.IsScriptExt(ext) {
		return none
	}
	content, ok := g.read(path)
	if !ok {
		return none
	}
	lang := ast.ScriptLangFromExt(ext)
	manifest, err := ast.AnalyzeGlobManifest(ctx, content, lang)
	if err != nil {
		g.options.Logger.Warn("glob manifest analysis failed",
			slog.String("file", path),
			slog.String("error", err.Error()),
		)
		return none
	}
	if manifest.Kind == ast.ManifestNone {
		return none
	}

	a := &globAnalysis{kind: manifest.Kind, symbols: make(map[string]string)}
	all := make(map[string]bool)
	for _, call := range manifest.Calls {
		d, err := g.scan(path, call)
		if err != nil {
			g.options.Logger.Warn("glob scan failed",
				slog.String("file", path),
				slog.String("dir", call.Directory),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.descriptors = append(a.descriptors, d)
		for _, f := range d.Files {
			all[f] = true
		}
	}
	for f := range all {
		a.files = append(a.files, f)
	}
	sort.Strings(a.files)

	for _, f := range a.files {
		base := baseName(f)
		if manifest.Kind == ast.ManifestPluginInstall {
			a.symbols["$"+base] = f
			for _, mount := range g.prototypeMounts(ctx, f) {
				if _, taken := a.symbols[mount]; !taken {
					a.symbols[mount] = f
				}
			}
			continue
		}
		name := TransformComponentName(base)
		if _, taken := a.symbols[name]; !taken {
			a.symbols[name] = f
		}
	}
	return a
}

// scan walks one glob construct's directory.
func (g *GlobResolver) scan(manifestPath string, call ast.GlobCall) (GlobDescriptor, error) {
	root := filepath.Join(filepath.Dir(manifestPath), call.Directory)
	d := GlobDescriptor{Dir: root, Recursive: call.Recursive, Pattern: call.Pattern, Flags: call.Flags}

	re, err := compileGlobPattern(call.Pattern, call.Flags)
	if err != nil {
		return d, err
	}

	err = afero.Walk(g.fs, root, func(p string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			return nil
		}
		if info.IsDir() {
			if p != root && (!call.Recursive || info.Name() == g.options.ExternalMarker) {
				return filepath.SkipDir
			}
			return nil
		}
		if p == manifestPath {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if ok, _ := re.MatchString("./" + filepath.ToSlash(rel)); ok {
			d.Files = append(d.Files, p)
		}
		return nil
	})
	if err != nil {
		return d, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(d.Files)
	return d, nil
}

// prototypeMounts returns names a plugin file mounts on a prototype.
func (g *GlobResolver) prototypeMounts(ctx context.Context, file string) []string {
	ext := filepath.Ext(file)
	if !ast.IsScriptExt(ext) {
		return nil
	}
	content, ok := g.read(file)
	if !ok {
		return nil
	}
	mounts, err := ast.FindPrototypeMounts(ctx, content, ast.ScriptLangFromExt(ext))
	if err != nil {
		g.options.Logger.Debug("prototype mount scan failed",
			slog.String("file", file),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return mounts
}

func (g *GlobResolver) read(path string) ([]byte, bool) {
	info, err := g.fs.Stat(path)
	if err != nil || info.IsDir() || info.Size() > g.options.MaxFileSize {
		return nil, false
	}
	content, err := afero.ReadFile(g.fs, path)
	if err != nil {
		g.options.Logger.Warn("cannot read file",
			slog.String("file", path),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return content, true
}

// compileGlobPattern compiles a JavaScript regular expression literal body.
func compileGlobPattern(pattern, flags string) (*regexp2.Regexp, error) {
	var opts regexp2.RegexOptions = regexp2.ECMAScript
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern /%s/%s: %w", pattern, flags, err)
	}
	return re, nil
}

// baseName returns the file name up to its first dot.
func baseName(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// TransformComponentName derives a component name from a file base name.
//
// A trailing extension is dropped. Names containing "-" or "_" are split on
// those delimiters and each segment is capitalized (rest lower-cased) and
// concatenated: "user-card" becomes "UserCard". Names without delimiters
// are returned unchanged.
func TransformComponentName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if !strings.ContainsAny(name, "-_") {
		return name
	}
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(caser.String(p))
	}
	return b.String()
}
