// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// entryKind is what the stat cache remembers about a path.
type entryKind uint8

const (
	entryMissing entryKind = iota
	entryFile
	entryDir
)

// Resolver maps import specifiers to absolute file paths.
//
// Description:
//
//	Resolution follows bundler semantics. A leading "~" is stripped, as are
//	query and fragment suffixes. The longest boundary-safe alias prefix is
//	substituted with each of its targets in turn; otherwise the specifier is
//	resolved against the context directory when it is relative or absolute,
//	or looked up in node_modules directories walking upward when it is a
//	bare package name. Each candidate is probed as a file, then with every
//	configured extension, then as a directory (package.json entry fields,
//	then the index file with every extension).
//
//	File system existence checks are memoized in an LRU cache. A Resolver
//	is intended to live for one collection run.
//
// Thread Safety:
//
//	Safe for concurrent use. The LRU cache is internally synchronized and
//	all other state is read-only after construction.
//
// Example:
//
//	aliases := resolve.NewAliasTable("/repo", map[string][]string{"@": {"src"}})
//	r, err := resolve.NewResolver(afero.NewOsFs(), aliases)
//	if err != nil {
//	    return err
//	}
//	res := r.Resolve("/repo/src/views", "@/utils/helper")
//	if !res.OK() {
//	    return res.Err
//	}
type Resolver struct {
	fs      afero.Fs
	aliases *AliasTable
	options ResolverOptions
	stats   *lru.Cache[string, entryKind]
}

// ResolverOptions configures Resolver behavior.
type ResolverOptions struct {
	// Extensions are appended to extensionless candidates, in order.
	// Default: .vue .js .ts .jsx .tsx .json .css .less .scss .png
	Extensions []string

	// MainFiles are directory index base names.
	// Default: index
	MainFiles []string

	// MainFields are package.json fields consulted for directory entries.
	// A browser field is used only in its string form.
	// Default: browser, module, main
	MainFields []string

	// ExternalMarker is the path segment that marks external packages.
	// Default: node_modules
	ExternalMarker string

	// CacheSize bounds the stat cache.
	// Default: 4096
	CacheSize int

	// Logger receives debug output about failed resolutions.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultResolverOptions returns the default options.
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		Extensions:     []string{".vue", ".js", ".ts", ".jsx", ".tsx", ".json", ".css", ".less", ".scss", ".png"},
		MainFiles:      []string{"index"},
		MainFields:     []string{"browser", "module", "main"},
		ExternalMarker: "node_modules",
		CacheSize:      4096,
		Logger:         slog.Default(),
	}
}

// ResolverOption is a functional option for configuring Resolver.
type ResolverOption func(*ResolverOptions)

// WithExtensions sets the extension probe order.
func WithExtensions(exts []string) ResolverOption {
	return func(o *ResolverOptions) {
		if len(exts) > 0 {
			o.Extensions = exts
		}
	}
}

// WithMainFiles sets the directory index base names.
func WithMainFiles(names []string) ResolverOption {
	return func(o *ResolverOptions) {
		if len(names) > 0 {
			o.MainFiles = names
		}
	}
}

// WithMainFields sets the package.json entry fields.
func WithMainFields(fields []string) ResolverOption {
	return func(o *ResolverOptions) {
		o.MainFields = fields
	}
}

// WithExternalMarker sets the external package path segment.
func WithExternalMarker(marker string) ResolverOption {
	return func(o *ResolverOptions) {
		if marker != "" {
			o.ExternalMarker = marker
		}
	}
}

// WithCacheSize sets the stat cache capacity.
func WithCacheSize(size int) ResolverOption {
	return func(o *ResolverOptions) {
		if size > 0 {
			o.CacheSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(o *ResolverOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewResolver creates a Resolver over fs.
//
// Inputs:
//
//	fs      - File system to probe. Must not be nil.
//	aliases - Alias table. May be nil for no aliases.
//	opts    - Functional options.
//
// Outputs:
//
//	*Resolver - Ready to use.
//	error     - Non-nil when fs is nil or the cache cannot be created.
func NewResolver(fs afero.Fs, aliases *AliasTable, opts ...ResolverOption) (*Resolver, error) {
	if fs == nil {
		return nil, fmt.Errorf("resolver requires a file system")
	}
	options := DefaultResolverOptions()
	for _, opt := range opts {
		opt(&options)
	}
	cache, err := lru.New[string, entryKind](options.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating stat cache: %w", err)
	}
	return &Resolver{fs: fs, aliases: aliases, options: options, stats: cache}, nil
}

// Aliases returns the resolver's alias table.
func (r *Resolver) Aliases() *AliasTable {
	return r.aliases
}

// Resolve maps specifier, referenced from contextDir, to a file.
//
// Inputs:
//
//	contextDir - Absolute directory of the referencing file.
//	specifier  - Reference as written in source.
//
// Outputs:
//
//	Result - Path, matched alias and classification, or Err describing the failure.
//	         Resolve never panics and never returns a partially filled success.
func (r *Resolver) Resolve(contextDir, specifier string) Result {
	request := cleanRequest(specifier)
	if request == "" {
		return r.fail(specifier, contextDir, "empty specifier", "")
	}

	if alias, ok := r.aliases.Match(request); ok {
		rest := strings.TrimPrefix(request, alias.Prefix)
		for _, target := range alias.Targets {
			if p, ok := r.resolveCandidate(filepath.Join(target, rest)); ok {
				return r.succeed(p, alias.Name)
			}
		}
		return r.fail(specifier, contextDir, fmt.Sprintf("alias %q matched but no candidate exists", alias.Name), alias.Name)
	}

	switch {
	case isRelative(request):
		if p, ok := r.resolveCandidate(filepath.Join(contextDir, request)); ok {
			return r.succeed(p, "")
		}
	case filepath.IsAbs(request):
		if p, ok := r.resolveCandidate(filepath.Clean(request)); ok {
			return r.succeed(p, "")
		}
	default:
		if p, ok := r.resolvePackage(contextDir, request); ok {
			return r.succeed(p, "")
		}
		return r.fail(specifier, contextDir, "package not found in any "+r.options.ExternalMarker+" directory", "")
	}
	return r.fail(specifier, contextDir, "no file or directory matches", "")
}

// MatchAlias returns the name of the alias covering spec.
func (r *Resolver) MatchAlias(spec string) (string, bool) {
	a, ok := r.aliases.Match(spec)
	if !ok {
		return "", false
	}
	return a.Name, true
}

// Expand rewrites spec to an absolute path without probing extensions.
//
// Aliased specifiers use the first target whose parent directory exists,
// falling back to the first target. Bare package names are not expanded.
func (r *Resolver) Expand(contextDir, spec string) (string, bool) {
	spec = cleanRequest(spec)
	if alias, ok := r.aliases.Match(spec); ok {
		rest := strings.TrimPrefix(spec, alias.Prefix)
		for _, target := range alias.Targets {
			candidate := filepath.Join(target, rest)
			if r.kind(filepath.Dir(candidate)) == entryDir {
				return candidate, true
			}
		}
		return filepath.Join(alias.Targets[0], rest), true
	}
	switch {
	case isRelative(spec):
		return filepath.Join(contextDir, spec), true
	case filepath.IsAbs(spec):
		return filepath.Clean(spec), true
	}
	return "", false
}

// IsFile reports whether path is an existing regular file.
func (r *Resolver) IsFile(path string) bool {
	return r.kind(path) == entryFile
}

// IsDir reports whether path is an existing directory.
func (r *Resolver) IsDir(path string) bool {
	return r.kind(path) == entryDir
}

// IsExternal reports whether path crosses the external package boundary.
func (r *Resolver) IsExternal(path string) bool {
	return IsExternalPath(path, r.options.ExternalMarker)
}

// IsExternalPath reports whether any segment of path equals marker.
func IsExternalPath(path, marker string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == marker {
			return true
		}
	}
	return false
}

// resolveCandidate probes p as a file, with extensions, then as a directory.
func (r *Resolver) resolveCandidate(p string) (string, bool) {
	if found, ok := r.resolveFile(p); ok {
		return found, true
	}
	if r.kind(p) == entryDir {
		return r.resolveDirectory(p)
	}
	return "", false
}

func (r *Resolver) resolveFile(p string) (string, bool) {
	if r.kind(p) == entryFile {
		return p, true
	}
	for _, ext := range r.options.Extensions {
		if r.kind(p+ext) == entryFile {
			return p + ext, true
		}
	}
	return "", false
}

// resolveDirectory tries package.json entry fields, then index files.
func (r *Resolver) resolveDirectory(dir string) (string, bool) {
	for _, entry := range r.packageEntries(dir) {
		target := filepath.Join(dir, entry)
		if found, ok := r.resolveFile(target); ok {
			return found, true
		}
		if r.kind(target) == entryDir && target != dir {
			if found, ok := r.resolveIndex(target); ok {
				return found, true
			}
		}
	}
	return r.resolveIndex(dir)
}

func (r *Resolver) resolveIndex(dir string) (string, bool) {
	for _, name := range r.options.MainFiles {
		if found, ok := r.resolveFile(filepath.Join(dir, name)); ok {
			return found, true
		}
	}
	return "", false
}

// packageEntries reads the configured entry fields of dir/package.json.
func (r *Resolver) packageEntries(dir string) []string {
	manifest := filepath.Join(dir, "package.json")
	if len(r.options.MainFields) == 0 || r.kind(manifest) != entryFile {
		return nil
	}
	data, err := afero.ReadFile(r.fs, manifest)
	if err != nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		r.options.Logger.Debug("ignoring malformed package.json",
			slog.String("file", manifest),
			slog.String("error", err.Error()),
		)
		return nil
	}
	var entries []string
	for _, name := range r.options.MainFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		// browser may also be an object map; only the string form names an entry.
		var value string
		if err := json.Unmarshal(raw, &value); err == nil && value != "" {
			entries = append(entries, value)
		}
	}
	return entries
}

// resolvePackage looks for name in node_modules directories from dir upward.
func (r *Resolver) resolvePackage(dir, name string) (string, bool) {
	for {
		modules := filepath.Join(dir, r.options.ExternalMarker)
		if r.kind(modules) == entryDir {
			if found, ok := r.resolveCandidate(filepath.Join(modules, name)); ok {
				return found, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// kind returns the cached stat result for path.
func (r *Resolver) kind(path string) entryKind {
	if k, ok := r.stats.Get(path); ok {
		return k
	}
	k := entryMissing
	if info, err := r.fs.Stat(path); err == nil {
		if info.IsDir() {
			k = entryDir
		} else {
			k = entryFile
		}
	}
	r.stats.Add(path, k)
	return k
}

func (r *Resolver) succeed(path, alias string) Result {
	class := ClassLocal
	if r.IsExternal(path) {
		class = ClassExternal
	}
	return Result{Path: path, Alias: alias, Class: class}
}

func (r *Resolver) fail(specifier, contextDir, reason, alias string) Result {
	r.options.Logger.Debug("resolution failed",
		slog.String("specifier", specifier),
		slog.String("from", contextDir),
		slog.String("reason", reason),
	)
	return Result{Alias: alias, Err: &Error{Specifier: specifier, ContextDir: contextDir, Reason: reason}}
}

// cleanRequest strips the "~" marker and any query or fragment suffix.
func cleanRequest(spec string) string {
	spec = strings.TrimPrefix(strings.TrimSpace(spec), "~")
	if i := strings.IndexAny(spec, "?#"); i > 0 {
		spec = spec[:i]
	}
	return spec
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}
