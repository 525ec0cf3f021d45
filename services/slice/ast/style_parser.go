// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
)

// PathProber answers the file-existence questions the style parser needs to
// apply the partial-file convention without resolving the reference itself.
type PathProber interface {
	// MatchAlias returns the alias prefix a specifier starts with, if any.
	MatchAlias(specifier string) (string, bool)

	// Expand maps a specifier to the absolute path it names, without probing
	// extensions or index files.
	Expand(contextDir, specifier string) (string, bool)

	// IsFile reports whether path is an existing regular file.
	IsFile(path string) bool
}

var (
	// styleImportPattern matches @import/@use/@forward with one or more quoted
	// targets, including LESS import options: @import (reference) "a.less".
	styleImportPattern = regexp.MustCompile(`@(?:import|use|forward)\s+(?:\([^)]*\)\s*)?((?:'[^']*'|"[^"]*")(?:\s*,\s*(?:'[^']*'|"[^"]*"))*)`)

	quotedPattern = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)

	// styleURLPattern matches url() with a quoted or bare argument.
	styleURLPattern = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^)'"\s]+))\s*\)`)
)

// StyleParser extracts file references from CSS, SCSS and LESS.
//
// Description:
//
//	StyleParser walks the tree-sitter css parse of a style sheet and reads
//	@import/@use/@forward directives and url() references. The css grammar
//	does not know the superset dialects, so regions it cannot parse come back
//	as ERROR nodes; those are scanned textually so that a variable or mixin
//	the grammar rejects never hides a later reference.
//
//	Every reference is normalized: a leading "~" is stripped, bare names get
//	a "./" prefix, and for SCSS/LESS the partial-file convention
//	(_name.scss next to name) is probed before the literal name.
//
// Thread Safety:
//
//	Safe for concurrent use when the PathProber is.
type StyleParser struct {
	prober  PathProber
	options StyleParserOptions
}

// StyleParserOptions configures StyleParser behavior.
type StyleParserOptions struct {
	// MaxFileSize is the maximum content size in bytes to parse.
	// Default: 10MB
	MaxFileSize int

	Logger *slog.Logger
}

// DefaultStyleParserOptions returns the default options.
func DefaultStyleParserOptions() StyleParserOptions {
	return StyleParserOptions{
		MaxFileSize: 10 * 1024 * 1024,
		Logger:      slog.Default(),
	}
}

// StyleParserOption is a functional option for configuring StyleParser.
type StyleParserOption func(*StyleParserOptions)

// WithStyleLogger sets the logger.
func WithStyleLogger(logger *slog.Logger) StyleParserOption {
	return func(o *StyleParserOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithStyleMaxFileSize sets the maximum content size for parsing.
func WithStyleMaxFileSize(size int) StyleParserOption {
	return func(o *StyleParserOptions) {
		o.MaxFileSize = size
	}
}

// NewStyleParser creates a StyleParser. prober may be nil, in which case
// partial files are never probed.
func NewStyleParser(prober PathProber, opts ...StyleParserOption) *StyleParser {
	options := DefaultStyleParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &StyleParser{prober: prober, options: options}
}

// Parse extracts normalized references from a style sheet or style section.
//
// Inputs:
//
//	ctx      - Context for cancellation.
//	content  - Style sheet bytes.
//	filePath - Absolute path of the file containing the styles.
//	dialect  - Declared style language.
//
// Outputs:
//
//	[]Specifier - Normalized references in source order.
//	error       - Non-nil when the content cannot be parsed at all.
func (p *StyleParser) Parse(ctx context.Context, content []byte, filePath string, dialect Dialect) ([]Specifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("style parse canceled before start: %w", err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	tree, err := parseTree(ctx, content, css.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	dir := filepath.Dir(filePath)
	specs := make([]Specifier, 0)
	add := func(raw string, line int, kind RefKind) {
		if !isStyleFileRef(raw) {
			return
		}
		specs = append(specs, Specifier{
			Raw:     p.normalize(raw, dir, dialect),
			File:    filePath,
			Dir:     dir,
			Line:    line,
			Symbols: SymbolInfo{Kind: kind},
		})
	}

	scan := func(text string, line int) {
		for _, raw := range scanImports(text) {
			add(raw, line, RefStyleImport)
		}
		for _, raw := range scanURLs(text) {
			add(raw, line, RefStyleURL)
		}
	}

	var visit func(n *sitter.Node) bool
	visit = func(n *sitter.Node) bool {
		line := int(n.StartPoint().Row) + 1
		switch cssKindOf(n) {
		case kindCSSComment:
			return false

		case kindCSSImportStatement, kindError:
			scan(nodeText(n, content), line)
			return false

		case kindCSSAtRule:
			// The prelude is scanned as text; nested rules live in the block.
			block := firstNamedOfKind(n, kindCSSBlock)
			if block == nil {
				scan(nodeText(n, content), line)
				return false
			}
			scan(string(content[n.StartByte():block.StartByte()]), line)
			walk(block, visit)
			return false

		case kindCSSDeclaration:
			for _, raw := range scanURLs(nodeText(n, content)) {
				add(raw, line, RefStyleURL)
			}
			return false
		}
		return true
	}
	walk(tree.RootNode(), visit)

	if tree.RootNode().HasError() {
		p.options.Logger.Debug("style sheet has regions the css grammar rejected",
			slog.String("file", filePath),
			slog.String("dialect", dialect.String()),
		)
	}
	return specs, nil
}

// scanImports returns every quoted import target in text.
func scanImports(text string) []string {
	var out []string
	for _, m := range styleImportPattern.FindAllStringSubmatch(text, -1) {
		for _, q := range quotedPattern.FindAllStringSubmatch(m[1], -1) {
			out = append(out, q[1]+q[2])
		}
	}
	return out
}

// scanURLs returns every url() argument in text.
func scanURLs(text string) []string {
	var out []string
	for _, m := range styleURLPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1]+m[2]+m[3])
	}
	return out
}

// isStyleFileRef filters out references that never name a project file.
func isStyleFileRef(raw string) bool {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return false
	case strings.HasPrefix(raw, "#"), strings.HasPrefix(raw, "//"):
		return false
	case hasScheme(raw):
		return false
	case strings.Contains(raw, "#{"), strings.Contains(raw, "@{"), strings.HasPrefix(raw, "$"):
		// SCSS or LESS interpolation
		return false
	}
	return true
}

// normalize rewrites a raw style reference into the specifier to resolve.
func (p *StyleParser) normalize(raw, dir string, dialect Dialect) string {
	spec := strings.TrimPrefix(strings.TrimSpace(raw), "~")
	if !p.hasPathMarker(spec) {
		spec = "./" + spec
	}

	ext := strings.ToLower(path.Ext(stripQuery(spec)))
	probeExt := dialect.Extension()
	superset := dialect.IsSuperset()
	if e := DialectFromExt(ext); e.IsSuperset() {
		superset = true
		probeExt = e.Extension()
	}
	if !superset || p.prober == nil {
		return spec
	}
	return p.probePartial(spec, dir, ext, probeExt)
}

// hasPathMarker reports whether spec is already relative, absolute or aliased.
func (p *StyleParser) hasPathMarker(spec string) bool {
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") || strings.HasPrefix(spec, "@") {
		return true
	}
	if p.prober != nil {
		if _, ok := p.prober.MatchAlias(spec); ok {
			return true
		}
	}
	return false
}

// probePartial applies the partial-file convention.
//
// Without an extension the candidates are name.ext then _name.ext; with an
// extension they are name then _name. The literal spec is returned when no
// candidate exists so the resolver can report the failure.
func (p *StyleParser) probePartial(spec, dir, ext, probeExt string) string {
	cut := strings.LastIndex(spec, "/")
	prefix, base := spec[:cut+1], spec[cut+1:]
	if base == "" {
		return spec
	}

	var candidates []string
	if ext == "" {
		candidates = []string{spec + probeExt, prefix + "_" + base + probeExt}
	} else {
		candidates = []string{spec, prefix + "_" + base}
	}

	for _, c := range candidates {
		abs, ok := p.prober.Expand(dir, c)
		if ok && p.prober.IsFile(abs) {
			return c
		}
	}
	return spec
}

func stripQuery(spec string) string {
	if i := strings.IndexAny(spec, "?#"); i > 0 {
		return spec[:i]
	}
	return spec
}
