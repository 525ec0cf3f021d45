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
	"path/filepath"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// ScriptParser extracts module references from JavaScript and TypeScript source.
//
// Description:
//
//	ScriptParser uses tree-sitter to find every static import declaration,
//	every re-export that names a source module, and every require() or
//	dynamic import() whose argument is a literal string. Dynamic loads with
//	computed arguments cannot be resolved statically and are skipped.
//
// Thread Safety:
//
//	ScriptParser is safe for concurrent use. Each Parse call creates its own
//	tree-sitter parser instance.
//
// Example:
//
//	parser := NewScriptParser()
//	specs, err := parser.Parse(ctx, content, "/repo/src/main.js", LangJavaScript)
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	for _, s := range specs {
//	    fmt.Printf("%s %v\n", s.Raw, s.Symbols.Names)
//	}
type ScriptParser struct {
	options ScriptParserOptions
}

// ScriptParserOptions configures ScriptParser behavior.
type ScriptParserOptions struct {
	// MaxFileSize is the maximum content size in bytes to parse.
	// Default: 10MB
	MaxFileSize int

	// Logger receives debug output about unresolvable references.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultScriptParserOptions returns the default options.
func DefaultScriptParserOptions() ScriptParserOptions {
	return ScriptParserOptions{
		MaxFileSize: 10 * 1024 * 1024, // 10MB
		Logger:      slog.Default(),
	}
}

// ScriptParserOption is a functional option for configuring ScriptParser.
type ScriptParserOption func(*ScriptParserOptions)

// WithScriptMaxFileSize sets the maximum content size for parsing.
func WithScriptMaxFileSize(size int) ScriptParserOption {
	return func(o *ScriptParserOptions) {
		o.MaxFileSize = size
	}
}

// WithScriptLogger sets the logger.
func WithScriptLogger(logger *slog.Logger) ScriptParserOption {
	return func(o *ScriptParserOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewScriptParser creates a new ScriptParser with the given options.
func NewScriptParser(opts ...ScriptParserOption) *ScriptParser {
	options := DefaultScriptParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &ScriptParser{options: options}
}

// Parse extracts module references from script content.
//
// Description:
//
//	Parses content with the grammar selected by lang and returns one
//	Specifier per reference, in source order. Import declarations carry the
//	imported names ("default" for default imports, "*" for namespace
//	imports). Re-exports carry the source-side names. Literal dynamic loads
//	carry the namespace sentinel.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before parsing.
//	content  - Raw script bytes. Must be valid UTF-8.
//	filePath - Absolute path of the file, used as the reference origin.
//	lang     - Grammar to parse with.
//
// Outputs:
//
//	[]Specifier - References in source order. Empty when none are found.
//	error       - Non-nil for complete failures (too large, invalid UTF-8, canceled).
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *ScriptParser) Parse(ctx context.Context, content []byte, filePath string, lang ScriptLang) ([]Specifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("script parse canceled before start: %w", err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	tree, err := parseTree(ctx, content, lang.grammar())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		p.options.Logger.Debug("script has syntax errors, extracting what parsed",
			slog.String("file", filePath),
			slog.String("lang", lang.String()),
		)
	}

	dir := filepath.Dir(filePath)
	specs := make([]Specifier, 0)
	add := func(raw string, n *sitter.Node, info SymbolInfo) {
		specs = append(specs, Specifier{
			Raw:     raw,
			File:    filePath,
			Dir:     dir,
			Line:    int(n.StartPoint().Row) + 1,
			Symbols: info,
		})
	}

	walk(root, func(n *sitter.Node) bool {
		switch kindOf(n) {
		case kindImportStatement:
			p.extractImport(n, content, add)
			return false
		case kindExportStatement:
			p.extractReExport(n, content, add)
		case kindCallExpression:
			p.extractDynamicCall(n, content, filePath, add)
		}
		return true
	})

	return specs, nil
}

// extractImport handles `import ... from 'x'`, `import 'x'` and
// TypeScript's `import x = require('x')`.
func (p *ScriptParser) extractImport(n *sitter.Node, content []byte, add func(string, *sitter.Node, SymbolInfo)) {
	source := n.ChildByFieldName("source")
	var names []string

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch kindOf(child) {
		case kindImportClause:
			names = importClauseNames(child, content)
		case kindImportRequireClause:
			if s := child.ChildByFieldName("source"); s != nil {
				source = s
			} else {
				source = firstNamedOfKind(child, kindString)
			}
			names = []string{NamespaceSymbol}
		case kindString:
			if source == nil {
				source = child
			}
		}
	}

	raw, ok := stringLiteral(source, content)
	if !ok || raw == "" {
		return
	}
	add(raw, n, SymbolInfo{Names: names, Kind: RefStaticImport})
}

// importClauseNames lists the imported (source-side) names of an import clause.
func importClauseNames(clause *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch kindOf(child) {
		case kindIdentifier:
			names = append(names, DefaultSymbol)
		case kindNamespaceImport:
			names = append(names, NamespaceSymbol)
		case kindNamedImports:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if kindOf(spec) != kindImportSpecifier {
					continue
				}
				if name := specifierName(spec, content); name != "" {
					names = append(names, name)
				}
			}
		}
	}
	return names
}

// specifierName returns the `name` field of an import or export specifier.
func specifierName(spec *sitter.Node, content []byte) string {
	name := spec.ChildByFieldName("name")
	if name == nil && spec.NamedChildCount() > 0 {
		name = spec.NamedChild(0)
	}
	return unquote(nodeText(name, content))
}

// specifierAlias returns the `alias` field of a specifier, or its name.
func specifierAlias(spec *sitter.Node, content []byte) string {
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		return unquote(nodeText(alias, content))
	}
	return specifierName(spec, content)
}

// extractReExport handles export declarations that name a source module.
func (p *ScriptParser) extractReExport(n *sitter.Node, content []byte, add func(string, *sitter.Node, SymbolInfo)) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}
	raw, ok := stringLiteral(source, content)
	if !ok || raw == "" {
		return
	}

	var names []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch {
		case kindOf(child) == kindExportClause:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if kindOf(spec) != kindExportSpecifier {
					continue
				}
				if name := specifierName(spec, content); name != "" {
					names = append(names, name)
				}
			}
		case kindOf(child) == kindNamespaceExport, child.Type() == "*":
			names = append(names, NamespaceSymbol)
		}
	}
	add(raw, n, SymbolInfo{Names: names, Kind: RefReExport})
}

// extractDynamicCall handles require('x') and import('x').
func (p *ScriptParser) extractDynamicCall(n *sitter.Node, content []byte, filePath string, add func(string, *sitter.Node, SymbolInfo)) {
	fn := n.ChildByFieldName("function")
	switch kindOf(fn) {
	case kindDynamicImport:
	case kindIdentifier:
		if nodeText(fn, content) != "require" {
			return
		}
	default:
		return
	}

	arg := firstArgument(n)
	if arg == nil {
		return
	}
	raw, ok := stringLiteral(arg, content)
	if !ok {
		p.options.Logger.Debug("skipping non-literal module load",
			slog.String("file", filePath),
			slog.Int("line", int(n.StartPoint().Row)+1),
			slog.String("argument", truncate(nodeText(arg, content), 80)),
		)
		return
	}
	if raw == "" {
		return
	}
	add(raw, n, SymbolInfo{Names: []string{NamespaceSymbol}, Kind: RefDynamicCall})
}

// callArguments returns the named, non-comment arguments of a call.
func callArguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, args.NamedChildCount())
	for i := 0; i < int(args.NamedChildCount()); i++ {
		a := args.NamedChild(i)
		if a.Type() == "comment" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func firstArgument(call *sitter.Node) *sitter.Node {
	args := callArguments(call)
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func firstNamedOfKind(n *sitter.Node, kind nodeKind) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); kindOf(c) == kind {
			return c
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// parseTree parses content with a fresh tree-sitter parser.
func parseTree(ctx context.Context, content []byte, lang *sitter.Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	return parser.ParseCtx(ctx, nil, content)
}
