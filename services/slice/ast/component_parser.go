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
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
)

// ScriptSection is one <script> block of a component file.
type ScriptSection struct {
	Content string
	Lang    ScriptLang

	// Src is the value of a src attribute, empty for inline scripts.
	Src string

	// Line is the 1-based line where Content starts.
	Line int
}

// StyleSection is one <style> block of a component file.
type StyleSection struct {
	Content string
	Dialect Dialect
	Src     string
	Line    int
}

// TemplateRef is a resource attribute found in markup.
type TemplateRef struct {
	Attribute string
	Value     string
	Line      int
}

// ComponentSections is a single-file component split into its parts.
type ComponentSections struct {
	Scripts  []ScriptSection
	Styles   []StyleSection
	Template []TemplateRef

	// Bindings are bound attribute expressions (`:src="require('./a.png')"`).
	Bindings []TemplateRef
}

// ComponentParser extracts module references from single-file components.
//
// Description:
//
//	ComponentParser splits a .vue file with the tree-sitter html grammar.
//	The script blocks are concatenated and handed to a ScriptParser, each
//	style block goes to a StyleParser with its declared dialect, and the
//	markup is scanned for resource attributes such as src and href.
//
// Thread Safety:
//
//	Safe for concurrent use when the wrapped parsers are.
type ComponentParser struct {
	script  *ScriptParser
	style   *StyleParser
	options ComponentParserOptions
}

// ComponentParserOptions configures ComponentParser behavior.
type ComponentParserOptions struct {
	// TemplateAttributes are the markup attributes treated as file references.
	// Default: ["src", "href"]
	TemplateAttributes []string

	// Logger receives warnings about sections that fail to parse.
	Logger *slog.Logger
}

// DefaultComponentParserOptions returns the default options.
func DefaultComponentParserOptions() ComponentParserOptions {
	return ComponentParserOptions{
		TemplateAttributes: []string{"src", "href"},
		Logger:             slog.Default(),
	}
}

// ComponentParserOption is a functional option for configuring ComponentParser.
type ComponentParserOption func(*ComponentParserOptions)

// WithTemplateAttributes sets the markup attributes treated as references.
func WithTemplateAttributes(attrs []string) ComponentParserOption {
	return func(o *ComponentParserOptions) {
		if len(attrs) > 0 {
			o.TemplateAttributes = attrs
		}
	}
}

// WithComponentLogger sets the logger.
func WithComponentLogger(logger *slog.Logger) ComponentParserOption {
	return func(o *ComponentParserOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewComponentParser creates a ComponentParser that delegates to the given parsers.
func NewComponentParser(script *ScriptParser, style *StyleParser, opts ...ComponentParserOption) *ComponentParser {
	options := DefaultComponentParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &ComponentParser{script: script, style: style, options: options}
}

// Parse extracts every reference from a component file.
//
// Description:
//
//	Script references come first (in source order), then script/style src
//	attributes, then markup resources, then each style section's references.
//	A section that fails to parse is logged and contributes nothing; the
//	other sections are still processed.
//
// Inputs:
//
//	ctx      - Context for cancellation.
//	content  - Raw component bytes.
//	filePath - Absolute path of the component.
//
// Outputs:
//
//	[]Specifier - All references found.
//	error       - Non-nil only when the file itself cannot be split.
func (p *ComponentParser) Parse(ctx context.Context, content []byte, filePath string) ([]Specifier, error) {
	sections, err := SplitComponent(ctx, content)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filePath)
	specs := make([]Specifier, 0)

	if script, lang, lines := concatScripts(sections.Scripts); script != "" {
		found, err := p.script.Parse(ctx, []byte(script), filePath, lang)
		if err != nil {
			p.options.Logger.Warn("component script parse failed",
				slog.String("file", filePath),
				slog.String("error", err.Error()),
			)
		}
		for _, s := range found {
			s.Line = lines.original(s.Line)
			specs = append(specs, s)
		}
	}

	for _, s := range sections.Scripts {
		if s.Src != "" {
			specs = append(specs, Specifier{Raw: s.Src, File: filePath, Dir: dir, Line: s.Line,
				Symbols: SymbolInfo{Kind: RefStaticImport}})
		}
	}
	for _, s := range sections.Styles {
		if s.Src != "" {
			specs = append(specs, Specifier{Raw: s.Src, File: filePath, Dir: dir, Line: s.Line,
				Symbols: SymbolInfo{Kind: RefStyleImport}})
		}
	}

	for _, ref := range sections.Template {
		if !isLocalResource(ref.Value) || !p.isReferenceAttribute(ref.Attribute) {
			continue
		}
		specs = append(specs, Specifier{Raw: strings.TrimSpace(ref.Value), File: filePath, Dir: dir, Line: ref.Line,
			Symbols: SymbolInfo{Kind: RefTemplateAsset}})
	}

	for _, b := range sections.Bindings {
		if !strings.Contains(b.Value, "require") {
			continue
		}
		found, err := p.script.Parse(ctx, []byte(b.Value), filePath, LangJavaScript)
		if err != nil {
			continue
		}
		for _, s := range found {
			s.Line = b.Line
			specs = append(specs, s)
		}
	}

	if p.style != nil {
		for _, st := range sections.Styles {
			if strings.TrimSpace(st.Content) == "" {
				continue
			}
			found, err := p.style.Parse(ctx, []byte(st.Content), filePath, st.Dialect)
			if err != nil {
				p.options.Logger.Warn("component style parse failed",
					slog.String("file", filePath),
					slog.String("dialect", st.Dialect.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
			for _, s := range found {
				if s.Line > 0 {
					s.Line += st.Line - 1
				}
				specs = append(specs, s)
			}
		}
	}

	return specs, nil
}

func (p *ComponentParser) isReferenceAttribute(name string) bool {
	for _, a := range p.options.TemplateAttributes {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// SplitComponent splits single-file component content into sections.
//
// Description:
//
//	Top-level <script> and <style> elements become sections; every other
//	attribute in the markup is reported as a TemplateRef (plain attributes)
//	or a binding (`:name` and `v-bind:name` attributes).
//
// Outputs:
//
//	*ComponentSections - Never nil on success.
//	error              - Non-nil for invalid UTF-8 or a failed parse.
func SplitComponent(ctx context.Context, content []byte) (*ComponentSections, error) {
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}
	tree, err := parseTree(ctx, content, html.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	out := &ComponentSections{}
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		switch kindOf(n) {
		case kindScriptElement:
			attrs := tagAttributes(firstNamedOfKind(n, kindStartTag), content)
			sec := ScriptSection{Lang: ScriptLangFromAttr(attrs["lang"]), Src: attrs["src"], Line: int(n.StartPoint().Row) + 1}
			if raw := firstNamedOfKind(n, kindRawText); raw != nil {
				sec.Content = nodeText(raw, content)
				sec.Line = int(raw.StartPoint().Row) + 1
			}
			out.Scripts = append(out.Scripts, sec)
			return false

		case kindStyleElement:
			attrs := tagAttributes(firstNamedOfKind(n, kindStartTag), content)
			sec := StyleSection{Dialect: DialectFromLang(attrs["lang"]), Src: attrs["src"], Line: int(n.StartPoint().Row) + 1}
			if raw := firstNamedOfKind(n, kindRawText); raw != nil {
				sec.Content = nodeText(raw, content)
				sec.Line = int(raw.StartPoint().Row) + 1
			}
			out.Styles = append(out.Styles, sec)
			return false

		case kindAttribute:
			name, value := attributeNameValue(n, content)
			ref := TemplateRef{Attribute: name, Value: value, Line: int(n.StartPoint().Row) + 1}
			switch {
			case strings.HasPrefix(name, ":"):
				ref.Attribute = strings.TrimPrefix(name, ":")
				out.Bindings = append(out.Bindings, ref)
			case strings.HasPrefix(name, "v-bind:"):
				ref.Attribute = strings.TrimPrefix(name, "v-bind:")
				out.Bindings = append(out.Bindings, ref)
			default:
				out.Template = append(out.Template, ref)
			}
			return false
		}
		return true
	})
	return out, nil
}

// tagAttributes maps attribute names of a start tag to their values.
func tagAttributes(tag *sitter.Node, content []byte) map[string]string {
	attrs := make(map[string]string)
	if tag == nil {
		return attrs
	}
	for i := 0; i < int(tag.NamedChildCount()); i++ {
		child := tag.NamedChild(i)
		if kindOf(child) != kindAttribute {
			continue
		}
		name, value := attributeNameValue(child, content)
		attrs[strings.ToLower(name)] = value
	}
	return attrs
}

func attributeNameValue(attr *sitter.Node, content []byte) (string, string) {
	var name, value string
	for i := 0; i < int(attr.NamedChildCount()); i++ {
		child := attr.NamedChild(i)
		switch kindOf(child) {
		case kindAttributeName:
			name = nodeText(child, content)
		case kindAttributeValue:
			value = nodeText(child, content)
		case kindQuotedAttributeValue:
			if v := firstNamedOfKind(child, kindAttributeValue); v != nil {
				value = nodeText(v, content)
			}
		}
	}
	return name, value
}

// isLocalResource reports whether a markup attribute value names a project file.
//
// Absolute paths, URLs with any scheme (http:, mailto:, tel:, data:,
// javascript:), protocol-relative URLs, in-page anchors and interpolation
// placeholders are not file references.
func isLocalResource(v string) bool {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return false
	case strings.HasPrefix(v, "/"), strings.HasPrefix(v, "#"):
		return false
	case strings.Contains(v, "{{"), strings.Contains(v, "${"):
		return false
	case hasScheme(v):
		return false
	}
	return true
}

// hasScheme reports whether v starts with an RFC 3986 scheme followed by ':'.
func hasScheme(v string) bool {
	colon := strings.IndexByte(v, ':')
	if colon <= 0 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := v[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// lineMap translates concatenated-script lines back to component lines.
type lineMap struct {
	starts  []int // first line of each block in the concatenation (1-based)
	origins []int // first line of each block in the component (1-based)
}

func (m lineMap) original(line int) int {
	if line <= 0 || len(m.starts) == 0 {
		return line
	}
	idx := 0
	for i, s := range m.starts {
		if s <= line {
			idx = i
		}
	}
	return m.origins[idx] + (line - m.starts[idx])
}

// concatScripts joins inline script blocks. The most specific grammar wins:
// any TypeScript block makes the whole concatenation TypeScript.
func concatScripts(sections []ScriptSection) (string, ScriptLang, lineMap) {
	var b strings.Builder
	lang := LangJavaScript
	var lines lineMap
	next := 1
	for _, s := range sections {
		if strings.TrimSpace(s.Content) == "" {
			continue
		}
		if s.Lang > lang {
			lang = s.Lang
		}
		lines.starts = append(lines.starts, next)
		lines.origins = append(lines.origins, s.Line)
		b.WriteString(s.Content)
		b.WriteString("\n")
		next += strings.Count(s.Content, "\n") + 1
	}
	return b.String(), lang, lines
}
