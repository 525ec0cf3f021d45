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
	"errors"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrFileTooLarge is returned when content exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum parse size")

	// ErrInvalidContent is returned when content is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")
)

// =============================================================================
// Symbols
// =============================================================================

const (
	// NamespaceSymbol marks a whole-module reference with no specific names.
	NamespaceSymbol = "*"

	// DefaultSymbol is the name bound by a default import or export.
	DefaultSymbol = "default"
)

// RefKind describes how a specifier was written at its reference site.
type RefKind int

const (
	// RefStaticImport is an import declaration.
	RefStaticImport RefKind = iota

	// RefReExport is an export declaration with a source module.
	RefReExport

	// RefDynamicCall is require() or import() with a literal argument.
	RefDynamicCall

	// RefStyleImport is a style sheet @import, @use or @forward.
	RefStyleImport

	// RefStyleURL is a style sheet url() reference.
	RefStyleURL

	// RefTemplateAsset is a component template resource attribute.
	RefTemplateAsset
)

// String returns the kind name used in logs and reports.
func (k RefKind) String() string {
	switch k {
	case RefStaticImport:
		return "static-import"
	case RefReExport:
		return "re-export"
	case RefDynamicCall:
		return "dynamic-call"
	case RefStyleImport:
		return "style-import"
	case RefStyleURL:
		return "style-url"
	case RefTemplateAsset:
		return "template-asset"
	default:
		return "unknown"
	}
}

// SymbolInfo lists the names bound at a reference site.
//
// Names keeps declaration order. An empty list or one containing
// NamespaceSymbol means the whole module is referenced.
type SymbolInfo struct {
	Names []string
	Kind  RefKind
}

// HasNamespace reports whether the reference pulls in the whole module.
func (s SymbolInfo) HasNamespace() bool {
	if len(s.Names) == 0 {
		return true
	}
	for _, n := range s.Names {
		if n == NamespaceSymbol {
			return true
		}
	}
	return false
}

// SpecificNames returns the named symbols, excluding the namespace sentinel.
func (s SymbolInfo) SpecificNames() []string {
	out := make([]string, 0, len(s.Names))
	for _, n := range s.Names {
		if n != NamespaceSymbol {
			out = append(out, n)
		}
	}
	return out
}

// Specifier is one raw module reference found in a file.
type Specifier struct {
	// Raw is the reference as written (after style normalization).
	Raw string

	// File is the absolute path of the referencing file.
	File string

	// Dir is the lookup context, normally filepath.Dir(File).
	Dir string

	// Line is the 1-based line of the reference, 0 when unknown.
	Line int

	Symbols SymbolInfo
}

// =============================================================================
// Languages
// =============================================================================

// ScriptLang selects the grammar for script content.
type ScriptLang int

const (
	LangJavaScript ScriptLang = iota
	LangTypeScript
	LangTSX
)

// String returns the language name.
func (l ScriptLang) String() string {
	switch l {
	case LangTypeScript:
		return "typescript"
	case LangTSX:
		return "tsx"
	default:
		return "javascript"
	}
}

func (l ScriptLang) grammar() *sitter.Language {
	switch l {
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// ScriptLangFromExt picks a grammar from a file extension.
func ScriptLangFromExt(ext string) ScriptLang {
	switch strings.ToLower(ext) {
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	default:
		return LangJavaScript
	}
}

// IsScriptExt reports whether ext names a script module.
func IsScriptExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx":
		return true
	}
	return false
}

// ScriptLangFromAttr picks a grammar from a component's <script lang="..."> value.
func ScriptLangFromAttr(lang string) ScriptLang {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ts", "typescript":
		return LangTypeScript
	case "tsx":
		return LangTSX
	default:
		return LangJavaScript
	}
}

// Dialect is a style sheet language.
type Dialect int

const (
	DialectCSS Dialect = iota
	DialectSCSS
	DialectLess
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectSCSS:
		return "scss"
	case DialectLess:
		return "less"
	default:
		return "css"
	}
}

// IsSuperset reports whether the dialect supports partial-file imports.
func (d Dialect) IsSuperset() bool {
	return d == DialectSCSS || d == DialectLess
}

// Extension returns the canonical file extension of the dialect.
func (d Dialect) Extension() string {
	switch d {
	case DialectSCSS:
		return ".scss"
	case DialectLess:
		return ".less"
	default:
		return ".css"
	}
}

// DialectFromLang maps a component's <style lang="..."> value.
func DialectFromLang(lang string) Dialect {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "scss", "sass":
		return DialectSCSS
	case "less":
		return DialectLess
	default:
		return DialectCSS
	}
}

// DialectFromExt maps a style sheet file extension.
func DialectFromExt(ext string) Dialect {
	switch strings.ToLower(ext) {
	case ".scss", ".sass":
		return DialectSCSS
	case ".less":
		return DialectLess
	default:
		return DialectCSS
	}
}
