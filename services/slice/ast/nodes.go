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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// nodeKind is the closed set of tree-sitter node shapes the extractors act on.
//
// Every other grammar node maps to kindOther and is only descended into.
type nodeKind int

const (
	kindOther nodeKind = iota
	kindProgram
	kindError

	// Module syntax
	kindImportStatement
	kindImportClause
	kindNamespaceImport
	kindNamedImports
	kindImportSpecifier
	kindImportRequireClause
	kindExportStatement
	kindExportClause
	kindExportSpecifier
	kindNamespaceExport

	// Declarations
	kindLexicalDeclaration
	kindVariableDeclaration
	kindVariableDeclarator
	kindFunctionDeclaration
	kindClassDeclaration
	kindTypeDeclaration

	// Expressions
	kindCallExpression
	kindMemberExpression
	kindArrowFunction
	kindFunctionExpression
	kindObject
	kindPair
	kindMethodDefinition
	kindIdentifier
	kindPropertyIdentifier
	kindString
	kindTemplateString
	kindTemplateSubstitution
	kindRegex
	kindTrue
	kindFalse
	kindDynamicImport

	// Component markup (html grammar)
	kindElement
	kindScriptElement
	kindStyleElement
	kindStartTag
	kindSelfClosingTag
	kindTagName
	kindAttribute
	kindAttributeName
	kindAttributeValue
	kindQuotedAttributeValue
	kindRawText

	// Style sheets (css grammar)
	kindCSSImportStatement
	kindCSSAtRule
	kindCSSDeclaration
	kindCSSBlock
	kindCSSComment
)

var nodeKinds = map[string]nodeKind{
	"program":                        kindProgram,
	"ERROR":                          kindError,
	"import_statement":               kindImportStatement,
	"import_clause":                  kindImportClause,
	"namespace_import":               kindNamespaceImport,
	"named_imports":                  kindNamedImports,
	"import_specifier":               kindImportSpecifier,
	"import_require_clause":          kindImportRequireClause,
	"export_statement":               kindExportStatement,
	"export_clause":                  kindExportClause,
	"export_specifier":               kindExportSpecifier,
	"namespace_export":               kindNamespaceExport,
	"lexical_declaration":            kindLexicalDeclaration,
	"variable_declaration":           kindVariableDeclaration,
	"variable_declarator":            kindVariableDeclarator,
	"function_declaration":           kindFunctionDeclaration,
	"generator_function_declaration": kindFunctionDeclaration,
	"function_signature":             kindFunctionDeclaration,
	"class_declaration":              kindClassDeclaration,
	"abstract_class_declaration":     kindClassDeclaration,
	"interface_declaration":          kindTypeDeclaration,
	"type_alias_declaration":         kindTypeDeclaration,
	"enum_declaration":               kindTypeDeclaration,
	"call_expression":                kindCallExpression,
	"member_expression":              kindMemberExpression,
	"arrow_function":                 kindArrowFunction,
	"function_expression":            kindFunctionExpression,
	"function":                       kindFunctionExpression,
	"object":                         kindObject,
	"pair":                           kindPair,
	"method_definition":              kindMethodDefinition,
	"identifier":                     kindIdentifier,
	"property_identifier":            kindPropertyIdentifier,
	"string":                         kindString,
	"template_string":                kindTemplateString,
	"template_substitution":          kindTemplateSubstitution,
	"regex":                          kindRegex,
	"true":                           kindTrue,
	"false":                          kindFalse,
	"import":                         kindDynamicImport,
	"element":                        kindElement,
	"script_element":                 kindScriptElement,
	"style_element":                  kindStyleElement,
	"start_tag":                      kindStartTag,
	"self_closing_tag":               kindSelfClosingTag,
	"tag_name":                       kindTagName,
	"attribute":                      kindAttribute,
	"attribute_name":                 kindAttributeName,
	"attribute_value":                kindAttributeValue,
	"quoted_attribute_value":         kindQuotedAttributeValue,
	"raw_text":                       kindRawText,
	"at_rule":                        kindCSSAtRule,
	"declaration":                    kindCSSDeclaration,
	"block":                          kindCSSBlock,
	"comment":                        kindCSSComment,
}

// cssNodeKinds overrides names the css grammar shares with javascript.
var cssNodeKinds = map[string]nodeKind{
	"import_statement": kindCSSImportStatement,
}

// kindOf classifies a script or markup node.
func kindOf(n *sitter.Node) nodeKind {
	if n == nil {
		return kindOther
	}
	if k, ok := nodeKinds[n.Type()]; ok {
		return k
	}
	return kindOther
}

// cssKindOf classifies a style sheet node.
func cssKindOf(n *sitter.Node) nodeKind {
	if n == nil {
		return kindOther
	}
	if k, ok := cssNodeKinds[n.Type()]; ok {
		return k
	}
	return kindOf(n)
}

// nodeText returns the source text spanned by n.
func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

// stringLiteral returns the unquoted value of a string or substitution-free
// template literal. ok is false for anything that is not a static literal.
func stringLiteral(n *sitter.Node, content []byte) (string, bool) {
	switch kindOf(n) {
	case kindString:
		return unquote(nodeText(n, content)), true
	case kindTemplateString:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if kindOf(n.NamedChild(i)) == kindTemplateSubstitution {
				return "", false
			}
		}
		return unquote(nodeText(n, content)), true
	default:
		return "", false
	}
}

// unquote strips one pair of matching quote characters.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// walk visits n and its descendants depth-first. Returning false from visit
// skips the node's children.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}
