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
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// ExportBinding records where an exported name is defined.
type ExportBinding struct {
	// Source is the module specifier the name comes from. Empty when the
	// name is declared in the analyzed module itself.
	Source string

	// Imported is the name inside Source. NamespaceSymbol for
	// `export * as ns from` and namespace imports re-exported by name.
	Imported string
}

// IsLocal reports whether the name is declared in the analyzed module.
func (b ExportBinding) IsLocal() bool {
	return b.Source == ""
}

// ExportTable is the export surface of one module.
type ExportTable struct {
	// Named maps each exported name to its binding.
	Named map[string]ExportBinding

	// StarSources lists `export * from` specifiers in declaration order.
	StarSources []string
}

// importBinding is a local name introduced by an import declaration.
type importBinding struct {
	source   string
	imported string
}

// AnalyzeExports builds the export table of a script module.
//
// Description:
//
//	Recognizes the shapes an aggregator module uses to forward symbols:
//
//	  export { A, B as C } from './y'       C -> ./y:B
//	  import A from './y'; export { A }     A -> ./y:default
//	  export * from './y'                   star source
//	  export * as ns from './y'             ns -> ./y:*
//	  export const X = ...                  X -> local
//	  export default ...                    default -> local (or the import it names)
//
// Inputs:
//
//	ctx     - Context for cancellation.
//	content - Module source.
//	lang    - Grammar to parse with.
//
// Outputs:
//
//	*ExportTable - Never nil on success.
//	error        - Non-nil for invalid UTF-8 or a failed parse.
//
// Thread Safety: Safe for concurrent use (stateless function).
func AnalyzeExports(ctx context.Context, content []byte, lang ScriptLang) (*ExportTable, error) {
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}
	tree, err := parseTree(ctx, content, lang.grammar())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	table := &ExportTable{Named: make(map[string]ExportBinding)}
	imports := collectImportBindings(root, content)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if kindOf(stmt) != kindExportStatement {
			continue
		}
		if source := stmt.ChildByFieldName("source"); source != nil {
			src, ok := stringLiteral(source, content)
			if !ok {
				continue
			}
			addSourcedExports(table, stmt, src, content)
			continue
		}
		addLocalExports(table, stmt, imports, content)
	}
	return table, nil
}

// collectImportBindings maps each locally bound import name to its origin.
func collectImportBindings(root *sitter.Node, content []byte) map[string]importBinding {
	bindings := make(map[string]importBinding)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if kindOf(stmt) != kindImportStatement {
			continue
		}
		src, ok := stringLiteral(stmt.ChildByFieldName("source"), content)
		if !ok {
			continue
		}
		clause := firstNamedOfKind(stmt, kindImportClause)
		if clause == nil {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			child := clause.NamedChild(j)
			switch kindOf(child) {
			case kindIdentifier:
				bindings[nodeText(child, content)] = importBinding{source: src, imported: DefaultSymbol}
			case kindNamespaceImport:
				if id := firstNamedOfKind(child, kindIdentifier); id != nil {
					bindings[nodeText(id, content)] = importBinding{source: src, imported: NamespaceSymbol}
				}
			case kindNamedImports:
				for k := 0; k < int(child.NamedChildCount()); k++ {
					spec := child.NamedChild(k)
					if kindOf(spec) != kindImportSpecifier {
						continue
					}
					bindings[specifierAlias(spec, content)] = importBinding{source: src, imported: specifierName(spec, content)}
				}
			}
		}
	}
	return bindings
}

func addSourcedExports(table *ExportTable, stmt *sitter.Node, src string, content []byte) {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		child := stmt.Child(i)
		switch {
		case kindOf(child) == kindExportClause:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if kindOf(spec) != kindExportSpecifier {
					continue
				}
				table.Named[specifierAlias(spec, content)] = ExportBinding{Source: src, Imported: specifierName(spec, content)}
			}
		case kindOf(child) == kindNamespaceExport:
			if n := child.NamedChildCount(); n > 0 {
				name := unquote(nodeText(child.NamedChild(int(n)-1), content))
				table.Named[name] = ExportBinding{Source: src, Imported: NamespaceSymbol}
			}
		case child.Type() == "*":
			table.StarSources = append(table.StarSources, src)
		}
	}
}

func addLocalExports(table *ExportTable, stmt *sitter.Node, imports map[string]importBinding, content []byte) {
	isDefault := false
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if stmt.Child(i).Type() == "default" {
			isDefault = true
			break
		}
	}

	if isDefault {
		binding := ExportBinding{}
		if value := stmt.ChildByFieldName("value"); kindOf(value) == kindIdentifier {
			if imp, ok := imports[nodeText(value, content)]; ok {
				binding = ExportBinding{Source: imp.source, Imported: imp.imported}
			}
		}
		table.Named[DefaultSymbol] = binding
		return
	}

	if clause := firstNamedOfKind(stmt, kindExportClause); clause != nil {
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			spec := clause.NamedChild(j)
			if kindOf(spec) != kindExportSpecifier {
				continue
			}
			local := specifierName(spec, content)
			binding := ExportBinding{}
			if imp, ok := imports[local]; ok {
				binding = ExportBinding{Source: imp.source, Imported: imp.imported}
			}
			table.Named[specifierAlias(spec, content)] = binding
		}
		return
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		for _, name := range declaredNames(decl, content) {
			table.Named[name] = ExportBinding{}
		}
	}
}

// declaredNames lists the bindings a declaration introduces.
func declaredNames(decl *sitter.Node, content []byte) []string {
	switch kindOf(decl) {
	case kindFunctionDeclaration, kindClassDeclaration, kindTypeDeclaration:
		if name := decl.ChildByFieldName("name"); name != nil {
			return []string{nodeText(name, content)}
		}
	case kindLexicalDeclaration, kindVariableDeclaration:
		var names []string
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if kindOf(d) != kindVariableDeclarator {
				continue
			}
			name := d.ChildByFieldName("name")
			if kindOf(name) == kindIdentifier {
				names = append(names, nodeText(name, content))
				continue
			}
			walk(name, func(n *sitter.Node) bool {
				switch n.Type() {
				case "identifier", "shorthand_property_identifier_pattern":
					names = append(names, nodeText(n, content))
				}
				return true
			})
		}
		return names
	}
	return nil
}
