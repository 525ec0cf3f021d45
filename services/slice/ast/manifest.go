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
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultGlobPattern is the filename pattern used when a directory glob
// omits its third argument.
const DefaultGlobPattern = `^\./.*$`

// ManifestKind classifies a module that bulk-loads a directory.
type ManifestKind int

const (
	// ManifestNone means no recognized directory-glob shape was found.
	ManifestNone ManifestKind = iota

	// ManifestPluginInstall is an object (or function) plugin whose install
	// routine registers every globbed file.
	ManifestPluginInstall

	// ManifestSymbolAggregation passes a glob through a helper that turns
	// the matched files into named exports.
	ManifestSymbolAggregation
)

// String returns the kind name.
func (k ManifestKind) String() string {
	switch k {
	case ManifestPluginInstall:
		return "plugin-install"
	case ManifestSymbolAggregation:
		return "symbol-aggregation"
	default:
		return "none"
	}
}

// GlobCall is a literal require.context(directory, recursive, /pattern/flags) call.
type GlobCall struct {
	Directory string
	Recursive bool
	Pattern   string
	Flags     string
	Line      int
}

// GlobManifest is the result of analyzing a possible glob manifest.
type GlobManifest struct {
	Kind  ManifestKind
	Calls []GlobCall
}

// AnalyzeGlobManifest detects directory-glob manifest shapes in a module.
//
// Description:
//
//	A plugin-install manifest exports (default or module.exports) an object
//	with an install method, or a plain function, whose body contains one or
//	more require.context calls. A symbol-aggregation manifest passes a
//	require.context call, directly or through a variable, as an argument to
//	some helper call such as importAll(ctx).
//
//	Glob calls whose directory argument is not a literal string are skipped.
//
// Outputs:
//
//	*GlobManifest - Kind is ManifestNone when no shape matched.
//	error         - Non-nil for invalid UTF-8 or a failed parse.
//
// Thread Safety: Safe for concurrent use (stateless function).
func AnalyzeGlobManifest(ctx context.Context, content []byte, lang ScriptLang) (*GlobManifest, error) {
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}
	tree, err := parseTree(ctx, content, lang.grammar())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if body := pluginInstallBody(root, content); body != nil {
		if calls := globCallsIn(body, content); len(calls) > 0 {
			return &GlobManifest{Kind: ManifestPluginInstall, Calls: calls}, nil
		}
	}
	if calls := aggregatedGlobCalls(root, content); len(calls) > 0 {
		return &GlobManifest{Kind: ManifestSymbolAggregation, Calls: calls}, nil
	}
	return &GlobManifest{Kind: ManifestNone}, nil
}

// isGlobCall reports whether call is require.context(...).
func isGlobCall(call *sitter.Node, content []byte) bool {
	if kindOf(call) != kindCallExpression {
		return false
	}
	fn := call.ChildByFieldName("function")
	if kindOf(fn) != kindMemberExpression {
		return false
	}
	obj := fn.ChildByFieldName("object")
	prop := fn.ChildByFieldName("property")
	return nodeText(obj, content) == "require" && nodeText(prop, content) == "context"
}

// readGlobCall reads the literal arguments of a require.context call.
func readGlobCall(call *sitter.Node, content []byte) (GlobCall, bool) {
	g := GlobCall{
		Directory: "./",
		Recursive: true,
		Pattern:   DefaultGlobPattern,
		Line:      int(call.StartPoint().Row) + 1,
	}
	args := callArguments(call)
	if len(args) > 0 {
		dir, ok := stringLiteral(args[0], content)
		if !ok {
			return g, false
		}
		g.Directory = dir
	}
	if len(args) > 1 {
		g.Recursive = kindOf(args[1]) != kindFalse
	}
	if len(args) > 2 {
		switch kindOf(args[2]) {
		case kindRegex:
			g.Pattern = nodeText(args[2].ChildByFieldName("pattern"), content)
			g.Flags = nodeText(args[2].ChildByFieldName("flags"), content)
		case kindString, kindTemplateString:
			if s, ok := stringLiteral(args[2], content); ok {
				g.Pattern = s
			}
		}
	}
	return g, true
}

// globCallsIn returns every literal glob call under n.
func globCallsIn(n *sitter.Node, content []byte) []GlobCall {
	var calls []GlobCall
	walk(n, func(c *sitter.Node) bool {
		if isGlobCall(c, content) {
			if g, ok := readGlobCall(c, content); ok {
				calls = append(calls, g)
			}
			return false
		}
		return true
	})
	return calls
}

// pluginInstallBody finds the install routine of an exported plugin.
func pluginInstallBody(root *sitter.Node, content []byte) *sitter.Node {
	exported := exportedValue(root, content)
	if exported == nil {
		return nil
	}
	switch kindOf(exported) {
	case kindFunctionExpression, kindArrowFunction, kindFunctionDeclaration:
		return exported.ChildByFieldName("body")
	case kindObject:
		for i := 0; i < int(exported.NamedChildCount()); i++ {
			member := exported.NamedChild(i)
			switch kindOf(member) {
			case kindMethodDefinition:
				if unquote(nodeText(member.ChildByFieldName("name"), content)) == "install" {
					return member.ChildByFieldName("body")
				}
			case kindPair:
				if unquote(nodeText(member.ChildByFieldName("key"), content)) != "install" {
					continue
				}
				value := member.ChildByFieldName("value")
				switch kindOf(value) {
				case kindFunctionExpression, kindArrowFunction:
					return value.ChildByFieldName("body")
				}
			}
		}
	}
	return nil
}

// exportedValue returns the module's default export (or module.exports
// assignment), following one level of identifier indirection.
func exportedValue(root *sitter.Node, content []byte) *sitter.Node {
	var value *sitter.Node
	for i := 0; i < int(root.NamedChildCount()) && value == nil; i++ {
		stmt := root.NamedChild(i)
		switch kindOf(stmt) {
		case kindExportStatement:
			isDefault := false
			for j := 0; j < int(stmt.ChildCount()); j++ {
				if stmt.Child(j).Type() == "default" {
					isDefault = true
				}
			}
			if !isDefault {
				continue
			}
			if v := stmt.ChildByFieldName("value"); v != nil {
				value = v
			} else if d := stmt.ChildByFieldName("declaration"); d != nil {
				value = d
			}
		default:
			if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
				continue
			}
			assign := stmt.NamedChild(0)
			if assign.Type() != "assignment_expression" {
				continue
			}
			if nodeText(assign.ChildByFieldName("left"), content) == "module.exports" {
				value = assign.ChildByFieldName("right")
			}
		}
	}
	for value != nil && value.Type() == "parenthesized_expression" && value.NamedChildCount() > 0 {
		value = value.NamedChild(0)
	}
	if kindOf(value) == kindIdentifier {
		return topLevelBinding(root, nodeText(value, content), content)
	}
	return value
}

// topLevelBinding returns the initializer of a top-level const/let/var or
// the node of a top-level function declaration named name.
func topLevelBinding(root *sitter.Node, name string, content []byte) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		switch kindOf(stmt) {
		case kindLexicalDeclaration, kindVariableDeclaration:
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				d := stmt.NamedChild(j)
				if kindOf(d) == kindVariableDeclarator && nodeText(d.ChildByFieldName("name"), content) == name {
					return d.ChildByFieldName("value")
				}
			}
		case kindFunctionDeclaration:
			if nodeText(stmt.ChildByFieldName("name"), content) == name {
				return stmt
			}
		}
	}
	return nil
}

// aggregatedGlobCalls returns glob calls that flow into a helper call as an
// argument, either directly or through a variable bound to the glob.
func aggregatedGlobCalls(root *sitter.Node, content []byte) []GlobCall {
	bound := make(map[string]*sitter.Node)
	walk(root, func(n *sitter.Node) bool {
		if kindOf(n) == kindVariableDeclarator {
			name := n.ChildByFieldName("name")
			value := n.ChildByFieldName("value")
			if kindOf(name) == kindIdentifier && isGlobCall(value, content) {
				bound[nodeText(name, content)] = value
			}
		}
		return true
	})

	var calls []GlobCall
	seen := make(map[uint32]bool)
	walk(root, func(n *sitter.Node) bool {
		if kindOf(n) != kindCallExpression || isGlobCall(n, content) {
			return true
		}
		for _, arg := range callArguments(n) {
			glob := arg
			if kindOf(arg) == kindIdentifier {
				glob = bound[nodeText(arg, content)]
			}
			if glob == nil || !isGlobCall(glob, content) || seen[glob.StartByte()] {
				continue
			}
			if g, ok := readGlobCall(glob, content); ok {
				seen[glob.StartByte()] = true
				calls = append(calls, g)
			}
		}
		return true
	})
	return calls
}

// FindPrototypeMounts returns property names registered with
// Object.defineProperty(X.prototype, '$name', ...).
//
// Template-literal names are evaluated when every substitution is a
// top-level string constant; other computed names are skipped.
func FindPrototypeMounts(ctx context.Context, content []byte, lang ScriptLang) ([]string, error) {
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}
	tree, err := parseTree(ctx, content, lang.grammar())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var names []string
	walk(root, func(n *sitter.Node) bool {
		if kindOf(n) != kindCallExpression {
			return true
		}
		if nodeText(n.ChildByFieldName("function"), content) != "Object.defineProperty" {
			return true
		}
		args := callArguments(n)
		if len(args) < 2 || kindOf(args[0]) != kindMemberExpression {
			return true
		}
		if nodeText(args[0].ChildByFieldName("property"), content) != "prototype" {
			return true
		}
		if name, ok := evalStringExpr(root, args[1], content); ok && name != "" {
			names = append(names, name)
		}
		return true
	})
	return names, nil
}

// evalStringExpr evaluates a string literal or a template literal whose
// substitutions are top-level string constants.
func evalStringExpr(root, n *sitter.Node, content []byte) (string, bool) {
	if s, ok := stringLiteral(n, content); ok {
		return s, true
	}
	if kindOf(n) != kindTemplateString {
		return "", false
	}
	var b strings.Builder
	cursor := n.StartByte() + 1
	for i := 0; i < int(n.NamedChildCount()); i++ {
		sub := n.NamedChild(i)
		if kindOf(sub) != kindTemplateSubstitution {
			continue
		}
		b.Write(content[cursor:sub.StartByte()])
		id := firstNamedOfKind(sub, kindIdentifier)
		if id == nil || sub.NamedChildCount() != 1 {
			return "", false
		}
		value, ok := stringLiteral(topLevelBinding(root, nodeText(id, content), content), content)
		if !ok {
			return "", false
		}
		b.WriteString(value)
		cursor = sub.EndByte()
	}
	b.Write(content[cursor : n.EndByte()-1])
	return b.String(), true
}
