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

// Span is a byte range of source text.
type Span struct {
	Start uint32
	End   uint32

	// Value is the unquoted literal within the span.
	Value string
}

// FindRouteComponentImports locates lazily loaded route components.
//
// Description:
//
//	Finds `component: () => import('./views/Page.vue')` entries (arrow or
//	function values, webpack magic comments allowed) and returns the span of
//	each string literal argument, quotes included, in source order.
//
// Thread Safety: Safe for concurrent use (stateless function).
func FindRouteComponentImports(ctx context.Context, content []byte, lang ScriptLang) ([]Span, error) {
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}
	tree, err := parseTree(ctx, content, lang.grammar())
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	var spans []Span
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if kindOf(n) != kindPair {
			return true
		}
		if unquote(nodeText(n.ChildByFieldName("key"), content)) != "component" {
			return true
		}
		value := n.ChildByFieldName("value")
		switch kindOf(value) {
		case kindArrowFunction, kindFunctionExpression:
		default:
			return true
		}
		walk(value, func(c *sitter.Node) bool {
			if kindOf(c) != kindCallExpression || kindOf(c.ChildByFieldName("function")) != kindDynamicImport {
				return true
			}
			if arg := firstArgument(c); arg != nil {
				if s, ok := stringLiteral(arg, content); ok {
					spans = append(spans, Span{Start: arg.StartByte(), End: arg.EndByte(), Value: s})
				}
			}
			return false
		})
		return false
	})
	return spans, nil
}
