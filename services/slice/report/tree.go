// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"path/filepath"
	"sort"
	"strings"
)

type treeNode struct {
	name     string
	children map[string]*treeNode
	file     bool
}

func (n *treeNode) child(name string, file bool) *treeNode {
	if n.children == nil {
		n.children = make(map[string]*treeNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &treeNode{name: name, file: file}
		n.children[name] = c
	}
	return c
}

// sorted returns directories first, then files, each by name.
func (n *treeNode) sorted() []*treeNode {
	out := make([]*treeNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].file != out[j].file {
			return !out[i].file
		}
		return out[i].name < out[j].name
	})
	return out
}

// RenderTree draws files as a directory tree relative to root.
//
// Description:
//
//	Uses ├── and └── connectors with │ continuation columns. Directories
//	end in "/" and are listed before files. Files outside root are skipped.
//
// Example:
//
//	RenderTree([]string{"/r/src/a.js", "/r/src/b/c.vue"}, "/r")
//	// └── src/
//	//     ├── b/
//	//     │   └── c.vue
//	//     └── a.js
func RenderTree(files []string, root string) string {
	top := &treeNode{}
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		cur := top
		for i, part := range parts {
			cur = cur.child(part, i == len(parts)-1)
		}
	}
	var b strings.Builder
	renderNode(&b, top, "")
	return b.String()
}

func renderNode(b *strings.Builder, n *treeNode, prefix string) {
	children := n.sorted()
	for i, c := range children {
		last := i == len(children)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(c.name)
		if !c.file {
			b.WriteString("/")
		}
		b.WriteString("\n")
		if !c.file {
			renderNode(b, c, prefix+next)
		}
	}
}
