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
	"path/filepath"
	"sort"
	"strings"
)

// Alias is one entry of an AliasTable.
type Alias struct {
	// Name is the configured key, including a trailing "$" for exact aliases.
	Name string

	// Prefix is the text a specifier must start with.
	Prefix string

	// Exact aliases match only a specifier equal to Prefix.
	Exact bool

	// Targets are absolute directories (or files, for exact aliases), tried in order.
	Targets []string
}

// matches reports whether spec is covered by the alias.
//
// A non-exact alias matches the prefix itself or the prefix followed by a
// path separator, so "@app" never claims "@appX/foo".
func (a Alias) matches(spec string) bool {
	if spec == a.Prefix {
		return true
	}
	if a.Exact {
		return false
	}
	if strings.HasSuffix(a.Prefix, "/") {
		return strings.HasPrefix(spec, a.Prefix)
	}
	return strings.HasPrefix(spec, a.Prefix+"/")
}

// AliasTable maps specifier prefixes to target directories.
//
// Description:
//
//	Entries are kept ordered by descending prefix length (ties broken by
//	name) so Match returns the longest boundary-safe prefix. The table is
//	immutable after construction.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type AliasTable struct {
	entries []Alias
}

// NewAliasTable builds an alias table.
//
// Inputs:
//
//	root    - Project root. Relative targets are joined to it.
//	aliases - Alias key to target list. A key ending in "$" is exact-match only.
//
// Outputs:
//
//	*AliasTable - Never nil. Empty keys and keys without targets are ignored.
func NewAliasTable(root string, aliases map[string][]string) *AliasTable {
	t := &AliasTable{}
	for name, targets := range aliases {
		prefix := strings.TrimSuffix(name, "$")
		if prefix == "" || len(targets) == 0 {
			continue
		}
		abs := make([]string, 0, len(targets))
		for _, target := range targets {
			if target == "" {
				continue
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(root, target)
			}
			abs = append(abs, filepath.Clean(target))
		}
		if len(abs) == 0 {
			continue
		}
		t.entries = append(t.entries, Alias{
			Name:    name,
			Prefix:  prefix,
			Exact:   strings.HasSuffix(name, "$"),
			Targets: abs,
		})
	}
	sort.Slice(t.entries, func(i, j int) bool {
		if len(t.entries[i].Prefix) != len(t.entries[j].Prefix) {
			return len(t.entries[i].Prefix) > len(t.entries[j].Prefix)
		}
		return t.entries[i].Name < t.entries[j].Name
	})
	return t
}

// Match returns the longest alias covering spec.
func (t *AliasTable) Match(spec string) (Alias, bool) {
	if t == nil {
		return Alias{}, false
	}
	for _, a := range t.entries {
		if a.matches(spec) {
			return a, true
		}
	}
	return Alias{}, false
}

// Names returns every alias name in match order.
func (t *AliasTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.entries))
	for i, a := range t.entries {
		names[i] = a.Name
	}
	return names
}

// Len returns the number of aliases.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
