//go:build property

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAliasTable_Match_BoundaryProperty checks that an alias claims a
// specifier only when the specifier is the alias or continues with "/".
func TestAliasTable_Match_BoundaryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("alias matches only at a path boundary", prop.ForAll(
		func(alias, suffix string) bool {
			prefix := "@" + alias
			table := NewAliasTable("/repo", map[string][]string{prefix: {"src"}})

			if _, ok := table.Match(prefix); !ok {
				return false
			}
			if _, ok := table.Match(prefix + "/" + suffix); !ok {
				return false
			}
			glued := prefix + suffix
			_, ok := table.Match(glued)
			if suffix == "" || strings.HasPrefix(suffix, "/") {
				return ok
			}
			return !ok
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("longest matching alias wins", prop.ForAll(
		func(a, b string) bool {
			short := "@" + a
			long := short + "/" + b
			if b == "" {
				return true
			}
			table := NewAliasTable("/repo", map[string][]string{short: {"src"}, long: {"src/deep"}})
			got, ok := table.Match(long + "/x")
			return ok && got.Name == long
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
