//go:build property

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
)

const maxPropertyFiles = 12

// importGraph writes n modules where each edge e imports module e%12 from
// module (e/12), both taken modulo n. It returns the expected closure of m0.
func importGraph(n int, edges []int) (afero.Fs, []string) {
	fs := afero.NewMemMapFs()
	imports := make([][]int, n)
	for _, e := range edges {
		from, to := (e/maxPropertyFiles)%n, (e%maxPropertyFiles)%n
		imports[from] = append(imports[from], to)
	}
	for i := 0; i < n; i++ {
		var b strings.Builder
		for k, to := range imports[i] {
			fmt.Fprintf(&b, "import d%d from './m%d'\n", k, to)
		}
		_ = afero.WriteFile(fs, fmt.Sprintf("/repo/src/m%d.js", i), []byte(b.String()), 0o644)
	}

	seen := map[int]bool{0: true}
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, to := range imports[cur] {
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	want := make([]string, 0, len(seen))
	for i := range seen {
		want = append(want, fmt.Sprintf("/repo/src/m%d.js", i))
	}
	sort.Strings(want)
	return fs, want
}

// TestCollector_Collect_ClosureProperty checks that the collected set is
// exactly the import closure of the entry, and that repeated runs agree.
func TestCollector_Collect_ClosureProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("files are the import closure, stable across runs", prop.ForAll(
		func(n int, edges []int) bool {
			fs, want := importGraph(n, edges)
			c, err := NewCollector(fs, WithProjectRoot("/repo"), WithLogger(quietLogger()))
			if err != nil {
				return false
			}
			first, err := c.Collect(context.Background(), []string{"/repo/src/m0.js"})
			if err != nil {
				return false
			}
			second, err := c.Collect(context.Background(), []string{"/repo/src/m0.js"})
			if err != nil {
				return false
			}
			return reflect.DeepEqual(first.Files, want) &&
				reflect.DeepEqual(first.Files, second.Files) &&
				reflect.DeepEqual(first.Stats, second.Stats) &&
				first.Stats.FailedResolutions == 0
		},
		gen.IntRange(1, maxPropertyFiles),
		gen.SliceOf(gen.IntRange(0, maxPropertyFiles*maxPropertyFiles-1)),
	))

	properties.TestingRun(t)
}
