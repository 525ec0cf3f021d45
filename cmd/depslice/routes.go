// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

func newRoutesCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "routes <entry>...",
		Short: "Print the route files each collected file references",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			result, err := c.collect(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			routes := relativeRoutes(result.Routes, cfg.ProjectRoot)
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			}
			return writeRoutes(c.out, routes)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reference map as JSON")
	return cmd
}

// relativeRoutes rewrites a route reference map relative to root.
func relativeRoutes(routes map[string][]string, root string) map[string][]string {
	out := make(map[string][]string, len(routes))
	for src, refs := range routes {
		rel := make([]string, 0, len(refs))
		for _, ref := range refs {
			rel = append(rel, relPath(root, ref))
		}
		out[relPath(root, src)] = rel
	}
	return out
}

// writeRoutes prints each source file followed by its route files.
func writeRoutes(w io.Writer, routes map[string][]string) error {
	if len(routes) == 0 {
		_, err := fmt.Fprintln(w, "No route references.")
		return err
	}
	sources := make([]string, 0, len(routes))
	for src := range routes {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		if _, err := fmt.Fprintln(w, src); err != nil {
			return err
		}
		for _, ref := range routes[src] {
			if _, err := fmt.Fprintf(w, "  -> %s\n", ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
