// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scaffold

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/spf13/afero"
)

// ErrNoAliasBlock is returned when a template has no alias object to replace.
var ErrNoAliasBlock = errors.New("template has no alias block")

// aliasBlock matches the first `alias: { ... }` object of a build config.
var aliasBlock = regexp2.MustCompile(`alias:\s*\{[\s\S]*?\}`, regexp2.None)

// defaultAliasTemplate is used when the project has no build config to start from.
const defaultAliasTemplate = `const { resolve } = require("path")

module.exports = {
  configureWebpack: {
    resolve: {
      alias: {},
    },
  },
}
`

// AliasMatch pairs an alias a run used with the configured alias it resolved through.
type AliasMatch struct {
	Used    string `json:"used"`
	Defined string `json:"defined"`
	Target  string `json:"target"`
	Count   int    `json:"count"`
	Depth   int    `json:"depth"`
}

// MatchAliasUsage matches used aliases against the configured definitions.
//
// Description:
//
//	A used alias matches a definition when it is equal to it or continues
//	it with "/". Matches are ordered most specific first: deeper
//	definitions, then longer ones, then higher usage counts. Only the first
//	target of a definition is reported.
//
// Inputs:
//
//	usage       - Alias usage counts from a run's statistics.
//	definitions - Configured aliases.
//
// Outputs:
//
//	[]AliasMatch - Every match, in specificity order.
func MatchAliasUsage(usage map[string]int, definitions map[string][]string) []AliasMatch {
	var out []AliasMatch
	for used, count := range usage {
		for defined, targets := range definitions {
			if len(targets) == 0 {
				continue
			}
			if used != defined && !strings.HasPrefix(used, defined+"/") {
				continue
			}
			out = append(out, AliasMatch{
				Used:    used,
				Defined: defined,
				Target:  targets[0],
				Count:   count,
				Depth:   strings.Count(defined, "/") + 1,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Depth != b.Depth:
			return a.Depth > b.Depth
		case len(a.Defined) != len(b.Defined):
			return len(a.Defined) > len(b.Defined)
		case a.Count != b.Count:
			return a.Count > b.Count
		case a.Defined != b.Defined:
			return a.Defined < b.Defined
		}
		return a.Used < b.Used
	})
	return out
}

// RenderAliasConfig replaces the alias block of template with the matched aliases.
//
// Each definition appears once, in match order, as `"key": resolve("target")`.
// Targets under projectRoot are written relative to it. An empty template
// uses a minimal webpack config.
func RenderAliasConfig(template string, matches []AliasMatch, projectRoot string) (string, error) {
	if template == "" {
		template = defaultAliasTemplate
	}

	var b strings.Builder
	b.WriteString("alias: {\n")
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m.Defined] {
			continue
		}
		seen[m.Defined] = true
		fmt.Fprintf(&b, "        %s: resolve(%s),\n",
			strconv.Quote(m.Defined), strconv.Quote(aliasTarget(projectRoot, m.Target)))
	}
	b.WriteString("      }")
	block := b.String()

	found := false
	out, err := aliasBlock.ReplaceFunc(template, func(regexp2.Match) string {
		found = true
		return block
	}, -1, 1)
	if err != nil {
		return "", fmt.Errorf("rendering alias config: %w", err)
	}
	if !found {
		return "", ErrNoAliasBlock
	}
	return out, nil
}

func aliasTarget(projectRoot, target string) string {
	if filepath.IsAbs(target) && projectRoot != "" {
		if rel, err := filepath.Rel(projectRoot, target); err == nil && !strings.HasPrefix(rel, "..") {
			target = rel
		}
	}
	return filepath.ToSlash(target)
}

// WriteAliasConfig renders the used aliases into dst.
//
// Description:
//
//	The template is read from templatePath when that file exists; otherwise
//	the built-in config is used. Nothing is written when no alias was used.
//
// Inputs:
//
//	fs           - File system for the template and dst.
//	templatePath - Build config to start from, or "".
//	dst          - File to write.
//	usage        - Alias usage counts from the run.
//	definitions  - Configured aliases.
//	projectRoot  - Root alias targets are made relative to.
//
// Outputs:
//
//	int   - Number of aliases written.
//	error - Non-nil when the template cannot be read or rendered, or dst
//	        cannot be written.
func WriteAliasConfig(fs afero.Fs, templatePath, dst string, usage map[string]int, definitions map[string][]string, projectRoot string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matches := MatchAliasUsage(usage, definitions)
	if len(matches) == 0 {
		logger.Warn("no used alias matches a configured alias", slog.String("dst", dst))
		return 0, nil
	}

	var template string
	if templatePath != "" {
		data, err := afero.ReadFile(fs, templatePath)
		switch {
		case err == nil:
			template = string(data)
		case errors.Is(err, afero.ErrFileNotFound):
		default:
			return 0, fmt.Errorf("reading alias template: %w", err)
		}
	}

	content, err := RenderAliasConfig(template, matches, projectRoot)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", templatePath, err)
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	if err := afero.WriteFile(fs, dst, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("writing alias config: %w", err)
	}

	written := make(map[string]bool, len(matches))
	for _, m := range matches {
		written[m.Defined] = true
	}
	logger.Info("alias config written",
		slog.String("dst", dst),
		slog.Int("aliases", len(written)),
	)
	return len(written), nil
}
