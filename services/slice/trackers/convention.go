// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trackers

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Convention classifies files by doublestar path patterns.
//
// Patterns are matched against the slash-separated absolute path with its
// leading separator removed, so "**/src/router/**" matches
// "/repo/src/router/index.js".
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type Convention struct {
	patterns []string
}

// NewConvention validates patterns and builds a Convention.
func NewConvention(patterns []string) (*Convention, error) {
	for _, p := range patterns {
		if err := ValidatePattern(p); err != nil {
			return nil, err
		}
	}
	return &Convention{patterns: append([]string(nil), patterns...)}, nil
}

// MustConvention is NewConvention for patterns known to be valid.
func MustConvention(patterns ...string) *Convention {
	c, err := NewConvention(patterns)
	if err != nil {
		panic(err)
	}
	return c
}

// ValidatePattern reports a malformed doublestar pattern.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty path pattern")
	}
	if _, err := doublestar.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}
	// doublestar stops at the first mismatching segment; check each one.
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("invalid path pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Matches reports whether path matches any pattern.
func (c *Convention) Matches(file string) bool {
	if c == nil {
		return false
	}
	name := strings.TrimPrefix(filepath.ToSlash(file), "/")
	for _, p := range c.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the patterns.
func (c *Convention) Patterns() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.patterns...)
}
