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
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel every resolution failure unwraps to.
var ErrNotFound = errors.New("module not found")

// Classification tells whether a resolved path belongs to the project.
type Classification int

const (
	// ClassLocal is a project file.
	ClassLocal Classification = iota

	// ClassExternal lies under the external package boundary.
	ClassExternal
)

// String returns the classification name.
func (c Classification) String() string {
	if c == ClassExternal {
		return "external"
	}
	return "local"
}

// Error describes a specifier that could not be mapped to a file.
type Error struct {
	Specifier  string
	ContextDir string
	Reason     string
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("cannot resolve %q from %s: %s", e.Specifier, e.ContextDir, e.Reason)
}

// Unwrap returns ErrNotFound.
func (e *Error) Unwrap() error {
	return ErrNotFound
}

// Result is the outcome of one resolution.
//
// Exactly one of Path and Err is set.
type Result struct {
	// Path is the absolute resolved file.
	Path string

	// Alias is the name of the alias that matched, empty when none did.
	Alias string

	// Class is meaningful only when Err is nil.
	Class Classification

	// Err is non-nil when no candidate file exists.
	Err *Error
}

// OK reports whether the resolution succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// External reports whether the resolved path is an external package file.
func (r Result) External() bool {
	return r.OK() && r.Class == ClassExternal
}
