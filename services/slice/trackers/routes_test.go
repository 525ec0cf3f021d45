// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package trackers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvention_Matches(t *testing.T) {
	c := MustConvention("**/index.js", "**/install.js")

	assert.True(t, c.Matches("/repo/src/components/index.js"))
	assert.True(t, c.Matches("/repo/src/plugins/install.js"))
	assert.False(t, c.Matches("/repo/src/components/index.ts"))
	assert.False(t, c.Matches("/repo/src/components/my-index.js"))

	var nilConvention *Convention
	assert.False(t, nilConvention.Matches("/repo/index.js"))
}

func TestNewConvention_RejectsBadPatterns(t *testing.T) {
	_, err := NewConvention([]string{"**/ok.js", "src/[bad"})
	require.Error(t, err)

	_, err = NewConvention([]string{" "})
	require.Error(t, err)

	c, err := NewConvention(nil)
	require.NoError(t, err)
	assert.False(t, c.Matches("/anything.js"))
}

func TestRouteTracker_IsRouteFile(t *testing.T) {
	r := NewRouteTracker(nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/repo/src/router/index.js", true},
		{"/repo/src/router/modules/admin.js", true},
		{"/repo/src/modules/billing/src/routes/index.js", true},
		{"/repo/src/modules/billing/routes/list.js", true},
		{"/repo/src/routerish/index.js", false},
		{"/repo/src/views/router.js", false},
		{"/repo/src/modules/a/b/routes/x.js", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.IsRouteFile(tt.path), tt.path)
	}
}

func TestRouteTracker_RecordReference(t *testing.T) {
	r := NewRouteTracker(nil)
	r.RecordReference("/repo/src/main.js", "/repo/src/router/index.js")
	r.RecordReference("/repo/src/main.js", "/repo/src/router/index.js")
	r.RecordReference("/repo/src/main.js", "/repo/src/router/admin.js")
	r.RecordReference("/repo/src/App.vue", "/repo/src/router/index.js")

	assert.Equal(t, []string{"/repo/src/router/index.js", "/repo/src/router/admin.js"}, r.References("/repo/src/main.js"))
	assert.Empty(t, r.References("/repo/src/other.js"))
	assert.Equal(t, []string{"/repo/src/main.js", "/repo/src/App.vue"}, r.SourceFiles())
	assert.Equal(t, []string{"/repo/src/router/admin.js", "/repo/src/router/index.js"}, r.RouteFiles())
	assert.Equal(t, RouteStats{TotalSourceFiles: 2, TotalRouteFiles: 2, TotalReferences: 3}, r.Stats())

	m := r.ReferenceMap()
	m["/repo/src/main.js"][0] = "mutated"
	assert.Equal(t, "/repo/src/router/index.js", r.References("/repo/src/main.js")[0])
}
