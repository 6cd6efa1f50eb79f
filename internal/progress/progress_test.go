// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHiddenBarWritesNothing(t *testing.T) {
	t.Setenv("CI", "")
	var buf bytes.Buffer
	bar := newBar(&buf, 10, "rounds", false, false)
	require.NoError(t, bar.Add(5))
	require.NoError(t, bar.Finish())
	assert.Empty(t, buf.String())
}

func TestVisibleBarReportsDescription(t *testing.T) {
	t.Setenv("CI", "")
	var buf bytes.Buffer
	bar := newBar(&buf, 4, "roundtrip", true, false)
	require.NoError(t, bar.Add(4))
	assert.Contains(t, buf.String(), "roundtrip")
}

func TestCIHidesBar(t *testing.T) {
	t.Setenv("CI", "true")
	tests := []struct {
		name      string
		showBytes bool
	}{
		{name: "count"},
		{name: "bytes", showBytes: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			bar := newBar(&buf, 3, "generate", true, tc.showBytes)
			require.NoError(t, bar.Add(3))
			require.NoError(t, bar.Finish())
			assert.Empty(t, buf.String())
		})
	}
}
