package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceExt(t *testing.T) {
	tests := []struct {
		path string
		has  bool
		trim string
	}{
		{"testdata/vectors.R", true, "testdata/vectors"},
		{"script.r", true, "script"},
		{"vectors.want", false, "vectors.want"},
		{".R", false, ".R"},
		{"README", false, "README"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.has, HasSourceExt(tt.path))
			assert.Equal(t, tt.trim, TrimSourceExt(tt.path))
		})
	}
}
