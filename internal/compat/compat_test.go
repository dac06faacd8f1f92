package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tileexport/tileexportgo/internal/cache"
)

func boolPtr(b bool) *bool { return &b }

func TestSupportsTiledAccess(t *testing.T) {
	tests := []struct {
		name    string
		sources []cache.SourceInfo
		want    bool
	}{
		{
			"single source without meta tiles",
			[]cache.SourceInfo{{Name: "a", SupportsMetaTiles: boolPtr(false)}},
			true,
		},
		{
			"single source with meta tiles",
			[]cache.SourceInfo{{Name: "a", SupportsMetaTiles: boolPtr(true)}},
			false,
		},
		{
			"single source with undeclared capability",
			[]cache.SourceInfo{{Name: "a"}},
			false,
		},
		{
			"no sources",
			nil,
			false,
		},
		{
			"two sources both tiled",
			[]cache.SourceInfo{
				{Name: "a", SupportsMetaTiles: boolPtr(false)},
				{Name: "b", SupportsMetaTiles: boolPtr(false)},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SupportsTiledAccess(tt.sources))
		})
	}
}
