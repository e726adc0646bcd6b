package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		in   string
		want SortOrder
	}{
		{in: "", want: SortNewest},
		{in: "newest", want: SortNewest},
		{in: "oldest", want: SortOldest},
		{in: "OLDEST", want: SortNewest},
		{in: "asc", want: SortNewest},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortOrder(tt.in))
		})
	}
}
