package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverPagination(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantPages int
		wantCount int
		wantErr   bool
	}{
		{
			name:      "labels with ellipsis and arrows",
			html:      categoryHTML([]string{"‹", "1", "2", "3", "...", "17", "›"}, "403 товара"),
			wantPages: 17,
			wantCount: 403,
		},
		{
			name:      "unicode ellipsis and empty item",
			html:      categoryHTML([]string{"1", "", "…", "5"}, "98 товаров"),
			wantPages: 5,
			wantCount: 98,
		},
		{
			name:      "single page",
			html:      categoryHTML([]string{"1"}, "12"),
			wantPages: 1,
			wantCount: 12,
		},
		{
			name:      "grouped product count",
			html:      categoryHTML([]string{"1", "2"}, "1&nbsp;024 товара"),
			wantPages: 2,
			wantCount: 1024,
		},
		{
			name:    "no numeric labels",
			html:    categoryHTML([]string{"...", "›"}, "12"),
			wantErr: true,
		},
		{
			name:    "unparsable product count",
			html:    categoryHTML([]string{"1"}, "много товаров"),
			wantErr: true,
		},
		{
			name:    "missing pagination control",
			html:    `<html><body><span class="heading-products-count">12</span></body></html>`,
			wantErr: true,
		},
		{
			name:    "missing product count",
			html:    `<html><body><ul class="v-pagination"><li>1</li></ul></body></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscoverPagination(parseHTML(t, tt.html), DefaultSelectors())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStructureMismatch)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, Pagination{PageCount: tt.wantPages, ExpectedProducts: tt.wantCount}, got)
		})
	}
}
