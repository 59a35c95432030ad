package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "/products", 1, 20},
		{"explicit", "/products?page=3&limit=5", 3, 5},
		{"junk falls back", "/products?page=abc&limit=xyz", 1, 20},
		{"non-positive falls back", "/products?page=0&limit=-2", 1, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, perPage := ParsePagination(httptest.NewRequest("GET", tc.url, nil), 20)
			require.Equal(t, tc.wantPage, page)
			require.Equal(t, tc.wantPerPage, perPage)
		})
	}
}
