package models

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr string
	}{
		{"minimal", SearchRequest{Query: "pizza"}, ""},
		{"empty query", SearchRequest{Query: ""}, "query is required"},
		{"blank query", SearchRequest{Query: "   "}, "query is required"},
		{"valid sort", SearchRequest{Query: "spa", SortOption: "price:desc"}, ""},
		{"sort case-insensitive", SearchRequest{Query: "spa", SortOption: "RATING"}, ""},
		{"invalid sort", SearchRequest{Query: "spa", SortOption: "invalid_value"}, "allowed values"},
		{"negative min", SearchRequest{Query: "spa", PriceMin: price(-1)}, "price_min"},
		{"negative max", SearchRequest{Query: "spa", PriceMax: price(-0.5)}, "price_max"},
		{"max equals min", SearchRequest{Query: "spa", PriceMin: price(20), PriceMax: price(20)}, ""},
		{"max one below min", SearchRequest{Query: "spa", PriceMin: price(20), PriceMax: price(19)}, "price_max must be greater than or equal to price_min"},
		{"only max", SearchRequest{Query: "spa", PriceMax: price(0)}, ""},
		{"NaN min", SearchRequest{Query: "spa", PriceMin: price(math.NaN())}, "price_min must be a finite number"},
		{"infinite max", SearchRequest{Query: "spa", PriceMax: price(math.Inf(1))}, "price_max must be a finite number"},
		{"negative infinite min", SearchRequest{Query: "spa", PriceMin: price(math.Inf(-1))}, "price_min must be a finite number"},
		{"NaN min with max", SearchRequest{Query: "spa", PriceMin: price(math.NaN()), PriceMax: price(1)}, "price_min must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Normalize()
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
		})
	}
}

func TestSearchRequest_InvalidSortListsAllOptions(t *testing.T) {
	req := SearchRequest{Query: "spa", SortOption: "invalid_value"}
	req.Normalize()

	err := req.Validate()
	require.Error(t, err)
	for _, opt := range SortOptions {
		assert.True(t, strings.Contains(err.Error(), opt), "missing %q in %q", opt, err.Error())
	}
	assert.Len(t, SortOptions, 5)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, CodeOf(NewScrapeError(ErrCodeTimeout, "slow", nil)))
	assert.Equal(t, ErrCodeInternal, CodeOf(assert.AnError))
}
