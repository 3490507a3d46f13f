package models

import (
	"fmt"
	"math"
	"strings"
)

// Sort options accepted by the deal site, in display order.
var SortOptions = []string{"relevance", "price:asc", "price:desc", "distance", "rating"}

// SearchRequest holds the query parameters of GET /search.
type SearchRequest struct {
	// Query is the free-text search term. Required.
	Query string `form:"query"`

	// SortOption orders results; one of SortOptions. Optional.
	SortOption string `form:"sort_option"`

	// PriceMin is the lower price bound. Optional, >= 0.
	PriceMin *float64 `form:"price_min"`

	// PriceMax is the upper price bound. Optional, >= 0 and >= PriceMin.
	PriceMax *float64 `form:"price_max"`
}

// Normalize trims the query and lower-cases the sort option.
func (r *SearchRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.SortOption = strings.ToLower(strings.TrimSpace(r.SortOption))
}

// Validate reports the first problem with the request as an
// ErrCodeInvalidInput ScrapeError. Call Normalize first.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return invalid("query is required and must not be empty")
	}
	if r.SortOption != "" && !isSortOption(r.SortOption) {
		return invalid(fmt.Sprintf("sort_option %q is invalid; allowed values: %s",
			r.SortOption, strings.Join(SortOptions, ", ")))
	}
	if r.PriceMin != nil && !isFinite(*r.PriceMin) {
		return invalid("price_min must be a finite number")
	}
	if r.PriceMax != nil && !isFinite(*r.PriceMax) {
		return invalid("price_max must be a finite number")
	}
	if r.PriceMin != nil && *r.PriceMin < 0 {
		return invalid("price_min must be greater than or equal to 0")
	}
	if r.PriceMax != nil && *r.PriceMax < 0 {
		return invalid("price_max must be greater than or equal to 0")
	}
	if r.PriceMin != nil && r.PriceMax != nil && *r.PriceMax < *r.PriceMin {
		return invalid("price_max must be greater than or equal to price_min")
	}
	return nil
}

func isSortOption(s string) bool {
	for _, opt := range SortOptions {
		if s == opt {
			return true
		}
	}
	return false
}

// isFinite rejects NaN and ±Inf, which strconv accepts and every range
// comparison lets through.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func invalid(msg string) *ScrapeError {
	return NewScrapeError(ErrCodeInvalidInput, msg, nil)
}
