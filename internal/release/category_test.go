// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code *int
		want Category
	}{
		{name: "absent", code: nil, want: CategoryUnknown},
		{name: "movie_lower_bound", code: intPtr(2000), want: CategoryMovie},
		{name: "movie_hd", code: intPtr(2040), want: CategoryMovie},
		{name: "movie_upper_bound", code: intPtr(2999), want: CategoryMovie},
		{name: "music_lower_bound", code: intPtr(3000), want: CategoryMusic},
		{name: "software", code: intPtr(4050), want: CategorySoftware},
		{name: "tv_lower_bound", code: intPtr(5000), want: CategoryTV},
		{name: "tv_below_anime", code: intPtr(5069), want: CategoryTV},
		{name: "anime", code: intPtr(5070), want: CategoryAnime},
		{name: "tv_above_anime", code: intPtr(5071), want: CategoryTV},
		{name: "tv_upper_bound", code: intPtr(5999), want: CategoryTV},
		{name: "xxx_is_other", code: intPtr(6000), want: CategoryOther},
		{name: "books", code: intPtr(7020), want: CategoryBooks},
		{name: "books_upper_bound", code: intPtr(7999), want: CategoryBooks},
		{name: "other_range", code: intPtr(8010), want: CategoryOther},
		{name: "below_all_ranges", code: intPtr(1000), want: CategoryOther},
		{name: "custom_indexer_code", code: intPtr(100001), want: CategoryOther},
		{name: "zero", code: intPtr(0), want: CategoryOther},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code))
		})
	}
}

func TestClassifyMovieRange(t *testing.T) {
	for code := 2000; code < 3000; code++ {
		assert.Equal(t, CategoryMovie, ClassifyCode(code), "code %d", code)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input  string
		want   Category
		wantOK bool
	}{
		{input: "", want: CategoryAll, wantOK: true},
		{input: "ALL", want: CategoryAll, wantOK: true},
		{input: "movies", want: CategoryMovie, wantOK: true},
		{input: " tv ", want: CategoryTV, wantOK: true},
		{input: "series", want: CategoryTV, wantOK: true},
		{input: "anime", want: CategoryAnime, wantOK: true},
		{input: "unknown", wantOK: false},
		{input: "games", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCategory(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPrimaryCode(t *testing.T) {
	code, ok := CategoryAnime.PrimaryCode()
	assert.True(t, ok)
	assert.Equal(t, 5070, code)

	code, ok = CategoryMovie.PrimaryCode()
	assert.True(t, ok)
	assert.Equal(t, 2000, code)

	_, ok = CategoryAll.PrimaryCode()
	assert.False(t, ok)

	_, ok = CategoryOther.PrimaryCode()
	assert.False(t, ok)

	for _, c := range Categories() {
		if code, ok := c.PrimaryCode(); ok {
			assert.Equal(t, c, ClassifyCode(code), "primary code of %s must classify back", c)
		}
	}
}

func TestSearchCodes(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		sub      Subcategory
		want     []int
	}{
		{name: "all_has_no_codes", category: CategoryAll, sub: SubcategoryAll, want: nil},
		{name: "primary_only", category: CategoryMovie, sub: SubcategoryAll, want: []int{2000}},
		{name: "empty_sub_is_primary", category: CategoryAnime, sub: "", want: []int{5070}},
		{name: "movie_uhd", category: CategoryMovie, sub: SubcategoryUHD, want: []int{2045}},
		{name: "tv_hd", category: CategoryTV, sub: SubcategoryHD, want: []int{5040}},
		{name: "tv_bluray_undefined", category: CategoryTV, sub: SubcategoryBluRay, want: []int{5000}},
		{name: "music_ignores_sub", category: CategoryMusic, sub: SubcategorySD, want: []int{3000}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchCodes(tt.category, tt.sub))
		})
	}
}

func TestParseSubcategory(t *testing.T) {
	sub, ok := ParseSubcategory("UHD")
	assert.True(t, ok)
	assert.Equal(t, SubcategoryUHD, sub)

	sub, ok = ParseSubcategory("")
	assert.True(t, ok)
	assert.Equal(t, SubcategoryAll, sub)

	_, ok = ParseSubcategory("8k")
	assert.False(t, ok)
}

func TestSubcategoriesOf(t *testing.T) {
	assert.Equal(t, []Subcategory{SubcategoryAll, SubcategorySD, SubcategoryHD, SubcategoryUHD, SubcategoryBluRay}, SubcategoriesOf(CategoryMovie))
	assert.Equal(t, []Subcategory{SubcategoryAll, SubcategorySD, SubcategoryHD, SubcategoryUHD}, SubcategoriesOf(CategoryTV))
	assert.Nil(t, SubcategoriesOf(CategoryMusic))
}
