// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import "strings"

// Subcategory narrows a movie or tv search to a quality tier.
type Subcategory string

const (
	SubcategoryAll    Subcategory = "all"
	SubcategorySD     Subcategory = "sd"
	SubcategoryHD     Subcategory = "hd"
	SubcategoryUHD    Subcategory = "uhd"
	SubcategoryBluRay Subcategory = "bluray"
)

var subcategoryCodes = map[Category]map[Subcategory][]int{
	CategoryMovie: {
		SubcategoryAll:    {2030, 2040, 2045, 2050},
		SubcategorySD:     {2030},
		SubcategoryHD:     {2040},
		SubcategoryUHD:    {2045},
		SubcategoryBluRay: {2050},
	},
	CategoryTV: {
		SubcategoryAll: {5030, 5040, 5045},
		SubcategorySD:  {5030},
		SubcategoryHD:  {5040},
		SubcategoryUHD: {5045},
	},
}

// ParseSubcategory resolves a filter value. Empty input means all.
func ParseSubcategory(s string) (Subcategory, bool) {
	switch sub := Subcategory(strings.ToLower(strings.TrimSpace(s))); sub {
	case "":
		return SubcategoryAll, true
	case SubcategoryAll, SubcategorySD, SubcategoryHD, SubcategoryUHD, SubcategoryBluRay:
		return sub, true
	default:
		return "", false
	}
}

// SearchCodes returns the category codes to send for c narrowed by sub. With
// no narrowing, or none defined for c, it is the primary code alone.
func SearchCodes(c Category, sub Subcategory) []int {
	primary, ok := c.PrimaryCode()
	if !ok {
		return nil
	}
	if sub == "" || sub == SubcategoryAll {
		return []int{primary}
	}
	if codes := subcategoryCodes[c][sub]; len(codes) > 0 {
		return append([]int(nil), codes...)
	}
	return []int{primary}
}

// SubcategoriesOf lists the quality tiers a category can be narrowed to.
func SubcategoriesOf(c Category) []Subcategory {
	codes, ok := subcategoryCodes[c]
	if !ok {
		return nil
	}
	out := make([]Subcategory, 0, len(codes))
	for _, sub := range []Subcategory{SubcategoryAll, SubcategorySD, SubcategoryHD, SubcategoryUHD, SubcategoryBluRay} {
		if _, ok := codes[sub]; ok {
			out = append(out, sub)
		}
	}
	return out
}
