// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package discovery

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/autobrr/prowlfeed/internal/release"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

var ErrInvalidQuery = errors.New("invalid query")

type SortField string

const (
	SortNone  SortField = ""
	SortName  SortField = "name"
	SortSize  SortField = "size"
	SortSeeds SortField = "seeds"
	SortPeers SortField = "peers"
	SortDate  SortField = "date"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Query selects one page of listings.
type Query struct {
	Category    release.Category
	Subcategory release.Subcategory
	Sort        SortField
	Order       SortOrder
	// Page is 1-indexed.
	Page     int
	PageSize int
	// SourceID restricts feed listings to one source; 0 keeps all.
	SourceID int
	// Text is a case-insensitive fuzzy filter on the listing name.
	Text string
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// ParseQuery reads category, subcategory, sort, order, page, pageSize, source
// and q from values. Missing values take their defaults.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{Page: 1, Order: OrderDesc}

	category, ok := release.ParseCategory(values.Get("category"))
	if !ok {
		return q, fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, values.Get("category"))
	}
	q.Category = category

	sub, ok := release.ParseSubcategory(values.Get("subcategory"))
	if !ok {
		return q, fmt.Errorf("%w: unknown subcategory %q", ErrInvalidQuery, values.Get("subcategory"))
	}
	q.Subcategory = sub

	switch field := SortField(strings.ToLower(values.Get("sort"))); field {
	case SortNone, SortName, SortSize, SortSeeds, SortPeers, SortDate:
		q.Sort = field
	default:
		return q, fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, field)
	}

	switch order := SortOrder(strings.ToLower(values.Get("order"))); order {
	case "":
	case OrderAsc, OrderDesc:
		q.Order = order
	default:
		return q, fmt.Errorf("%w: unknown order %q", ErrInvalidQuery, order)
	}

	var err error
	if q.Page, err = positiveInt(values, "page", 1); err != nil {
		return q, err
	}
	if q.PageSize, err = positiveInt(values, "pageSize", 0); err != nil {
		return q, err
	}
	if q.SourceID, err = positiveInt(values, "source", 0); err != nil {
		return q, err
	}

	q.Text = strings.TrimSpace(values.Get("q"))

	return q, nil
}

func positiveInt(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidQuery, key)
	}
	return n, nil
}

// Paginate filters, sorts and slices items. Category all still drops items
// classified unknown. The sort is stable and a page past the end is empty.
func Paginate[T Listing](items []T, q Query) Page[T] {
	pageSize := q.PageSize
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	page := max(q.Page, 1)

	filtered := filter(items, q)
	sortListings(filtered, q.Sort, q.Order)

	total := len(filtered)
	result := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return result
	}
	end := min(start+pageSize, total)
	result.Items = filtered[start:end]

	return result
}

func filter[T Listing](items []T, q Query) []T {
	category := q.Category
	if category == "" {
		category = release.CategoryAll
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		itemCategory := item.ListingCategory()
		if itemCategory == release.CategoryUnknown {
			continue
		}
		if category != release.CategoryAll && itemCategory != category {
			continue
		}
		if q.SourceID != 0 && item.ListingSource() != q.SourceID {
			continue
		}
		if q.Text != "" && !matchesText(q.Text, item.ListingName()) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// matchesText requires every word of text to fuzzy match name.
func matchesText(text, name string) bool {
	for _, word := range strings.Fields(text) {
		if !fuzzy.MatchNormalizedFold(word, name) {
			return false
		}
	}
	return true
}

func sortListings[T Listing](items []T, field SortField, order SortOrder) {
	compare := comparator[T](field)
	if compare == nil {
		return
	}

	slices.SortStableFunc(items, func(a, b T) int {
		c := compare(a, b)
		if order == OrderDesc {
			return -c
		}
		return c
	})
}

func comparator[T Listing](field SortField) func(a, b T) int {
	switch field {
	case SortName:
		return func(a, b T) int { return strings.Compare(a.ListingName(), b.ListingName()) }
	case SortSize:
		return func(a, b T) int { return cmp.Compare(a.ListingSize(), b.ListingSize()) }
	case SortSeeds:
		return func(a, b T) int { return cmp.Compare(a.ListingSeeds(), b.ListingSeeds()) }
	case SortPeers:
		return func(a, b T) int { return cmp.Compare(a.ListingPeers(), b.ListingPeers()) }
	case SortDate:
		return func(a, b T) int { return a.ListingDate().Compare(b.ListingDate()) }
	default:
		return nil
	}
}
