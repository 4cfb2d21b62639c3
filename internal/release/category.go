// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import "strings"

// Category is the content label derived from a Newznab/Torznab category code.
type Category string

const (
	CategoryMovie    Category = "movie"
	CategoryTV       Category = "tv"
	CategoryAnime    Category = "anime"
	CategoryMusic    Category = "music"
	CategorySoftware Category = "software"
	CategoryBooks    Category = "books"
	CategoryOther    Category = "other"
	CategoryUnknown  Category = "unknown"

	// CategoryAll is a filter value, never a classification result.
	CategoryAll Category = "all"
)

// Torznab category codes used for outbound searches.
const (
	CodeMovies   = 2000
	CodeAudio    = 3000
	CodePC       = 4000
	CodeTV       = 5000
	CodeTVAnime  = 5070
	CodeTVUpper  = 6000
	CodeBooks    = 7000
	CodeBooksEnd = 8000
)

// Classify maps a raw category code to its label. Rules are evaluated in order
// and the first match wins; 5070 is carved out of the tv range as anime.
func Classify(code *int) Category {
	if code == nil {
		return CategoryUnknown
	}

	c := *code
	switch {
	case c >= CodeMovies && c < CodeAudio:
		return CategoryMovie
	case c == CodeTVAnime:
		return CategoryAnime
	case (c >= CodeTV && c < CodeTVAnime) || (c > CodeTVAnime && c < CodeTVUpper):
		return CategoryTV
	case c >= CodeAudio && c < CodePC:
		return CategoryMusic
	case c >= CodePC && c < CodeTV:
		return CategorySoftware
	case c >= CodeBooks && c < CodeBooksEnd:
		return CategoryBooks
	default:
		return CategoryOther
	}
}

// ClassifyCode is Classify for a code known to be present.
func ClassifyCode(code int) Category {
	return Classify(&code)
}

var primaryCodes = map[Category]int{
	CategoryMovie:    CodeMovies,
	CategoryTV:       CodeTV,
	CategoryAnime:    CodeTVAnime,
	CategoryMusic:    CodeAudio,
	CategorySoftware: CodePC,
	CategoryBooks:    CodeBooks,
}

// PrimaryCode returns the search code for a category, or false for
// categories that have none (all, other, unknown).
func (c Category) PrimaryCode() (int, bool) {
	code, ok := primaryCodes[c]
	return code, ok
}

// Known reports whether the category is a real classification a listing can be shown under.
func (c Category) Known() bool {
	return c != CategoryUnknown && c != CategoryAll && c != ""
}

func (c Category) String() string {
	return string(c)
}

var categoryAliases = map[string]Category{
	"":         CategoryAll,
	"all":      CategoryAll,
	"movie":    CategoryMovie,
	"movies":   CategoryMovie,
	"film":     CategoryMovie,
	"films":    CategoryMovie,
	"tv":       CategoryTV,
	"series":   CategoryTV,
	"shows":    CategoryTV,
	"anime":    CategoryAnime,
	"music":    CategoryMusic,
	"audio":    CategoryMusic,
	"software": CategorySoftware,
	"apps":     CategorySoftware,
	"pc":       CategorySoftware,
	"books":    CategoryBooks,
	"book":     CategoryBooks,
	"ebooks":   CategoryBooks,
	"other":    CategoryOther,
}

// ParseCategory resolves a user supplied filter value. Empty input means all.
func ParseCategory(s string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// Categories lists the labels a listing can be filtered by, in display order.
func Categories() []Category {
	return []Category{
		CategoryAll,
		CategoryMovie,
		CategoryTV,
		CategoryAnime,
		CategoryMusic,
		CategorySoftware,
		CategoryBooks,
		CategoryOther,
	}
}
