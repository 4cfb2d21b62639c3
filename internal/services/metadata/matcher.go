// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metadata

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/metrics"
	"github.com/autobrr/prowlfeed/internal/release"
)

// Searcher looks up one title under one media type. A nil match with a nil
// error means no result.
type Searcher interface {
	Search(ctx context.Context, mediaType MediaType, query string) (*Match, error)
}

var (
	// Separators are any non-alphanumeric rune, so "_" and "." delimit tokens too.
	seasonSignalRe     = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])S\d{1,2}(?:E\d{1,3})*(?:$|[^A-Za-z0-9])`)
	collectionSignalRe = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])(?:INTEGRALE?|COMPLETE|COLLECTION|COFFRET)(?:$|[^A-Za-z0-9])`)
)

// PreferredOrder returns the lookup order for a raw release name: tv first when
// it carries a season token or a complete-series word, movie first otherwise.
func PreferredOrder(rawTitle string) []MediaType {
	if seasonSignalRe.MatchString(rawTitle) || collectionSignalRe.MatchString(rawTitle) {
		return []MediaType{MediaTV, MediaMovie}
	}
	return []MediaType{MediaMovie, MediaTV}
}

// Matcher resolves release names to TMDB entries.
type Matcher struct {
	searcher Searcher
	metrics  *metrics.PipelineMetrics
	log      zerolog.Logger
}

func NewMatcher(searcher Searcher, m *metrics.PipelineMetrics) *Matcher {
	return &Matcher{
		searcher: searcher,
		metrics:  m,
		log:      log.Logger.With().Str("module", "metadata").Logger(),
	}
}

// Match normalizes rawTitle and looks it up.
func (m *Matcher) Match(ctx context.Context, rawTitle string) (*Match, error) {
	return m.MatchNormalized(ctx, release.NormalizeTitle(rawTitle), rawTitle)
}

// MatchNormalized tries every type in PreferredOrder with the cleaned title,
// then once more with a trailing year stripped. No result is not an error.
func (m *Matcher) MatchNormalized(ctx context.Context, title release.NormalizedTitle, rawTitle string) (*Match, error) {
	order := PreferredOrder(rawTitle)

	match, err := m.tryOrder(ctx, order, title.Cleaned)
	if err != nil {
		m.metrics.ObserveMetadataLookup(metrics.LookupError)
		return nil, err
	}

	if match == nil {
		if withoutYear, ok := release.StripTrailingYear(title.Cleaned); ok {
			m.log.Trace().Str("title", title.Cleaned).Str("retry", withoutYear).Msg("Retrying lookup without year")
			match, err = m.tryOrder(ctx, order, withoutYear)
			if err != nil {
				m.metrics.ObserveMetadataLookup(metrics.LookupError)
				return nil, err
			}
		}
	}

	if match == nil {
		m.metrics.ObserveMetadataLookup(metrics.LookupMiss)
		m.log.Trace().Str("title", title.Cleaned).Msg("No metadata match")
		return nil, nil
	}

	m.metrics.ObserveMetadataLookup(metrics.LookupMatch)
	return match, nil
}

func (m *Matcher) tryOrder(ctx context.Context, order []MediaType, query string) (*Match, error) {
	for _, mediaType := range order {
		match, err := m.searcher.Search(ctx, mediaType, query)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, nil
}
