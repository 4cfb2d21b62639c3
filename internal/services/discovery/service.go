// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/models"
	"github.com/autobrr/prowlfeed/internal/release"
	"github.com/autobrr/prowlfeed/internal/services/feeds"
	"github.com/autobrr/prowlfeed/internal/services/indexer"
	"github.com/autobrr/prowlfeed/internal/services/metadata"
)

const (
	DefaultFeedConcurrency   = 8
	DefaultEnrichConcurrency = 8
)

type SourceLister interface {
	ListEnabled(ctx context.Context) ([]*models.FeedSource, error)
}

type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]feeds.Listing, error)
}

type MetadataMatcher interface {
	MatchNormalized(ctx context.Context, title release.NormalizedTitle, rawTitle string) (*metadata.Match, error)
}

type IndexerSearcher interface {
	Search(ctx context.Context, req indexer.Request) ([]indexer.SearchResult, error)
}

// Dependencies are the collaborators of a Service. A nil Matcher disables
// enrichment.
type Dependencies struct {
	Sources SourceLister
	Fetcher FeedFetcher
	Matcher MetadataMatcher
	Indexer IndexerSearcher
}

type Options struct {
	FeedConcurrency   int
	EnrichConcurrency int
	PageSize          int
}

func (o Options) withDefaults() Options {
	if o.FeedConcurrency <= 0 {
		o.FeedConcurrency = DefaultFeedConcurrency
	}
	if o.EnrichConcurrency <= 0 {
		o.EnrichConcurrency = DefaultEnrichConcurrency
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return o
}

// SourceResult is the settled outcome of one source fetch. Exactly one of
// Listings and Err is meaningful.
type SourceResult struct {
	Source   *models.FeedSource
	Listings []EnrichedListing
	Err      error
}

type SourceStatus struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Listings int    `json:"listings"`
	Error    string `json:"error,omitempty"`
}

// FeedPage is one page of the merged feed view. Partial is set when at least
// one source failed but not all of them.
type FeedPage struct {
	Page[EnrichedListing]
	Sources        []SourceStatus `json:"sources"`
	Partial        bool           `json:"partial"`
	LookupFailures int            `json:"lookupFailures"`
}

// Service runs the discovery pipeline: fetch, classify, page, enrich.
type Service struct {
	mu   sync.RWMutex
	deps Dependencies
	opts Options
	log  zerolog.Logger
}

func NewService(deps Dependencies, opts Options) *Service {
	return &Service{
		deps: deps,
		opts: opts.withDefaults(),
		log:  log.Logger.With().Str("module", "discovery").Logger(),
	}
}

// Reload swaps collaborators and options. In-flight requests keep the ones
// they started with.
func (s *Service) Reload(deps Dependencies, opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = deps
	s.opts = opts.withDefaults()
	s.log.Debug().Bool("enrichment", deps.Matcher != nil).Msg("Discovery pipeline reloaded")
}

func (s *Service) snapshot() (Dependencies, Options) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deps, s.opts
}

// EnrichmentEnabled reports whether a metadata matcher is configured.
func (s *Service) EnrichmentEnabled() bool {
	deps, _ := s.snapshot()
	return deps.Matcher != nil
}

// FetchAll fetches and classifies every source concurrently. A failing source
// never cancels its siblings; results are returned in source order.
func (s *Service) FetchAll(ctx context.Context, sources []*models.FeedSource) []SourceResult {
	deps, opts := s.snapshot()
	return fetchAll(ctx, deps.Fetcher, opts.FeedConcurrency, sources)
}

func fetchAll(ctx context.Context, fetcher FeedFetcher, limit int, sources []*models.FeedSource) []SourceResult {
	results := make([]SourceResult, len(sources))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, source := range sources {
		g.Go(func() error {
			listings, err := fetcher.Fetch(ctx, source.URL)
			if err != nil {
				results[i] = SourceResult{Source: source, Err: err}
				return nil
			}
			results[i] = SourceResult{Source: source, Listings: classify(source, listings)}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Enrich looks up metadata for every listing in place and returns the number
// of failed lookups. Failed listings stay unmatched.
func (s *Service) Enrich(ctx context.Context, listings []EnrichedListing) int {
	deps, opts := s.snapshot()
	if deps.Matcher == nil {
		return 0
	}
	return s.enrich(ctx, deps.Matcher, opts.EnrichConcurrency, listings)
}

func (s *Service) enrich(ctx context.Context, matcher MetadataMatcher, limit int, listings []EnrichedListing) int {
	var failures atomic.Int64

	var g errgroup.Group
	g.SetLimit(limit)

	for i := range listings {
		g.Go(func() error {
			title := listings[i].Title
			match, err := matcher.MatchNormalized(ctx, release.NormalizeTitle(title), title)
			if err != nil {
				failures.Add(1)
				if ctx.Err() == nil {
					s.log.Debug().Err(err).Str("title", title).Msg("Metadata lookup failed")
				}
				return nil
			}
			if match != nil {
				listings[i].Metadata = match
				listings[i].MetadataURL = match.PageURL()
			}
			return nil
		})
	}

	_ = g.Wait()
	return int(failures.Load())
}

// Feed merges every enabled source and returns one page. The listings of the
// returned page are enriched when enrich is set and a matcher is configured.
// When every source fails the error wraps domain.ErrAllSourcesFailed and each
// source error.
func (s *Service) Feed(ctx context.Context, q Query, enrich bool) (*FeedPage, error) {
	deps, opts := s.snapshot()
	if q.PageSize <= 0 {
		q.PageSize = opts.PageSize
	}

	sources, err := deps.Sources.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feed sources: %w", err)
	}
	if q.SourceID != 0 {
		sources = selectSource(sources, q.SourceID)
	}

	results := fetchAll(ctx, deps.Fetcher, opts.FeedConcurrency, sources)

	statuses := make([]SourceStatus, 0, len(results))
	var merged []EnrichedListing
	var errs []error
	for _, result := range results {
		status := SourceStatus{ID: result.Source.ID, Name: result.Source.Name, Listings: len(result.Listings)}
		if result.Err != nil {
			status.Error = result.Err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", result.Source.Name, result.Err))
			s.log.Warn().Err(result.Err).Int("sourceID", result.Source.ID).Str("source", result.Source.Name).Msg("Feed source failed")
		}
		statuses = append(statuses, status)
		merged = append(merged, result.Listings...)
	}

	if len(results) > 0 && len(errs) == len(results) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.Join(append([]error{domain.ErrAllSourcesFailed}, errs...)...)
	}

	feedPage := &FeedPage{
		Page:    Paginate(merged, q),
		Sources: statuses,
		Partial: len(errs) > 0,
	}

	if enrich && deps.Matcher != nil {
		feedPage.LookupFailures = s.enrich(ctx, deps.Matcher, opts.EnrichConcurrency, feedPage.Items)
	}

	return feedPage, nil
}

// Search runs an indexer search and pages the results. Search results are
// never enriched.
func (s *Service) Search(ctx context.Context, text string, q Query) (*Page[indexer.SearchResult], error) {
	deps, opts := s.snapshot()
	if q.PageSize <= 0 {
		q.PageSize = opts.PageSize
	}
	if deps.Indexer == nil {
		return nil, fmt.Errorf("indexer search: %w", domain.ErrConfigurationMissing)
	}

	results, err := deps.Indexer.Search(ctx, indexer.Request{
		Query:       text,
		Category:    q.Category,
		Subcategory: q.Subcategory,
	})
	if err != nil {
		return nil, err
	}

	page := Paginate(results, q)
	return &page, nil
}

// ParseFeed fetches a single ad-hoc feed URL without a stored source.
func (s *Service) ParseFeed(ctx context.Context, feedURL string, q Query, enrich bool) (*Page[EnrichedListing], error) {
	deps, opts := s.snapshot()
	if q.PageSize <= 0 {
		q.PageSize = opts.PageSize
	}

	items, err := deps.Fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	page := Paginate(classify(nil, items), q)
	if enrich && deps.Matcher != nil {
		s.enrich(ctx, deps.Matcher, opts.EnrichConcurrency, page.Items)
	}

	return &page, nil
}

func selectSource(sources []*models.FeedSource, id int) []*models.FeedSource {
	for _, source := range sources {
		if source.ID == id {
			return []*models.FeedSource{source}
		}
	}
	return nil
}
