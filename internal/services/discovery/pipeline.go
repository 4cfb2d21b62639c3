// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package discovery

import (
	"context"
	"errors"

	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/metrics"
	"github.com/autobrr/prowlfeed/internal/services/feeds"
	"github.com/autobrr/prowlfeed/internal/services/indexer"
	"github.com/autobrr/prowlfeed/internal/services/metadata"
)

var errValidationUnsupported = errors.New("feed validation is not supported by this fetcher")

type FeedValidator interface {
	Validate(ctx context.Context, feedURL string) (*feeds.ValidationResult, error)
}

// PipelineFromConfig builds the collaborators described by cfg. Enrichment is
// disabled when no TMDB token is set.
func PipelineFromConfig(cfg *domain.Config, sources SourceLister, m *metrics.PipelineMetrics) (Dependencies, Options) {
	deps := Dependencies{
		Sources: sources,
		Fetcher: feeds.NewFetcher(feeds.Config{
			Timeout:   cfg.FeedTimeout(),
			ItemLimit: cfg.FeedItemLimit,
		}, m),
		Indexer: indexer.NewClient(indexer.Config{
			BaseURL:  cfg.IndexerURL,
			APIKey:   cfg.IndexerAPIKey,
			MinSeeds: cfg.MinSeeds,
		}, m),
	}

	tmdb := metadata.NewTMDBClient(metadata.TMDBConfig{
		AccessToken:       cfg.TMDBAccessToken,
		Language:          cfg.TMDBLanguage,
		RequestsPerSecond: cfg.TMDBRequestsPerSecond,
	})
	if tmdb.Configured() {
		deps.Matcher = metadata.NewMatcher(tmdb, m)
	}

	opts := Options{
		FeedConcurrency:   cfg.FeedConcurrency,
		EnrichConcurrency: cfg.EnrichConcurrency,
		PageSize:          cfg.PageSize,
	}

	return deps, opts
}

// ValidateFeed probes feedURL before it is stored as a source.
func (s *Service) ValidateFeed(ctx context.Context, feedURL string) (*feeds.ValidationResult, error) {
	deps, _ := s.snapshot()
	validator, ok := deps.Fetcher.(FeedValidator)
	if !ok {
		return nil, errValidationUnsupported
	}
	return validator.Validate(ctx, feedURL)
}
