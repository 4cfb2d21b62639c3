// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/buildinfo"
	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/metrics"
	"github.com/autobrr/prowlfeed/internal/release"
)

const (
	DefaultMinSeeds = 3
	defaultTimeout  = 60 * time.Second
	maxErrorBytes   = 4 << 10
)

type Config struct {
	BaseURL  string
	APIKey   string
	MinSeeds int
	// Timeout bounds a search request; Prowlarr fans out to every indexer so it is generous.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client searches a Prowlarr instance.
type Client struct {
	baseURL    string
	apiKey     string
	minSeeds   int
	httpClient *http.Client
	metrics    *metrics.PipelineMetrics
	log        zerolog.Logger
}

func NewClient(cfg Config, m *metrics.PipelineMetrics) *Client {
	if cfg.MinSeeds < 0 {
		cfg.MinSeeds = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		minSeeds:   cfg.MinSeeds,
		httpClient: cfg.HTTPClient,
		metrics:    m,
		log:        log.Logger.With().Str("module", "indexer").Logger(),
	}
}

// Configured reports whether both the URL and API key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Search queries Prowlarr and returns results with at least the minimum seed
// count, restricted to the requested category unless it is all.
func (c *Client) Search(ctx context.Context, req Request) ([]SearchResult, error) {
	start := time.Now()

	results, err := c.search(ctx, req)
	c.metrics.ObserveIndexerSearch(start, err)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("query", req.Query).
		Str("category", req.Category.String()).
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("Indexer search completed")

	return results, nil
}

func (c *Client) search(ctx context.Context, req Request) ([]SearchResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("prowlarr url and api key: %w", domain.ErrConfigurationMissing)
	}

	category := req.Category
	if category == "" {
		category = release.CategoryAll
	}

	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("type", "search")
	if category != release.CategoryAll {
		for _, code := range release.SearchCodes(category, req.Subcategory) {
			params.Add("categories", strconv.Itoa(code))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("prowlarr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &domain.UpstreamError{Service: "prowlarr", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var records []prowlarrRelease
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode prowlarr response: %w", err)
	}

	results := make([]SearchResult, 0, len(records))
	for _, record := range records {
		result := convertRelease(record)
		if result.Seeds < c.minSeeds {
			continue
		}
		if category != release.CategoryAll && result.Category != category {
			continue
		}
		results = append(results, result)
	}

	return results, nil
}

func convertRelease(record prowlarrRelease) SearchResult {
	result := SearchResult{
		Name:        record.Title,
		Link:        firstNonEmpty(record.DownloadURL, record.MagnetURL, record.GUID),
		Size:        record.Size,
		Indexer:     record.Indexer,
		Details:     record.InfoURL,
		PublishDate: record.PublishDate,
		Release:     release.Annotate(record.Title),
	}

	if record.Seeders != nil {
		result.Seeds = *record.Seeders
	}
	switch {
	case record.Peers != nil:
		result.Peers = *record.Peers
	case record.Leechers != nil:
		result.Peers = *record.Leechers
	}

	var code *int
	if len(record.Categories) > 0 {
		code = &record.Categories[0].ID
	}
	result.Category = release.Classify(code)

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
