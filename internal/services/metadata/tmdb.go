// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/autobrr/prowlfeed/internal/buildinfo"
	"github.com/autobrr/prowlfeed/internal/domain"
)

const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultLanguage  = "fr-FR"
	posterBaseURL    = "https://image.tmdb.org/t/p/w185"
	pageBaseURL      = "https://www.themoviedb.org"
	defaultRateLimit = 20
	maxErrorBytes    = 4 << 10
)

// MediaType is the TMDB search namespace.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Match is a resolved TMDB entry.
type Match struct {
	ID        int       `json:"id"`
	MediaType MediaType `json:"mediaType"`
	PosterURL string    `json:"posterUrl,omitempty"`
}

// PageURL returns the public TMDB page of the match.
func (m Match) PageURL() string {
	return fmt.Sprintf("%s/%s/%d", pageBaseURL, m.MediaType, m.ID)
}

type TMDBConfig struct {
	BaseURL     string
	AccessToken string
	Language    string
	// RequestsPerSecond limits outbound lookups; <= 0 uses the default.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// TMDBClient performs title searches against the TMDB v3 API.
type TMDBClient struct {
	baseURL    string
	token      string
	language   string
	limiter    *rate.Limiter
	httpClient *http.Client
}

func NewTMDBClient(cfg TMDBConfig) *TMDBClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRateLimit
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &TMDBClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      strings.TrimSpace(cfg.AccessToken),
		language:   cfg.Language,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		httpClient: cfg.HTTPClient,
	}
}

// Configured reports whether an access token is set.
func (c *TMDBClient) Configured() bool {
	return c != nil && c.token != ""
}

type searchResponse struct {
	Results []struct {
		ID         int     `json:"id"`
		PosterPath *string `json:"poster_path"`
	} `json:"results"`
}

// Search returns the first result for query under mediaType, or nil when there is none.
func (c *TMDBClient) Search(ctx context.Context, mediaType MediaType, query string) (*Match, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("tmdb access token: %w", domain.ErrConfigurationMissing)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/"+string(mediaType)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tmdb request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: tmdb request failed: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: tmdb rejected credentials (status %d)", domain.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &domain.UpstreamError{Service: "tmdb", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}

	if len(payload.Results) == 0 {
		return nil, nil
	}

	first := payload.Results[0]
	match := &Match{ID: first.ID, MediaType: mediaType}
	if first.PosterPath != nil && *first.PosterPath != "" {
		match.PosterURL = posterBaseURL + *first.PosterPath
	}

	return match, nil
}

func (m MediaType) String() string {
	return string(m)
}
