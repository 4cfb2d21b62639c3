// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/buildinfo"
	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/metrics"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultItemLimit = 100

	feedAccept = "application/rss+xml, application/xml, text/xml, application/atom+xml"

	maxFeedBytes  int64 = 32 << 20
	maxErrorBytes int64 = 4 << 10
)

type Config struct {
	// Timeout bounds a whole fetch, including reading the body.
	Timeout time.Duration
	// ItemLimit caps the number of listings returned per feed.
	ItemLimit int
	UserAgent string
	// HTTPClient overrides the IPv4-only default client.
	HTTPClient *http.Client
}

// Fetcher downloads and parses RSS/Torznab feeds.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	itemLimit  int
	userAgent  string
	metrics    *metrics.PipelineMetrics
	log        zerolog.Logger
}

func NewFetcher(cfg Config, m *metrics.PipelineMetrics) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ItemLimit <= 0 {
		cfg.ItemLimit = DefaultItemLimit
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = buildinfo.FeedUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: newIPv4Transport()}
	}

	return &Fetcher{
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
		itemLimit:  cfg.ItemLimit,
		userAgent:  cfg.UserAgent,
		metrics:    m,
		log:        log.Logger.With().Str("module", "feeds").Logger(),
	}
}

// newIPv4Transport dials tcp4 only; several trackers publish broken AAAA records.
func newIPv4Transport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, _, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp4", addr)
	}
	transport.MaxIdleConnsPerHost = 4
	return transport
}

// Fetch retrieves feedURL and returns its listings, most recent first, capped
// at the configured item limit. The fetch is cancelled when the timeout expires
// and domain.ErrTimeout is returned.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]Listing, error) {
	start := time.Now()

	listings, err := f.fetch(ctx, feedURL)
	f.metrics.ObserveFeedFetch(start, len(listings), err)

	if err != nil {
		f.log.Debug().Err(err).Str("url", redactURL(feedURL)).Dur("elapsed", time.Since(start)).Msg("Feed fetch failed")
		return nil, err
	}

	f.log.Trace().Str("url", redactURL(feedURL)).Int("items", len(listings)).Dur("elapsed", time.Since(start)).Msg("Feed fetched")
	return listings, nil
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]Listing, error) {
	body, err := f.fetchBody(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	listings, err := decodeFeed(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	sortByPublishDate(listings)

	if len(listings) > f.itemLimit {
		listings = listings[:f.itemLimit]
	}

	return listings, nil
}

// fetchBody performs the GET and reads the whole body within the fetch timeout.
func (f *Fetcher) fetchBody(ctx context.Context, feedURL string) ([]byte, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, fmt.Errorf("feed URL is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", feedAccept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, f.wrapTransportError(ctx, fetchCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &domain.UpstreamError{Service: "feed", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, f.wrapTransportError(ctx, fetchCtx, err)
	}

	return body, nil
}

// wrapTransportError distinguishes our own deadline from caller cancellation.
func (f *Fetcher) wrapTransportError(parent, fetchCtx context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return fmt.Errorf("feed fetch cancelled: %w", parentErr)
	}
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response within %s", domain.ErrTimeout, f.timeout)
	}
	return fmt.Errorf("feed request failed: %w", err)
}

// sortByPublishDate orders listings most recent first. Undated listings go last
// and keep their document order.
func sortByPublishDate(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].PublishDate, listings[j].PublishDate
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
}

// redactURL drops query parameters, which usually carry passkeys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	u.User = nil
	return u.String()
}
