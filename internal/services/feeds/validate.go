// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/mmcdole/gofeed"

	"github.com/autobrr/prowlfeed/internal/domain"
)

var ErrInvalidURL = errors.New("invalid feed URL")

// ValidationResult describes a feed that can be added as a source.
type ValidationResult struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	FeedType    string     `json:"feedType"`
	FeedVersion string     `json:"feedVersion,omitempty"`
	ItemCount   int        `json:"itemCount"`
	Torznab     bool       `json:"torznab"`
	LastItem    string     `json:"lastItem,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

const validateAttempts = 3

// Validate checks that feedURL is reachable and yields listings. Transport
// failures and 5xx responses are retried; a malformed or non-RSS body is not.
func (f *Fetcher) Validate(ctx context.Context, feedURL string) (*ValidationResult, error) {
	if err := checkFeedURL(feedURL); err != nil {
		return nil, err
	}

	var body []byte
	err := retry.Do(
		func() error {
			var fetchErr error
			body, fetchErr = f.fetchBody(ctx, feedURL)
			return fetchErr
		},
		retry.Context(ctx),
		retry.Attempts(validateAttempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableFetchError),
		retry.OnRetry(func(n uint, err error) {
			f.log.Debug().Err(err).Uint("attempt", n+1).Str("url", redactURL(feedURL)).Msg("Retrying feed validation")
		}),
	)
	if err != nil {
		return nil, err
	}

	feedType := gofeed.DetectFeedType(bytes.NewReader(body))
	if feedType != gofeed.FeedTypeRSS {
		return nil, fmt.Errorf("%w: unsupported feed type %q, only RSS/Torznab feeds are supported", domain.ErrMalformedFeed, feedTypeName(feedType))
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFeed, err)
	}

	listings, err := decodeFeed(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	sortByPublishDate(listings)

	result := &ValidationResult{
		Title:       strings.TrimSpace(parsed.Title),
		Description: plainText(parsed.Description),
		FeedType:    parsed.FeedType,
		FeedVersion: parsed.FeedVersion,
		ItemCount:   len(listings),
		Torznab:     bytes.Contains(body, []byte("torznab")) || bytes.Contains(body, []byte("newznab")),
		LastItem:    listings[0].Title,
	}

	if !listings[0].PublishDate.IsZero() {
		published := listings[0].PublishDate
		result.LastUpdated = &published
	} else if parsed.UpdatedParsed != nil {
		result.LastUpdated = parsed.UpdatedParsed
	}

	return result, nil
}

func checkFeedURL(feedURL string) error {
	u, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: must use HTTP or HTTPS", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

func isRetryableFetchError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode >= http.StatusInternalServerError || upstream.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func feedTypeName(t gofeed.FeedType) string {
	switch t {
	case gofeed.FeedTypeAtom:
		return "atom"
	case gofeed.FeedTypeJSON:
		return "json"
	case gofeed.FeedTypeRSS:
		return "rss"
	default:
		return "unknown"
	}
}
