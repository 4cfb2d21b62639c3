// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when an outbound fetch exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrMalformedFeed is returned when a feed body has no rss/channel or no items.
	ErrMalformedFeed = errors.New("malformed feed")
	// ErrConfigurationMissing is returned when a required URL, key or token is unset.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrServiceUnavailable is returned when TMDB or qBittorrent cannot be reached or rejects credentials.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrAllSourcesFailed is returned when every feed source of an aggregation failed.
	ErrAllSourcesFailed = errors.New("all feed sources failed")
)

// UpstreamError represents a non-2xx response from an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Is matches any *UpstreamError so callers can use errors.Is(err, &UpstreamError{}).
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)
	return ok
}
