// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package buildinfo

import "fmt"

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent is sent on requests to JSON APIs (TMDB, Prowlarr).
var UserAgent = fmt.Sprintf("prowlfeed/%s (+https://github.com/autobrr/prowlfeed)", Version)

// FeedUserAgent is sent when fetching RSS feeds. Several public trackers
// reject anything that does not look like a browser.
const FeedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// String returns a human readable version line.
func String() string {
	s := Version
	if Commit != "" {
		s += " (" + Commit + ")"
	}
	if Date != "" {
		s += " built " + Date
	}
	return s
}
