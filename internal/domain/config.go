// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

type Config struct {
	Version       string `toml:"-" mapstructure:"-"`
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	BaseURL       string `toml:"baseUrl" mapstructure:"baseUrl"`
	APIKey        string `toml:"apiKey" mapstructure:"apiKey"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`

	// Indexer search (Prowlarr)
	IndexerURL    string `toml:"indexerUrl" mapstructure:"indexerUrl"`
	IndexerAPIKey string `toml:"indexerApiKey" mapstructure:"indexerApiKey"`
	MinSeeds      int    `toml:"minSeeds" mapstructure:"minSeeds"`

	// Metadata lookup (TMDB)
	TMDBAccessToken       string  `toml:"tmdbAccessToken" mapstructure:"tmdbAccessToken"`
	TMDBLanguage          string  `toml:"tmdbLanguage" mapstructure:"tmdbLanguage"`
	TMDBRequestsPerSecond float64 `toml:"tmdbRequestsPerSecond" mapstructure:"tmdbRequestsPerSecond"`

	// Feed pipeline
	FeedTimeoutSeconds int `toml:"feedTimeoutSeconds" mapstructure:"feedTimeoutSeconds"`
	FeedItemLimit      int `toml:"feedItemLimit" mapstructure:"feedItemLimit"`
	FeedConcurrency    int `toml:"feedConcurrency" mapstructure:"feedConcurrency"`
	EnrichConcurrency  int `toml:"enrichConcurrency" mapstructure:"enrichConcurrency"`
	PageSize           int `toml:"pageSize" mapstructure:"pageSize"`

	// Download submission
	QbittorrentHost     string `toml:"qbittorrentHost" mapstructure:"qbittorrentHost"`
	QbittorrentUsername string `toml:"qbittorrentUsername" mapstructure:"qbittorrentUsername"`
	QbittorrentPassword string `toml:"qbittorrentPassword" mapstructure:"qbittorrentPassword"`
	QbittorrentCategory string `toml:"qbittorrentCategory" mapstructure:"qbittorrentCategory"`

	// HTTP basic auth in front of the WebUI, e.g. a reverse proxy.
	QbittorrentBasicUser     string `toml:"qbittorrentBasicUser" mapstructure:"qbittorrentBasicUser"`
	QbittorrentBasicPass     string `toml:"qbittorrentBasicPass" mapstructure:"qbittorrentBasicPass"`
	QbittorrentTLSSkipVerify bool   `toml:"qbittorrentTlsSkipVerify" mapstructure:"qbittorrentTlsSkipVerify"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`
}

// FeedTimeout returns the per-feed fetch timeout, falling back to 20s.
func (c *Config) FeedTimeout() time.Duration {
	if c.FeedTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.FeedTimeoutSeconds) * time.Second
}
