// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/metrics"
	"github.com/autobrr/prowlfeed/internal/qbittorrent"
)

var ErrInvalidLink = errors.New("download link must be an http(s) URL or a magnet link")

// Submitter adds a link to a torrent client.
type Submitter interface {
	AddFromURL(ctx context.Context, link string, options map[string]string) error
}

// healthReporter is implemented by clients that track their last outcome.
type healthReporter interface {
	IsHealthy() bool
	GetLastHealthCheck() time.Time
	GetWebAPIVersion() string
	Host() string
}

// ClientStatus describes the download client for the health endpoint.
type ClientStatus struct {
	Configured    bool       `json:"configured"`
	Host          string     `json:"host,omitempty"`
	Healthy       bool       `json:"healthy"`
	LastCheck     *time.Time `json:"lastCheck,omitempty"`
	WebAPIVersion string     `json:"webApiVersion,omitempty"`
}

// Service forwards download links to qBittorrent.
type Service struct {
	mu        sync.RWMutex
	submitter Submitter
	category  string
	metrics   *metrics.PipelineMetrics
	log       zerolog.Logger
}

func NewService(cfg *domain.Config, m *metrics.PipelineMetrics) *Service {
	s := &Service{
		metrics: m,
		log:     log.Logger.With().Str("module", "downloads").Logger(),
	}
	s.Reload(cfg)
	return s
}

// NewServiceWithSubmitter is used when the client is built elsewhere.
func NewServiceWithSubmitter(submitter Submitter, category string, m *metrics.PipelineMetrics) *Service {
	return &Service{
		submitter: submitter,
		category:  category,
		metrics:   m,
		log:       log.Logger.With().Str("module", "downloads").Logger(),
	}
}

// Reload rebuilds the qBittorrent client from cfg. An empty host disables submission.
func (s *Service) Reload(cfg *domain.Config) {
	var submitter Submitter
	if host := strings.TrimSpace(cfg.QbittorrentHost); host != "" {
		submitter = qbittorrent.NewClient(qbittorrent.Config{
			Host:          host,
			Username:      cfg.QbittorrentUsername,
			Password:      cfg.QbittorrentPassword,
			BasicUser:     cfg.QbittorrentBasicUser,
			BasicPass:     cfg.QbittorrentBasicPass,
			TLSSkipVerify: cfg.QbittorrentTLSSkipVerify,
		})
	}

	s.mu.Lock()
	s.submitter = submitter
	s.category = strings.TrimSpace(cfg.QbittorrentCategory)
	s.mu.Unlock()
}

func (s *Service) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitter != nil
}

// Status reports whether a client is configured and the outcome of its last
// login or submission. Healthy stays false until the client has been used.
func (s *Service) Status() ClientStatus {
	s.mu.RLock()
	submitter := s.submitter
	s.mu.RUnlock()

	if submitter == nil {
		return ClientStatus{}
	}

	status := ClientStatus{Configured: true, Healthy: true}
	reporter, ok := submitter.(healthReporter)
	if !ok {
		return status
	}

	status.Host = redactHost(reporter.Host())
	status.Healthy = reporter.IsHealthy()
	status.WebAPIVersion = reporter.GetWebAPIVersion()
	if checked := reporter.GetLastHealthCheck(); !checked.IsZero() {
		status.LastCheck = &checked
	}
	return status
}

// Submit sends link to qBittorrent. It returns once qBittorrent accepted the
// link; the download itself is not tracked.
func (s *Service) Submit(ctx context.Context, link string) error {
	err := s.submit(ctx, link)
	if !errors.Is(err, ErrInvalidLink) {
		s.metrics.ObserveDownload(err)
	}
	return err
}

func (s *Service) submit(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if err := checkLink(link); err != nil {
		return err
	}

	s.mu.RLock()
	submitter, category := s.submitter, s.category
	s.mu.RUnlock()

	if submitter == nil {
		return fmt.Errorf("qbittorrent host: %w", domain.ErrConfigurationMissing)
	}

	options := map[string]string{}
	if category != "" {
		options["category"] = category
	}

	if err := submitter.AddFromURL(ctx, link, options); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Error().Err(err).Msg("Download submission failed")
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	s.log.Info().Str("category", category).Msg("Download submitted to qBittorrent")
	return nil
}

// redactHost masks a password embedded in the WebUI URL.
func redactHost(host string) string {
	u, err := url.Parse(host)
	if err != nil {
		return ""
	}
	return u.Redacted()
}

func checkLink(link string) error {
	if strings.HasPrefix(strings.ToLower(link), "magnet:?") {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidLink
	}
	return nil
}
