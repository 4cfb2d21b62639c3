// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	Host          string
	Username      string
	Password      string
	BasicUser     string
	BasicPass     string
	TLSSkipVerify bool
	Timeout       time.Duration
}

// Client is a lazily authenticated qBittorrent WebUI client. Login happens on
// first use and again after a failed call.
type Client struct {
	*qbt.Client
	host    string
	timeout time.Duration
	log     zerolog.Logger

	mu              sync.Mutex
	loggedIn        bool
	webAPIVersion   string
	lastHealthCheck time.Time
	isHealthy       bool
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	qbtClient := qbt.NewClient(qbt.Config{
		Host:          cfg.Host,
		Username:      cfg.Username,
		Password:      cfg.Password,
		BasicUser:     cfg.BasicUser,
		BasicPass:     cfg.BasicPass,
		TLSSkipVerify: cfg.TLSSkipVerify,
		Timeout:       int(cfg.Timeout.Seconds()),
	})

	return &Client{
		Client:  qbtClient,
		host:    cfg.Host,
		timeout: cfg.Timeout,
		log:     log.Logger.With().Str("module", "qbittorrent").Str("host", cfg.Host).Logger(),
	}
}

func (c *Client) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn {
		return nil
	}

	loginCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.Client.LoginCtx(loginCtx); err != nil {
		c.updateHealthStatusLocked(false)
		return fmt.Errorf("failed to connect to qBittorrent instance: %w", err)
	}

	c.loggedIn = true
	c.updateHealthStatusLocked(true)

	if version, err := c.Client.GetWebAPIVersionCtx(loginCtx); err == nil {
		c.webAPIVersion = strings.TrimSpace(version)
	} else {
		c.log.Debug().Err(err).Msg("Failed to read qBittorrent WebAPI version")
	}

	c.log.Debug().Str("webAPIVersion", c.webAPIVersion).Msg("qBittorrent login succeeded")
	return nil
}

// AddFromURL hands a download link or magnet to qBittorrent.
func (c *Client) AddFromURL(ctx context.Context, link string, options map[string]string) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	if err := c.Client.AddTorrentFromUrlCtx(ctx, link, options); err != nil {
		c.mu.Lock()
		c.loggedIn = false
		c.updateHealthStatusLocked(false)
		c.mu.Unlock()
		return fmt.Errorf("failed to add torrent from URL: %w", err)
	}

	c.mu.Lock()
	c.updateHealthStatusLocked(true)
	c.mu.Unlock()
	return nil
}

func (c *Client) updateHealthStatusLocked(healthy bool) {
	c.isHealthy = healthy
	c.lastHealthCheck = time.Now()
}

func (c *Client) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHealthy
}

func (c *Client) GetLastHealthCheck() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHealthCheck
}

func (c *Client) GetWebAPIVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.webAPIVersion
}

func (c *Client) Host() string {
	return c.host
}
