// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/api/handlers"
	"github.com/autobrr/prowlfeed/internal/api/middleware"
	"github.com/autobrr/prowlfeed/internal/config"
	"github.com/autobrr/prowlfeed/internal/services/discovery"
	"github.com/autobrr/prowlfeed/internal/web/swagger"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	feedSourceStore handlers.FeedSourceStore
	discovery       *discovery.Service
	downloads       handlers.DownloadService
}

type Dependencies struct {
	Config          *config.AppConfig
	Version         string
	FeedSourceStore handlers.FeedSourceStore
	Discovery       *discovery.Service
	Downloads       handlers.DownloadService
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			// Aggregation waits for the slowest feed plus metadata lookups.
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  180 * time.Second,
		},
		logger:          log.Logger.With().Str("module", "api").Logger(),
		config:          deps.Config,
		version:         deps.Version,
		feedSourceStore: deps.FeedSourceStore,
		discovery:       deps.Discovery,
		downloads:       deps.Downloads,
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msgf("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Str("base_url", s.config.Config.BaseURL).
		Msgf("Starting API server - Open: http://%s%sapi/openapi.yaml", host, s.baseURL())

	handler, err := s.Handler()
	if err != nil {
		listener.Close()
		return fmt.Errorf("build API router: %w", err)
	}

	s.server.Handler = handler

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) baseURL() string {
	baseURL := s.config.Config.BaseURL
	if baseURL == "" {
		return "/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL
}

func (s *Server) Handler() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID) // Must be before logger to capture request ID
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	// HTTP compression - handles gzip, brotli, zstd, deflate automatically
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedMethods:  []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:  []string{"Accept", "Content-Type", "X-API-Key"},
		AllowOriginFunc: func(origin string) bool { return true },
		MaxAge:          300,
	})
	r.Use(corsMiddleware.Handler)

	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.version, s.downloads)
	feedsHandler := handlers.NewFeedsHandler(s.feedSourceStore, s.discovery)
	searchHandler := handlers.NewSearchHandler(s.discovery)
	downloadsHandler := handlers.NewDownloadsHandler(s.downloads)

	swaggerHandler, err := swagger.NewHandler()
	if err != nil {
		return nil, err
	}

	// API routes
	apiRouter := chi.NewRouter()

	apiRouter.Group(func(r chi.Router) {
		r.Use(middleware.Logger(s.logger))

		swaggerHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(func() string { return s.config.Config.APIKey }))

			r.Get("/categories", handlers.ListCategories)

			feedsHandler.Routes(r)

			r.Get("/search", searchHandler.Search)
			r.Post("/downloads", downloadsHandler.Create)
		})
	})

	baseURL := s.baseURL()

	r.Get(baseURL+"health", healthHandler.HandleHealth)
	r.Mount(baseURL+"api", apiRouter)

	if baseURL != "/" {
		r.Get("/", func(w http.ResponseWriter, request *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Must use baseUrl: " + s.config.Config.BaseURL + " instead of /"))
		})
	}

	return r, nil
}
