// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer serves the registry on host:port under /metrics. basicAuthUsers is a
// comma separated list of user:bcrypt_hash pairs; empty disables authentication.
func NewServer(registry *prometheus.Registry, host string, port int, basicAuthUsers string) *Server {
	logger := log.Logger.With().Str("module", "metrics").Logger()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	users := ParseBasicAuthUsers(basicAuthUsers)
	if len(users) > 0 {
		logger.Info().Int("users", len(users)).Msg("Metrics basic authentication enabled")
		r.Use(BasicAuth("metrics", users))
	}

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: &promLogger{logger: logger},
	}))

	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	return s.server.ListenAndServe()
}

// ParseBasicAuthUsers parses "user1:hash1,user2:hash2". Malformed entries are skipped.
func ParseBasicAuthUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, hash, ok := strings.Cut(entry, ":")
		if !ok || user == "" || hash == "" {
			log.Warn().Str("entry", user).Msg("Ignoring malformed metrics basic auth entry")
			continue
		}
		users[user] = hash
	}
	return users
}

// BasicAuth checks credentials against bcrypt hashes.
func BasicAuth(realm string, users map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, pass, ok := r.BasicAuth(); ok {
				if hash, found := users[user]; found && bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, realm))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}

type promLogger struct {
	logger zerolog.Logger
}

func (l *promLogger) Println(v ...any) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
