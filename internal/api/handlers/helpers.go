// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/domain"
	"github.com/autobrr/prowlfeed/internal/services/discovery"
	"github.com/autobrr/prowlfeed/internal/services/downloads"
	"github.com/autobrr/prowlfeed/internal/services/feeds"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondServiceError maps pipeline errors to HTTP statuses. Unknown errors are
// logged and answered with fallback.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, message := statusForError(err)

	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Client went away")
		return
	case status == http.StatusInternalServerError:
		log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		message = fallback
	case status >= http.StatusInternalServerError:
		log.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Upstream failure")
	}

	RespondError(w, status, message)
}

func statusForError(err error) (int, string) {
	var upstream *domain.UpstreamError

	switch {
	case errors.Is(err, discovery.ErrInvalidQuery),
		errors.Is(err, feeds.ErrInvalidURL),
		errors.Is(err, downloads.ErrInvalidLink):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrConfigurationMissing):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrAllSourcesFailed):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, err.Error()
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &upstream):
		return http.StatusBadGateway, upstream.Error()
	case errors.Is(err, domain.ErrMalformedFeed):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
