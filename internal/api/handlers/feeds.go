// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/prowlfeed/internal/models"
	"github.com/autobrr/prowlfeed/internal/services/discovery"
	"github.com/autobrr/prowlfeed/internal/services/feeds"
)

type FeedSourceStore interface {
	List(ctx context.Context) ([]*models.FeedSource, error)
	Create(ctx context.Context, source *models.FeedSource) (*models.FeedSource, error)
	Update(ctx context.Context, source *models.FeedSource) (*models.FeedSource, error)
	Delete(ctx context.Context, id int) error
}

// FeedsHandler serves feed sources and the aggregated feed view.
type FeedsHandler struct {
	store   FeedSourceStore
	service *discovery.Service
}

func NewFeedsHandler(store FeedSourceStore, service *discovery.Service) *FeedsHandler {
	return &FeedsHandler{
		store:   store,
		service: service,
	}
}

func (h *FeedsHandler) Routes(r chi.Router) {
	r.Route("/feeds", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/validate", h.Validate)
		r.Get("/items", h.Items)
		r.Get("/parse", h.Parse)

		r.Route("/{feedID}", func(r chi.Router) {
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

type FeedSourcePayload struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled *bool  `json:"enabled,omitempty"`
	// SkipValidation stores the source without probing it first.
	SkipValidation bool `json:"skipValidation,omitempty"`
}

func (p *FeedSourcePayload) toModel(id int) *models.FeedSource {
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return &models.FeedSource{
		ID:      id,
		Name:    strings.TrimSpace(p.Name),
		URL:     strings.TrimSpace(p.URL),
		Enabled: enabled,
	}
}

// CreateFeedSourceResponse carries the stored source and the probe result.
type CreateFeedSourceResponse struct {
	*models.FeedSource
	Validation *feeds.ValidationResult `json:"validation,omitempty"`
}

func (h *FeedsHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list feed sources")
		RespondError(w, http.StatusInternalServerError, "Failed to load feed sources")
		return
	}

	RespondJSON(w, http.StatusOK, sources)
}

// Create godoc
// @Summary Add a feed source
// @Description Validates the feed URL unless skipValidation is set, then stores it.
// @Tags feeds
// @Accept json
// @Produce json
// @Success 201 {object} CreateFeedSourceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/feeds [post]
func (h *FeedsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload FeedSourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	source := payload.toModel(0)
	if source.URL == "" {
		RespondError(w, http.StatusBadRequest, "Feed URL is required")
		return
	}

	var validation *feeds.ValidationResult
	if !payload.SkipValidation {
		result, err := h.service.ValidateFeed(r.Context(), source.URL)
		if err != nil {
			RespondServiceError(w, r, err, "Failed to validate feed")
			return
		}
		validation = result
	}

	if source.Name == "" && validation != nil {
		source.Name = validation.Title
	}
	if source.Name == "" {
		RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	created, err := h.store.Create(r.Context(), source)
	if err != nil {
		if errors.Is(err, models.ErrFeedSourceExists) {
			RespondError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to create feed source")
		RespondError(w, http.StatusInternalServerError, "Failed to create feed source")
		return
	}

	RespondJSON(w, http.StatusCreated, CreateFeedSourceResponse{FeedSource: created, Validation: validation})
}

func (h *FeedsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDParam(w, r)
	if !ok {
		return
	}

	var payload FeedSourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	source := payload.toModel(id)
	if source.Name == "" || source.URL == "" {
		RespondError(w, http.StatusBadRequest, "Name and URL are required")
		return
	}

	updated, err := h.store.Update(r.Context(), source)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			RespondError(w, http.StatusNotFound, "Feed source not found")
		case errors.Is(err, models.ErrFeedSourceExists):
			RespondError(w, http.StatusConflict, err.Error())
		default:
			log.Error().Err(err).Int("id", id).Msg("failed to update feed source")
			RespondError(w, http.StatusInternalServerError, "Failed to update feed source")
		}
		return
	}

	RespondJSON(w, http.StatusOK, updated)
}

func (h *FeedsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDParam(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(w, http.StatusNotFound, "Feed source not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to delete feed source")
		RespondError(w, http.StatusInternalServerError, "Failed to delete feed source")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type validateFeedRequest struct {
	URL string `json:"url"`
}

// Validate godoc
// @Summary Probe a feed URL without storing it
// @Tags feeds
// @Accept json
// @Produce json
// @Success 200 {object} feeds.ValidationResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/feeds/validate [post]
func (h *FeedsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.service.ValidateFeed(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		RespondServiceError(w, r, err, "Failed to validate feed")
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// Items godoc
// @Summary Aggregated listings of every enabled feed source
// @Description Fetches all enabled sources concurrently. A failing source is reported in sources and sets partial; only a failure of every source is an error.
// @Tags feeds
// @Produce json
// @Param category query string false "Category filter, all by default"
// @Param sort query string false "name, size, seeds, peers or date"
// @Param order query string false "asc or desc"
// @Param page query int false "1-indexed page"
// @Param pageSize query int false "Items per page"
// @Param source query int false "Restrict to one feed source"
// @Param q query string false "Fuzzy name filter"
// @Param enrich query bool false "Look up metadata for the returned page"
// @Success 200 {object} discovery.FeedPage
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/feeds/items [get]
func (h *FeedsHandler) Items(w http.ResponseWriter, r *http.Request) {
	query, err := discovery.ParseQuery(r.URL.Query())
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.Feed(r.Context(), query, enrichParam(r))
	if err != nil {
		RespondServiceError(w, r, err, "Failed to load feeds")
		return
	}

	RespondJSON(w, http.StatusOK, page)
}

func (h *FeedsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	feedURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if feedURL == "" {
		RespondError(w, http.StatusBadRequest, "url is required")
		return
	}

	query, err := discovery.ParseQuery(r.URL.Query())
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.ParseFeed(r.Context(), feedURL, query, enrichParam(r))
	if err != nil {
		RespondServiceError(w, r, err, "Failed to parse feed")
		return
	}

	RespondJSON(w, http.StatusOK, page)
}

func feedIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "feedID"))
	if err != nil || id <= 0 {
		RespondError(w, http.StatusBadRequest, "Invalid feed ID")
		return 0, false
	}
	return id, true
}

// enrichParam defaults to true; only an explicit false disables lookups.
func enrichParam(r *http.Request) bool {
	raw := r.URL.Query().Get("enrich")
	if raw == "" {
		return true
	}
	enrich, err := strconv.ParseBool(raw)
	return err != nil || enrich
}
