// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strings"

	"github.com/autobrr/prowlfeed/internal/services/discovery"
)

type SearchHandler struct {
	service *discovery.Service
}

func NewSearchHandler(service *discovery.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search godoc
// @Summary Search the configured Prowlarr instance
// @Tags search
// @Produce json
// @Param query query string true "Search text"
// @Param category query string false "Category filter"
// @Param subcategory query string false "sd, hd, uhd or bluray"
// @Success 200 {object} discovery.Page[indexer.SearchResult]
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/search [get]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("query"))
	if text == "" {
		RespondError(w, http.StatusBadRequest, "query is required")
		return
	}

	query, err := discovery.ParseQuery(r.URL.Query())
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.Search(r.Context(), text, query)
	if err != nil {
		RespondServiceError(w, r, err, "Search failed")
		return
	}

	RespondJSON(w, http.StatusOK, page)
}
