// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

type DownloadSubmitter interface {
	Submit(ctx context.Context, link string) error
}

// DownloadService is the download client as seen by the API.
type DownloadService interface {
	DownloadSubmitter
	DownloadClientStatus
}

type DownloadsHandler struct {
	submitter DownloadSubmitter
}

func NewDownloadsHandler(submitter DownloadSubmitter) *DownloadsHandler {
	return &DownloadsHandler{submitter: submitter}
}

type downloadRequest struct {
	URL string `json:"url"`
}

// Create godoc
// @Summary Send a download link to qBittorrent
// @Tags downloads
// @Accept json
// @Produce json
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/downloads [post]
func (h *DownloadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.submitter.Submit(r.Context(), req.URL); err != nil {
		RespondServiceError(w, r, err, "Failed to submit download")
		return
	}

	RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
