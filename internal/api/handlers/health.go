// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/autobrr/prowlfeed/internal/services/downloads"
)

// DownloadClientStatus reports the state of the download client.
type DownloadClientStatus interface {
	Status() downloads.ClientStatus
}

type HealthHandler struct {
	version string
	client  DownloadClientStatus
}

type HealthResponse struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Qbittorrent downloads.ClientStatus `json:"qbittorrent"`
}

func NewHealthHandler(version string, client DownloadClientStatus) *HealthHandler {
	return &HealthHandler{version: version, client: client}
}

// HandleHealth always answers 200 while the process serves requests. An
// unreachable qBittorrent shows up in the qbittorrent object only.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: h.version}
	if h.client != nil {
		resp.Qbittorrent = h.client.Status()
	}
	RespondJSON(w, http.StatusOK, resp)
}
