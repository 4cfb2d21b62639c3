// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package swagger

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var openAPISpec []byte

// GetOpenAPISpec returns the embedded OpenAPI document.
func GetOpenAPISpec() ([]byte, error) {
	return openAPISpec, nil
}

type Handler struct {
	spec []byte
}

func NewHandler() (*Handler, error) {
	spec, err := GetOpenAPISpec()
	if err != nil {
		return nil, err
	}
	return &Handler{spec: spec}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/openapi.yaml", h.ServeSpec)
}

func (h *Handler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(h.spec)
}
