// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/autobrr/prowlfeed/internal/release"
)

type CategoryResponse struct {
	Name          release.Category      `json:"name"`
	Code          int                   `json:"code,omitempty"`
	Subcategories []release.Subcategory `json:"subcategories,omitempty"`
}

// ListCategories godoc
// @Summary List the selectable categories
// @Tags categories
// @Produce json
// @Success 200 {array} CategoryResponse
// @Router /api/categories [get]
func ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := release.Categories()
	response := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		item := CategoryResponse{
			Name:          category,
			Subcategories: release.SubcategoriesOf(category),
		}
		if code, ok := category.PrimaryCode(); ok {
			item.Code = code
		}
		response = append(response, item)
	}

	RespondJSON(w, http.StatusOK, response)
}
