// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"time"

	"github.com/autobrr/prowlfeed/internal/release"
)

// SearchResult is a single indexer hit. Search results are never enriched with metadata.
type SearchResult struct {
	Name        string              `json:"name"`
	Link        string              `json:"link"`
	Size        int64               `json:"size"`
	Seeds       int                 `json:"seeds"`
	Peers       int                 `json:"peers"`
	Indexer     string              `json:"indexer"`
	Details     string              `json:"details,omitempty"`
	Category    release.Category    `json:"category"`
	PublishDate time.Time           `json:"publishDate,omitzero"`
	Release     release.Annotations `json:"release"`
}

// Request describes one search.
type Request struct {
	Query       string
	Category    release.Category
	Subcategory release.Subcategory
}

// prowlarrRelease is the subset of /api/v1/search records we read.
type prowlarrRelease struct {
	GUID        string             `json:"guid"`
	Title       string             `json:"title"`
	Size        int64              `json:"size"`
	Indexer     string             `json:"indexer"`
	IndexerID   int                `json:"indexerId"`
	InfoURL     string             `json:"infoUrl"`
	DownloadURL string             `json:"downloadUrl"`
	MagnetURL   string             `json:"magnetUrl"`
	Seeders     *int               `json:"seeders"`
	Leechers    *int               `json:"leechers"`
	Peers       *int               `json:"peers"`
	PublishDate time.Time          `json:"publishDate"`
	Categories  []prowlarrCategory `json:"categories"`
}

type prowlarrCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (r SearchResult) ListingName() string { return r.Name }
func (r SearchResult) ListingSize() int64 { return r.Size }
func (r SearchResult) ListingSeeds() int { return r.Seeds }
func (r SearchResult) ListingPeers() int { return r.Peers }
func (r SearchResult) ListingDate() time.Time { return r.PublishDate }
func (r SearchResult) ListingCategory() release.Category { return r.Category }
func (r SearchResult) ListingSource() int { return 0 }
