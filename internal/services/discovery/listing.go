// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package discovery

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/autobrr/prowlfeed/internal/models"
	"github.com/autobrr/prowlfeed/internal/release"
	"github.com/autobrr/prowlfeed/internal/services/feeds"
	"github.com/autobrr/prowlfeed/internal/services/metadata"
)

// Listing is anything the presentation layer can filter, sort and page.
type Listing interface {
	ListingName() string
	ListingSize() int64
	ListingSeeds() int
	ListingPeers() int
	ListingDate() time.Time
	ListingCategory() release.Category
	// ListingSource is the feed source id, 0 for indexer results.
	ListingSource() int
}

// EnrichedListing is a classified feed item with its optional metadata match.
type EnrichedListing struct {
	ID string `json:"id"`
	feeds.Listing
	Category   release.Category    `json:"category"`
	Freeleech  bool                `json:"freeleech"`
	Release    release.Annotations `json:"release"`
	SourceID   int                 `json:"sourceId"`
	SourceName string              `json:"sourceName"`
	// Metadata is nil when enrichment was skipped, missed or failed.
	Metadata    *metadata.Match `json:"metadata,omitempty"`
	MetadataURL string          `json:"metadataUrl,omitempty"`
}

func (l EnrichedListing) ListingName() string { return l.Title }
func (l EnrichedListing) ListingSize() int64 { return l.Size }
func (l EnrichedListing) ListingSeeds() int { return l.Seeders }
func (l EnrichedListing) ListingPeers() int { return l.Peers }
func (l EnrichedListing) ListingDate() time.Time { return l.PublishDate }
func (l EnrichedListing) ListingCategory() release.Category { return l.Category }
func (l EnrichedListing) ListingSource() int { return l.SourceID }

// classify labels raw feed items. source may be nil for ad-hoc feeds.
func classify(source *models.FeedSource, items []feeds.Listing) []EnrichedListing {
	sourceID, sourceName := 0, ""
	if source != nil {
		sourceID, sourceName = source.ID, source.Name
	}

	out := make([]EnrichedListing, 0, len(items))
	for _, item := range items {
		name := sourceName
		if name == "" {
			name = item.FeedTitle
		}
		out = append(out, EnrichedListing{
			ID:         listingID(sourceID, item.Link),
			Listing:    item,
			Category:   release.Classify(item.CategoryCode),
			Freeleech:  item.Freeleech(),
			Release:    release.Annotate(item.Title),
			SourceID:   sourceID,
			SourceName: name,
		})
	}
	return out
}

// listingID is stable for a given source and download link.
func listingID(sourceID int, link string) string {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.Itoa(sourceID))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(link)
	return strconv.FormatUint(h.Sum64(), 16)
}
