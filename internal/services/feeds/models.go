// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package feeds

import "time"

// Listing is a single feed item as published by the tracker.
type Listing struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PublishDate time.Time `json:"publishDate"`
	// Details is the item link (tracker page).
	Details string `json:"details,omitempty"`
	// Link is the download link: enclosure url, else item link.
	Link string `json:"link"`
	GUID string `json:"guid,omitempty"`
	Size int64  `json:"size"`
	// CategoryCode is nil when the item carries no numeric category.
	CategoryCode *int   `json:"categoryCode,omitempty"`
	FeedTitle    string `json:"feedTitle,omitempty"`

	Seeders              int     `json:"seeders"`
	Peers                int     `json:"peers"`
	Grabs                int     `json:"grabs"`
	DownloadVolumeFactor float64 `json:"downloadVolumeFactor"`
	UploadVolumeFactor   float64 `json:"uploadVolumeFactor"`
}

// Freeleech reports whether downloading does not count against ratio.
func (l Listing) Freeleech() bool {
	return l.DownloadVolumeFactor == 0
}
