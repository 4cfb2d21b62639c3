// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package feeds

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/autobrr/prowlfeed/internal/domain"
)

type rssDocument struct {
	XMLName xml.Name    `xml:"rss"`
	Channel *rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate"`
	Link        string        `xml:"link"`
	GUID        string        `xml:"guid"`
	Comments    string        `xml:"comments"`
	Size        string        `xml:"size"`
	Categories  []string      `xml:"category"`
	Enclosure   *rssEnclosure `xml:"enclosure"`
	// Matches torznab:attr and newznab:attr.
	Attrs []torznabAttr `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

// decodeFeed parses an RSS/Torznab document. A missing channel or an empty
// item list is reported as domain.ErrMalformedFeed.
func decodeFeed(r io.Reader) ([]Listing, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity

	var doc rssDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFeed, err)
	}

	if doc.Channel == nil {
		return nil, fmt.Errorf("%w: missing rss/channel", domain.ErrMalformedFeed)
	}
	if len(doc.Channel.Items) == 0 {
		return nil, fmt.Errorf("%w: channel has no items", domain.ErrMalformedFeed)
	}

	feedTitle := strings.TrimSpace(doc.Channel.Title)

	listings := make([]Listing, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		listings = append(listings, convertItem(item, feedTitle))
	}

	return listings, nil
}

func convertItem(item rssItem, feedTitle string) Listing {
	listing := Listing{
		Title:                strings.TrimSpace(item.Title),
		Description:          plainText(item.Description),
		Details:              strings.TrimSpace(item.Link),
		GUID:                 strings.TrimSpace(item.GUID),
		FeedTitle:            feedTitle,
		DownloadVolumeFactor: 1.0,
		UploadVolumeFactor:   1.0,
	}

	if listing.Details == "" {
		listing.Details = strings.TrimSpace(item.Comments)
	}

	listing.Link = listing.Details
	if item.Enclosure != nil && strings.TrimSpace(item.Enclosure.URL) != "" {
		listing.Link = strings.TrimSpace(item.Enclosure.URL)
	}

	listing.PublishDate = parsePubDate(item.PubDate)

	if size, ok := parseInt64(item.Size); ok {
		listing.Size = size
	} else if item.Enclosure != nil {
		if size, ok := parseInt64(item.Enclosure.Length); ok {
			listing.Size = size
		}
	}

	for _, category := range item.Categories {
		if code, err := strconv.Atoi(strings.TrimSpace(category)); err == nil {
			listing.CategoryCode = &code
			break
		}
	}

	for _, attr := range item.Attrs {
		value := strings.TrimSpace(attr.Value)
		switch strings.ToLower(strings.TrimSpace(attr.Name)) {
		case "seeders":
			listing.Seeders = atoiOrZero(value)
		case "peers":
			listing.Peers = atoiOrZero(value)
		case "grabs":
			listing.Grabs = atoiOrZero(value)
		case "downloadvolumefactor":
			listing.DownloadVolumeFactor = floatOrOne(value)
		case "uploadvolumefactor":
			listing.UploadVolumeFactor = floatOrOne(value)
		case "size":
			if listing.Size == 0 {
				if size, ok := parseInt64(value); ok {
					listing.Size = size
				}
			}
		case "category":
			if listing.CategoryCode == nil {
				if code, err := strconv.Atoi(value); err == nil {
					listing.CategoryCode = &code
				}
			}
		}
	}

	return listing
}

func parsePubDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// plainText strips markup from an item description.
func plainText(description string) string {
	description = strings.TrimSpace(description)
	if description == "" || !strings.ContainsAny(description, "<&") {
		return description
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return description
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func parseInt64(value string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func atoiOrZero(value string) int {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return v
}

func floatOrOne(value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 1.0
	}
	return v
}
