// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/autobrr/prowlfeed/internal/domain"
)

// PipelineMetrics holds the Prometheus collectors for the discovery pipeline.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	FeedFetchDuration     *prometheus.HistogramVec
	FeedFetchTotal        *prometheus.CounterVec
	FeedItems             prometheus.Histogram
	MetadataLookupsTotal  *prometheus.CounterVec
	IndexerSearchDuration prometheus.Histogram
	IndexerSearchTotal    *prometheus.CounterVec
	DownloadsTotal        *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers the pipeline collectors on reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		FeedFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prowlfeed_feed_fetch_duration_seconds",
			Help:    "Time spent fetching and parsing a feed",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"status"}),
		FeedFetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prowlfeed_feed_fetch_total",
			Help: "Total number of feed fetches by status",
		}, []string{"status"}),
		FeedItems: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prowlfeed_feed_items",
			Help:    "Number of items returned per successful feed fetch",
			Buckets: []float64{0, 10, 25, 50, 100, 250},
		}),
		MetadataLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prowlfeed_metadata_lookups_total",
			Help: "Total number of metadata lookups by result",
		}, []string{"result"}),
		IndexerSearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prowlfeed_indexer_search_duration_seconds",
			Help:    "Time spent waiting for indexer search responses",
			Buckets: prometheus.DefBuckets,
		}),
		IndexerSearchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prowlfeed_indexer_search_total",
			Help: "Total number of indexer searches by status",
		}, []string{"status"}),
		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prowlfeed_downloads_total",
			Help: "Total number of download submissions by status",
		}, []string{"status"}),
	}
}

// NewRegistry returns a registry with the pipeline collectors plus the Go and process collectors.
func NewRegistry() (*prometheus.Registry, *PipelineMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, NewPipelineMetrics(reg)
}

// Metadata lookup results.
const (
	LookupMatch = "match"
	LookupMiss  = "miss"
	LookupError = "error"
)

func (m *PipelineMetrics) ObserveFeedFetch(start time.Time, items int, err error) {
	if m == nil {
		return
	}
	status := StatusLabel(err)
	m.FeedFetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	m.FeedFetchTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.FeedItems.Observe(float64(items))
	}
}

func (m *PipelineMetrics) ObserveMetadataLookup(result string) {
	if m == nil {
		return
	}
	m.MetadataLookupsTotal.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) ObserveIndexerSearch(start time.Time, err error) {
	if m == nil {
		return
	}
	m.IndexerSearchDuration.Observe(time.Since(start).Seconds())
	m.IndexerSearchTotal.WithLabelValues(StatusLabel(err)).Inc()
}

func (m *PipelineMetrics) ObserveDownload(err error) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(StatusLabel(err)).Inc()
}

// StatusLabel maps an error to a low cardinality label value.
func StatusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrMalformedFeed):
		return "malformed"
	case errors.Is(err, domain.ErrConfigurationMissing):
		return "unconfigured"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, &domain.UpstreamError{}):
		return "upstream"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
