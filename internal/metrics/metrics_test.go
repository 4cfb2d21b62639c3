// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/autobrr/prowlfeed/internal/domain"
)

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "ok"},
		{name: "timeout", err: fmt.Errorf("fetch: %w", domain.ErrTimeout), want: "timeout"},
		{name: "malformed", err: domain.ErrMalformedFeed, want: "malformed"},
		{name: "unconfigured", err: domain.ErrConfigurationMissing, want: "unconfigured"},
		{name: "upstream", err: fmt.Errorf("x: %w", &domain.UpstreamError{Service: "feed", StatusCode: 500}), want: "upstream"},
		{name: "other", err: errors.New("boom"), want: "error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusLabel(tt.err))
		})
	}
}

func TestPipelineMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveFeedFetch(time.Now(), 12, nil)
	m.ObserveFeedFetch(time.Now(), 0, domain.ErrTimeout)
	m.ObserveMetadataLookup(LookupMatch)
	m.ObserveIndexerSearch(time.Now(), nil)
	m.ObserveDownload(errors.New("nope"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFetchTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFetchTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MetadataLookupsTotal.WithLabelValues(LookupMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexerSearchTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsTotal.WithLabelValues("error")))
}

func TestNilPipelineMetricsIsNoop(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.ObserveFeedFetch(time.Now(), 1, nil)
		m.ObserveMetadataLookup(LookupMiss)
		m.ObserveIndexerSearch(time.Now(), nil)
		m.ObserveDownload(nil)
	})
}

func TestParseBasicAuthUsers(t *testing.T) {
	users := ParseBasicAuthUsers("prometheus:$2y$10$abc, grafana:$2y$10$def,broken,:nohash")
	assert.Equal(t, map[string]string{
		"prometheus": "$2y$10$abc",
		"grafana":    "$2y$10$def",
	}, users)

	assert.Empty(t, ParseBasicAuthUsers(""))
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	handler := BasicAuth("metrics", map[string]string{"prometheus": string(hash)})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		user     string
		pass     string
		withAuth bool
		want     int
	}{
		{name: "valid", user: "prometheus", pass: "secret", withAuth: true, want: http.StatusOK},
		{name: "wrong_password", user: "prometheus", pass: "nope", withAuth: true, want: http.StatusUnauthorized},
		{name: "unknown_user", user: "grafana", pass: "secret", withAuth: true, want: http.StatusUnauthorized},
		{name: "missing", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.withAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}
