// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/prowlfeed/internal/domain"
)

func TestTMDBSearch(t *testing.T) {
	var gotPath, gotQuery, gotLanguage, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotLanguage = r.URL.Query().Get("language")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":693134,"poster_path":"/poster.jpg"},{"id":1,"poster_path":null}]}`))
	}))
	defer srv.Close()

	client := NewTMDBClient(TMDBConfig{BaseURL: srv.URL, AccessToken: "token"})

	match, err := client.Search(context.Background(), MediaMovie, "Dune Part Two 2024")
	require.NoError(t, err)
	require.NotNil(t, match)

	assert.Equal(t, "/search/movie", gotPath)
	assert.Equal(t, "Dune Part Two 2024", gotQuery)
	assert.Equal(t, "fr-FR", gotLanguage)
	assert.Equal(t, "Bearer token", gotAuth)

	assert.Equal(t, 693134, match.ID)
	assert.Equal(t, MediaMovie, match.MediaType)
	assert.Equal(t, "https://image.tmdb.org/t/p/w185/poster.jpg", match.PosterURL)
	assert.Equal(t, "https://www.themoviedb.org/movie/693134", match.PageURL())
}

func TestTMDBSearchNullPoster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":42,"poster_path":null}]}`))
	}))
	defer srv.Close()

	match, err := NewTMDBClient(TMDBConfig{BaseURL: srv.URL, AccessToken: "token", Language: "en-US"}).Search(context.Background(), MediaTV, "Show")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Empty(t, match.PosterURL)
	assert.Equal(t, "https://www.themoviedb.org/tv/42", match.PageURL())
}

func TestTMDBSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	match, err := NewTMDBClient(TMDBConfig{BaseURL: srv.URL, AccessToken: "token"}).Search(context.Background(), MediaMovie, "nothing")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestTMDBSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: domain.ErrServiceUnavailable},
		{name: "forbidden", status: http.StatusForbidden, wantErr: domain.ErrServiceUnavailable},
		{name: "server_error", status: http.StatusInternalServerError, wantErr: &domain.UpstreamError{}},
		{name: "rate_limited", status: http.StatusTooManyRequests, wantErr: &domain.UpstreamError{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewTMDBClient(TMDBConfig{BaseURL: srv.URL, AccessToken: "token"}).Search(context.Background(), MediaMovie, "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTMDBSearchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewTMDBClient(TMDBConfig{BaseURL: url, AccessToken: "token"}).Search(context.Background(), MediaMovie, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestTMDBSearchRequiresToken(t *testing.T) {
	client := NewTMDBClient(TMDBConfig{})
	assert.False(t, client.Configured())

	_, err := client.Search(context.Background(), MediaMovie, "x")
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
}
