// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/autobrr/prowlfeed/internal/dbinterface"
)

var ErrFeedSourceExists = errors.New("a feed source with this URL already exists")

type FeedSource struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type FeedSourceStore struct {
	db dbinterface.Querier
}

func NewFeedSourceStore(db dbinterface.Querier) *FeedSourceStore {
	return &FeedSourceStore{db: db}
}

func (s *FeedSourceStore) List(ctx context.Context) ([]*FeedSource, error) {
	return s.list(ctx, false)
}

// ListEnabled returns the sources included in aggregation, in id order.
func (s *FeedSourceStore) ListEnabled(ctx context.Context) ([]*FeedSource, error) {
	return s.list(ctx, true)
}

func (s *FeedSourceStore) list(ctx context.Context, enabledOnly bool) ([]*FeedSource, error) {
	query := `
		SELECT id, name, url, enabled, created_at, updated_at
		FROM feed_sources
	`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]*FeedSource, 0)
	for rows.Next() {
		var f FeedSource
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.Enabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sources, nil
}

func (s *FeedSourceStore) Get(ctx context.Context, id int) (*FeedSource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, enabled, created_at, updated_at
		FROM feed_sources
		WHERE id = ?
	`, id)

	var f FeedSource
	if err := row.Scan(&f.ID, &f.Name, &f.URL, &f.Enabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}

	return &f, nil
}

func (s *FeedSourceStore) Create(ctx context.Context, f *FeedSource) (*FeedSource, error) {
	if f == nil {
		return nil, errors.New("feed source is nil")
	}

	name := strings.TrimSpace(f.Name)
	feedURL := strings.TrimSpace(f.URL)
	if name == "" || feedURL == "" {
		return nil, errors.New("feed source name and url are required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_sources (name, url, enabled)
		VALUES (?, ?, ?)
	`, name, feedURL, f.Enabled)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrFeedSourceExists
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, int(id))
}

func (s *FeedSourceStore) Update(ctx context.Context, f *FeedSource) (*FeedSource, error) {
	if f == nil {
		return nil, errors.New("feed source is nil")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE feed_sources
		SET name = ?, url = ?, enabled = ?
		WHERE id = ?
	`, strings.TrimSpace(f.Name), strings.TrimSpace(f.URL), f.Enabled, f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrFeedSourceExists
		}
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}

	return s.Get(ctx, f.ID)
}

func (s *FeedSourceStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feed_sources WHERE id = ?`, id)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
