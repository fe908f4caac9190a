// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// history.go records every generation attempt and its publish outcome.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how many history records are kept.
const DefaultRetention = 100

// Status is the lifecycle state of a history record.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Post is one history record.
type Post struct {
	ID         uuid.UUID `json:"id"`
	SiteID     string    `json:"siteId"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Template   string    `json:"template"`
	Status     Status    `json:"status"`
	PostID     string    `json:"postId,omitempty"`
	URL        string    `json:"url,omitempty"`
	Error      string    `json:"error,omitempty"`
	WordCount  int       `json:"wordCount"`
	ArchiveKey string    `json:"archiveKey,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// History persists generation records.
type History interface {
	Create(ctx context.Context, p *Post) error
	MarkPublished(ctx context.Context, id uuid.UUID, postID, url string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Recent(ctx context.Context, limit int) ([]Post, error)
	CountSince(ctx context.Context, since time.Time, status Status) (int, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// HistoryStore is the PostgreSQL History.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Create inserts p as a draft, filling ID and timestamps. A draft stays
// a draft until the article is published or the publish fails.
func (s *HistoryStore) Create(ctx context.Context, p *Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = StatusDraft

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO post_history (id, site_id, title, category, template, status, word_count, archive_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.SiteID, p.Title, p.Category, p.Template, p.Status, p.WordCount, p.ArchiveKey,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// MarkPublished records a successful publish.
func (s *HistoryStore) MarkPublished(ctx context.Context, id uuid.UUID, postID, url string) error {
	return s.update(ctx, `
		UPDATE post_history SET status = $2, post_id = $3, url = $4, error = '', updated_at = now()
		WHERE id = $1
	`, id, StatusPublished, postID, url)
}

// MarkFailed records a failed publish.
func (s *HistoryStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.update(ctx, `
		UPDATE post_history SET status = $2, error = $3, updated_at = now()
		WHERE id = $1
	`, id, StatusFailed, reason)
}

func (s *HistoryStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update history: %w", sql.ErrNoRows)
	}
	return nil
}

// Recent returns the newest records first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, title, category, template, status, post_id, url, error,
		       word_count, archive_key, created_at, updated_at
		FROM post_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.SiteID, &p.Title, &p.Category, &p.Template, &p.Status,
			&p.PostID, &p.URL, &p.Error, &p.WordCount, &p.ArchiveKey, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountSince counts records created at or after since. An empty status
// counts every record.
func (s *HistoryStore) CountSince(ctx context.Context, since time.Time, status Status) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post_history
		WHERE created_at >= $1 AND ($2 = '' OR status = $2)
	`, since, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Prune deletes everything but the newest keep records.
func (s *HistoryStore) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM post_history
		WHERE id NOT IN (
			SELECT id FROM post_history ORDER BY created_at DESC LIMIT $1
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}
