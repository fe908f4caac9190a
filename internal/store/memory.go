// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryHistory is a History kept in process memory, used when no
// database is configured. Records are lost on restart.
type MemoryHistory struct {
	mu    sync.Mutex
	posts []Post // oldest first
	now   func() time.Time
}

// NewMemoryHistory creates an empty MemoryHistory.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{now: time.Now}
}

func (m *MemoryHistory) Create(_ context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = StatusDraft
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.posts = append(m.posts, *p)
	return nil
}

func (m *MemoryHistory) MarkPublished(_ context.Context, id uuid.UUID, postID, url string) error {
	return m.update(id, func(p *Post) {
		p.Status = StatusPublished
		p.PostID = postID
		p.URL = url
		p.Error = ""
	})
}

func (m *MemoryHistory) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	return m.update(id, func(p *Post) {
		p.Status = StatusFailed
		p.Error = reason
	})
}

func (m *MemoryHistory) update(id uuid.UUID, fn func(*Post)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			fn(&m.posts[i])
			m.posts[i].UpdatedAt = m.now()
			return nil
		}
	}
	return fmt.Errorf("update history: %w", sql.ErrNoRows)
}

func (m *MemoryHistory) Recent(_ context.Context, limit int) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.posts)
	slices.Reverse(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryHistory) CountSince(_ context.Context, since time.Time, status Status) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.posts {
		if !p.CreatedAt.Before(since) && (status == "" || p.Status == status) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryHistory) Prune(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	drop := len(m.posts) - keep
	if drop <= 0 {
		return 0, nil
	}
	m.posts = slices.Clone(m.posts[drop:])
	return int64(drop), nil
}
