// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package license

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Counter stores how many articles were published in the current day and
// month. Implementations decide how "current" is bucketed from now.
type Counter interface {
	Counts(ctx context.Context, now time.Time) (day, month int, err error)
	Increment(ctx context.Context, now time.Time) error
}

// Limit is the answer to an article quota check.
type Limit struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message,omitempty"`
}

// Manager couples a validated license with the article counter. It is
// built once at startup and handed to every component that needs it.
type Manager struct {
	status  Status
	counter Counter
	now     func() time.Time
}

// NewManager creates a manager. A nil counter falls back to an in-memory one.
func NewManager(status Status, counter Counter) *Manager {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	return &Manager{status: status, counter: counter, now: time.Now}
}

// Status returns the license status the manager was built with.
func (m *Manager) Status() Status { return m.status }

// Features returns the tier's feature table.
func (m *Manager) Features() Features { return m.status.Features }

// Has reports whether the license grants f.
func (m *Manager) Has(f Feature) bool { return m.status.Has(f) }

// CheckArticleLimit reports whether n more articles fit under today's and
// this month's ceilings. It never changes the counter; callers call Record
// after a successful publish. Remaining is never negative.
func (m *Manager) CheckArticleLimit(ctx context.Context, n int) (Limit, error) {
	if !m.status.Valid {
		return Limit{Message: "ライセンスが無効です"}, nil
	}
	if n < 1 {
		n = 1
	}

	day, month, err := m.counter.Counts(ctx, m.now())
	if err != nil {
		return Limit{}, fmt.Errorf("license counts: %w", err)
	}

	f := m.status.Features
	remaining := max(f.MaxArticlesPerDay-day, 0)
	monthRemaining := max(f.MaxArticlesPerMonth-month, 0)

	if day+n > f.MaxArticlesPerDay {
		return Limit{
			Remaining: remaining,
			Message:   fmt.Sprintf("1日の投稿制限（%d記事）に達しました", f.MaxArticlesPerDay),
		}, nil
	}
	if month+n > f.MaxArticlesPerMonth {
		return Limit{
			Remaining: min(remaining, monthRemaining),
			Message:   fmt.Sprintf("1ヶ月の投稿制限（%d記事）に達しました", f.MaxArticlesPerMonth),
		}, nil
	}
	return Limit{Allowed: true, Remaining: min(remaining, monthRemaining)}, nil
}

// Record counts one published article.
func (m *Manager) Record(ctx context.Context) error {
	if err := m.counter.Increment(ctx, m.now()); err != nil {
		return fmt.Errorf("license record: %w", err)
	}
	return nil
}

// FeatureError reports a capability the license tier does not grant.
type FeatureError struct {
	Feature Feature
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("この機能（%s）は現在のライセンスでは利用できません", e.Feature)
}

// Require returns a *FeatureError unless the license grants f.
func (m *Manager) Require(f Feature) error {
	if !m.status.Has(f) {
		return &FeatureError{Feature: f}
	}
	return nil
}

// Counts returns today's and this month's totals.
func (m *Manager) Counts(ctx context.Context) (day, month int, err error) {
	return m.counter.Counts(ctx, m.now())
}

// MemoryCounter is a process-local Counter. It resets when the process
// restarts.
type MemoryCounter struct {
	mu       sync.Mutex
	dayKey   string
	monthKey string
	day      int
	month    int
}

// NewMemoryCounter creates an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

// Counts implements Counter.
func (c *MemoryCounter) Counts(_ context.Context, now time.Time) (int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	return c.day, c.month, nil
}

// Increment implements Counter.
func (c *MemoryCounter) Increment(_ context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	c.day++
	c.month++
	return nil
}

// Set overwrites the current buckets.
func (c *MemoryCounter) Set(now time.Time, day, month int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(now)
	c.day, c.month = day, month
}

// Seed restores the buckets from a durable record. countSince reports how
// many articles were published at or after a given instant.
func (c *MemoryCounter) Seed(ctx context.Context, now time.Time, countSince func(ctx context.Context, since time.Time) (int, error)) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	day, err := countSince(ctx, dayStart)
	if err != nil {
		return fmt.Errorf("seed daily count: %w", err)
	}
	month, err := countSince(ctx, monthStart)
	if err != nil {
		return fmt.Errorf("seed monthly count: %w", err)
	}
	c.Set(now, day, month)
	return nil
}

func (c *MemoryCounter) roll(now time.Time) {
	if d := now.Format(time.DateOnly); d != c.dayKey {
		c.dayKey, c.day = d, 0
	}
	if mo := now.Format("2006-01"); mo != c.monthKey {
		c.monthKey, c.month = mo, 0
	}
}
