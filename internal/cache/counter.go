// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ArticleCounter keeps per-day and per-month published article totals in
// Valkey. Day keys expire a day after the bucket ends, month keys a month
// after, so the keyspace stays bounded.
type ArticleCounter struct {
	client *redis.Client
}

// NewArticleCounter creates a counter backed by client.
func NewArticleCounter(client *redis.Client) *ArticleCounter {
	return &ArticleCounter{client: client}
}

func dayKey(now time.Time) string   { return keyPrefix + "articles:day:" + now.Format(time.DateOnly) }
func monthKey(now time.Time) string { return keyPrefix + "articles:month:" + now.Format("2006-01") }

// Counts returns the totals for the day and month containing now.
func (c *ArticleCounter) Counts(ctx context.Context, now time.Time) (int, int, error) {
	pipe := c.client.Pipeline()
	day := pipe.Get(ctx, dayKey(now))
	month := pipe.Get(ctx, monthKey(now))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("counter read: %w", err)
	}
	return intOrZero(day), intOrZero(month), nil
}

// Increment adds one article to the current day and month.
func (c *ArticleCounter) Increment(ctx context.Context, now time.Time) error {
	y, m, d := now.Date()
	dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	monthEnd := time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, dayKey(now))
		pipe.ExpireAt(ctx, dayKey(now), dayEnd.Add(24*time.Hour))
		pipe.Incr(ctx, monthKey(now))
		pipe.ExpireAt(ctx, monthKey(now), monthEnd.AddDate(0, 1, 0))
		return nil
	})
	if err != nil {
		return fmt.Errorf("counter increment: %w", err)
	}
	return nil
}

func intOrZero(cmd *redis.StringCmd) int {
	n, err := cmd.Int()
	if err != nil {
		return 0
	}
	return n
}
