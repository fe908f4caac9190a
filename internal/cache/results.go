// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultResultTTL is how long a cached upstream result stays valid.
const DefaultResultTTL = 10 * time.Minute

// Results caches JSON-encodable upstream responses under a namespace.
// Get and Set log their failures and treat them as a miss.
type Results struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewResults creates a result cache. A zero ttl uses DefaultResultTTL.
func NewResults(client *redis.Client, namespace string, ttl time.Duration) *Results {
	if ttl == 0 {
		ttl = DefaultResultTTL
	}
	return &Results{client: client, namespace: namespace, ttl: ttl}
}

func (r *Results) key(k string) string {
	return keyPrefix + r.namespace + ":" + k
}

// Get decodes the cached value for k into dst and reports a hit.
func (r *Results) Get(ctx context.Context, k string, dst any) bool {
	val, err := r.client.Get(ctx, r.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("result cache get error", "key", k, "error", err)
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		slog.Warn("result cache decode error", "key", k, "error", err)
		return false
	}
	slog.Debug("result cache hit", "namespace", r.namespace, "key", k)
	return true
}

// Set stores v under k with the configured TTL.
func (r *Results) Set(ctx context.Context, k string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("result cache encode error", "key", k, "error", err)
		return
	}
	if err := r.client.Set(ctx, r.key(k), data, r.ttl).Err(); err != nil {
		slog.Warn("result cache set error", "key", k, "error", err)
	}
}

// InvalidateAll removes every entry in the namespace by scanning for its
// prefix, and returns how many were deleted.
func (r *Results) InvalidateAll(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key("*"), 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("result cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("result cache delete: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Info("result cache cleared", "namespace", r.namespace, "deleted", deleted)
	return deleted, nil
}
