// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog searches the DMM affiliate catalog. Lookups never fail:
// any upstream problem yields placeholder products flagged as a fallback.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"autoblog/internal/metrics"
)

const (
	// DefaultBaseURL is the DMM ItemList v3 endpoint.
	DefaultBaseURL = "https://api.dmm.com/affiliate/v3/ItemList"
	DefaultTimeout = 10 * time.Second
	DefaultLimit   = 10
	// maxHits is the upper bound the ItemList API accepts.
	maxHits = 100
)

// Cache stores decoded results. *cache.Results satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, v any)
}

// Config configures a Client.
type Config struct {
	APIID       string
	AffiliateID string
	BaseURL     string
	// Site, Service and Floor narrow the search when set.
	Site    string
	Service string
	Floor   string
	Timeout time.Duration
}

// Result is the outcome of a search.
type Result struct {
	Products []Product `json:"products"`
	// Fallback is true when Products are placeholders.
	Fallback bool `json:"fallback"`
}

// Client talks to the DMM ItemList API.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  Cache
	logger *slog.Logger
}

// NewClient creates a catalog client. cache may be nil.
func NewClient(cfg Config, cache Cache) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		cache:  cache,
		logger: slog.Default().With("component", "catalog"),
	}
}

// Configured reports whether real lookups can be made.
func (c *Client) Configured() bool {
	return c.cfg.APIID != ""
}

// Search returns up to limit products ranked by popularity.
func (c *Client) Search(ctx context.Context, keyword string, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, maxHits)

	if !c.Configured() {
		c.logger.Debug("catalog not configured, using placeholders")
		return c.fallback(Placeholders(keyword))
	}

	key := "search:" + keyword + ":" + strconv.Itoa(limit)
	if c.cache != nil {
		var cached []Product
		if c.cache.Get(ctx, key, &cached) {
			return Result{Products: cached}
		}
	}

	q := c.baseQuery()
	q.Set("keyword", keyword)
	q.Set("hits", strconv.Itoa(limit))
	q.Set("sort", "rank")
	for k, v := range map[string]string{"site": c.cfg.Site, "service": c.cfg.Service, "floor": c.cfg.Floor} {
		if v != "" {
			q.Set(k, v)
		}
	}

	products, err := c.itemList(ctx, "search", q)
	if err != nil {
		c.logger.Warn("catalog search failed", "keyword", keyword, "error", err)
		return c.fallback(Placeholders(keyword))
	}
	if len(products) == 0 {
		c.logger.Info("catalog search returned no items", "keyword", keyword)
		return c.fallback(Placeholders(keyword))
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, products)
	}
	return Result{Products: products}
}

// Details returns one product by content id. The second result is true
// when the product is a placeholder.
func (c *Client) Details(ctx context.Context, contentID string) (Product, bool) {
	if !c.Configured() {
		metrics.CatalogFallbacks.Inc()
		return PlaceholderDetails(contentID), true
	}

	key := "item:" + contentID
	if c.cache != nil {
		var cached Product
		if c.cache.Get(ctx, key, &cached) {
			return cached, false
		}
	}

	q := c.baseQuery()
	q.Set("cid", contentID)

	products, err := c.itemList(ctx, "details", q)
	if err != nil || len(products) == 0 {
		if err != nil {
			c.logger.Warn("catalog details failed", "content_id", contentID, "error", err)
		}
		metrics.CatalogFallbacks.Inc()
		return PlaceholderDetails(contentID), true
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, products[0])
	}
	return products[0], false
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("api_id", c.cfg.APIID)
	q.Set("affiliate_id", c.cfg.AffiliateID)
	q.Set("output", "json")
	return q
}

func (c *Client) fallback(products []Product) Result {
	metrics.CatalogFallbacks.Inc()
	return Result{Products: products, Fallback: true}
}

// itemList calls the ItemList endpoint and normalizes result.items.
func (c *Client) itemList(ctx context.Context, op string, q url.Values) (_ []Product, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("catalog", op, "dmm", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog %s: status %d", op, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("catalog %s: invalid JSON response", op)
	}

	items := gjson.GetBytes(body, "result.items")
	var products []Product
	items.ForEach(func(_, item gjson.Result) bool {
		if raw, ok := item.Value().(map[string]any); ok {
			products = append(products, Normalize(raw))
		}
		return true
	})
	return products, nil
}

// Placeholders returns the stand-in products used when the catalog is
// unavailable.
func Placeholders(keyword string) []Product {
	if keyword == "" {
		keyword = "test"
	}
	return []Product{
		{
			ContentID:    "dummy-001",
			Title:        keyword + "関連商品1",
			Description:  keyword + "に関連する商品の説明文です。優れた品質と機能性を兼ね備えています。",
			Price:        "1,980円",
			ImageURL:     "https://via.placeholder.com/300x400",
			AffiliateURL: "#",
			Category:     "テストカテゴリ",
			Maker:        "テストメーカー",
			Rating:       4.5,
		},
		{
			ContentID:    "dummy-002",
			Title:        keyword + "関連商品2",
			Description:  keyword + "の別の商品説明です。コストパフォーマンスに優れた人気商品。",
			Price:        "2,980円",
			ImageURL:     "https://via.placeholder.com/300x400",
			AffiliateURL: "#",
			Category:     "テストカテゴリ",
			Maker:        "テストメーカー",
			Rating:       4.2,
		},
	}
}

// PlaceholderDetails returns the stand-in for a single product lookup.
func PlaceholderDetails(contentID string) Product {
	return Product{
		ContentID:    contentID,
		Title:        "テスト商品 " + contentID,
		Description:  "優れた品質と機能性を兼ね備えた商品です。",
		Price:        "2,980円",
		ImageURL:     "https://via.placeholder.com/500x500",
		AffiliateURL: "#",
		Category:     "テストカテゴリ",
		Maker:        "テストメーカー",
		Rating:       4.3,
	}
}
