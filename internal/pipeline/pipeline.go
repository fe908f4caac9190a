// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pipeline turns generation requests into published posts: it
// checks the license limit, prompts the AI provider, attaches affiliate
// products, archives the result, publishes it and records history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"autoblog/internal/ai"
	"autoblog/internal/catalog"
	"autoblog/internal/config"
	"autoblog/internal/license"
	"autoblog/internal/render"
	"autoblog/internal/storage"
	"autoblog/internal/store"
	"autoblog/internal/wordpress"
)

// Generator produces completions. *ai.Registry satisfies it.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (ai.Completion, error)
	ActiveName() string
}

// Catalog searches affiliate products. *catalog.Client satisfies it.
type Catalog interface {
	Search(ctx context.Context, keyword string, limit int) catalog.Result
}

// Limiter enforces the license article ceilings. *license.Manager
// satisfies it.
type Limiter interface {
	CheckArticleLimit(ctx context.Context, n int) (license.Limit, error)
	Record(ctx context.Context) error
}

// Sites resolves publishing targets. *config.File satisfies it.
type Sites interface {
	Site(id string) (config.Site, bool)
}

// Archive stores generated articles. *storage.Client satisfies it.
type Archive interface {
	Save(ctx context.Context, d storage.Document) (string, error)
}

// PublisherFactory builds the publisher for a site.
type PublisherFactory func(site config.Site) wordpress.Publisher

// Deps are the collaborators of a Service. Catalog and Archive are
// optional; CTA is skipped when not enabled.
type Deps struct {
	Generator  Generator
	Catalog    Catalog
	Limiter    Limiter
	Sites      Sites
	History    store.History
	Archive    Archive
	Renderer   *render.Renderer
	Publishers PublisherFactory
	CTA        render.CTA
}

// Options tune a Service.
type Options struct {
	// BatchDelay is the pause between batch items.
	BatchDelay time.Duration
	// RetryInterval is the first backoff step after a rate limit.
	RetryInterval time.Duration
	// RetryAttempts is the total number of tries on rate limits.
	RetryAttempts int
	// Now returns the current time; tests pin it.
	Now func() time.Time
}

// Service runs generation and publishing.
type Service struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New creates a Service. Publishers defaults to wordpress.New with the
// default timeout.
func New(deps Deps, opts Options) *Service {
	if deps.Publishers == nil {
		deps.Publishers = func(site config.Site) wordpress.Publisher {
			return wordpress.New(site, wordpress.DefaultTimeout)
		}
	}
	if deps.History == nil {
		deps.History = store.NewMemoryHistory()
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 2 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		deps:   deps,
		opts:   opts,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// History exposes the history store.
func (s *Service) History() store.History { return s.deps.History }

// ValidationError is a request the caller must fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LimitError reports an exhausted license quota.
type LimitError struct {
	Limit license.Limit
}

func (e *LimitError) Error() string { return e.Limit.Message }

var (
	// ErrSiteNotFound is returned when no configured site matches.
	ErrSiteNotFound = errors.New("WordPressサイトが見つかりません")
	// ErrSiteDisabled is returned for sites switched off in the config.
	ErrSiteDisabled = errors.New("WordPressサイトが無効化されています")
	// ErrInProgress rejects concurrent requests to the same endpoint.
	ErrInProgress = errors.New("generation already in progress")
)

// addCTA splices the configured call-to-action into art.
func (s *Service) addCTA(art *Article) error {
	if s.deps.Renderer == nil || !s.deps.CTA.Enabled() {
		return nil
	}
	content, err := s.deps.Renderer.SpliceCTA(art.Content, s.deps.CTA)
	if err != nil {
		return fmt.Errorf("pipeline cta: %w", err)
	}
	art.Content = content
	return nil
}

// checkLimit returns a *LimitError when n more articles do not fit.
func (s *Service) checkLimit(ctx context.Context, n int) (license.Limit, error) {
	limit, err := s.deps.Limiter.CheckArticleLimit(ctx, n)
	if err != nil {
		return limit, err
	}
	if !limit.Allowed {
		return limit, &LimitError{Limit: limit}
	}
	return limit, nil
}
