// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoblog/internal/ai"
	"autoblog/internal/config"
	"autoblog/internal/markdown"
	"autoblog/internal/metrics"
	"autoblog/internal/slug"
	"autoblog/internal/store"
	"autoblog/internal/wordpress"
)

const excerptRunes = 160

// PublishOptions tune a single publish.
type PublishOptions struct {
	SiteID string
	// ScheduledAt publishes the post as scheduled ("future").
	ScheduledAt *time.Time
}

// Site resolves the target site for id. Empty selects the default.
func (s *Service) Site(id string) (config.Site, error) {
	site, ok := s.deps.Sites.Site(id)
	if !ok {
		return config.Site{}, ErrSiteNotFound
	}
	if !site.IsEnabled() {
		return config.Site{}, ErrSiteDisabled
	}
	return site, nil
}

// Publish sends art to a WordPress site, counts it against the license
// and updates its history record.
func (s *Service) Publish(ctx context.Context, art *Article, opts PublishOptions) (wordpress.Result, error) {
	siteID := opts.SiteID
	if siteID == "" {
		siteID = art.SiteID
	}
	site, err := s.Site(siteID)
	if err != nil {
		s.markFailed(ctx, art, err)
		return wordpress.Result{}, err
	}

	content := art.Content
	if art.Format != FormatHTML {
		if content, err = markdown.ToHTML(markdown.StripTitle(art.Content)); err != nil {
			s.markFailed(ctx, art, err)
			return wordpress.Result{}, fmt.Errorf("pipeline publish: %w", err)
		}
	}

	pub := s.deps.Publishers(site)
	res, err := pub.Publish(ctx, wordpress.Post{
		Title:    art.Title,
		Content:  content,
		Excerpt:  ai.Excerpt(markdown.StripTitle(art.Content), excerptRunes),
		Category: art.Category,
		Tags:     art.Tags,
		Slug:     slug.Generate(art.Title),
		Date:     opts.ScheduledAt,
	})
	metrics.ObservePublish(pub.Transport(), err)
	if err != nil {
		s.logger.Warn("publish failed", "site", site.ID, "article", art.ID, "kind", wordpress.KindOf(err), "error", err)
		s.markFailed(ctx, art, err)
		return wordpress.Result{}, err
	}

	if err := s.deps.Limiter.Record(ctx); err != nil {
		s.logger.Warn("license counter update failed", "error", err)
	}
	if err := s.deps.History.MarkPublished(ctx, art.ID, res.PostID, res.URL); err != nil {
		s.logger.Warn("history update failed", "article", art.ID, "error", err)
	}
	if n, err := s.deps.History.Prune(ctx, store.DefaultRetention); err != nil {
		s.logger.Warn("history prune failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("history pruned", "removed", n)
	}

	s.logger.Info("article published", "site", site.ID, "article", art.ID, "post_id", res.PostID, "url", res.URL)
	return res, nil
}

func (s *Service) markFailed(ctx context.Context, art *Article, cause error) {
	if err := s.deps.History.MarkFailed(ctx, art.ID, cause.Error()); err != nil {
		s.logger.Warn("history update failed", "article", art.ID, "error", err)
	}
}

// Outcome is the result of generate-then-maybe-publish. When Article is
// set but PublishErr is not nil the article was generated and kept, and
// only publishing failed.
type Outcome struct {
	Article    *Article
	Post       *wordpress.Result
	PublishErr error
}

// Published reports whether the article reached WordPress.
func (o Outcome) Published() bool {
	return o.Post != nil
}

// GenerateAndPublish runs GenerateArticle and, with autoPost, Publish.
func (s *Service) GenerateAndPublish(ctx context.Context, req ArticleRequest, autoPost bool) (Outcome, error) {
	art, err := s.GenerateArticle(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return s.maybePublish(ctx, art, autoPost), nil
}

// ReviewAndPublish runs GenerateProductReview and, with autoPost, Publish.
func (s *Service) ReviewAndPublish(ctx context.Context, req ReviewRequest, autoPost bool) (Outcome, error) {
	art, err := s.GenerateProductReview(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return s.maybePublish(ctx, art, autoPost), nil
}

func (s *Service) maybePublish(ctx context.Context, art *Article, autoPost bool) Outcome {
	out := Outcome{Article: art}
	if !autoPost {
		return out
	}
	res, err := s.Publish(ctx, art, PublishOptions{SiteID: art.SiteID})
	if err != nil {
		out.PublishErr = err
		return out
	}
	out.Post = &res
	return out
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var ae *ai.Error
	return errors.As(err, &ae) && ae.Kind == ai.KindRateLimit
}
