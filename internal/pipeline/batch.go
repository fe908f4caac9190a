// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxBatch is the largest batch a single request may ask for.
const MaxBatch = 20

// BatchRequest asks for Count published articles.
type BatchRequest struct {
	Count int
	// Categories are used round-robin. Empty means all categories.
	Categories []string
	SiteID     string
}

// BatchItem is the result of one batch slot.
type BatchItem struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
	Success  bool   `json:"success"`
	Title    string `json:"title,omitempty"`
	PostID   string `json:"postId,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
	// Err is the failure behind Error.
	Err error `json:"-"`
}

// BatchResult summarizes a batch.
type BatchResult struct {
	Generated int         `json:"generated"`
	Failed    int         `json:"failed"`
	Results   []BatchItem `json:"results"`
}

// FirstError returns the first item failure, or nil.
func (r BatchResult) FirstError() error {
	for _, item := range r.Results {
		if item.Err != nil {
			return item.Err
		}
	}
	return nil
}

// ValidateBatch checks a batch request before any work starts.
func ValidateBatch(req BatchRequest) error {
	if req.Count < 1 || req.Count > MaxBatch {
		return invalid("生成数は1〜%dの範囲で指定してください", MaxBatch)
	}
	return nil
}

// Batch generates and publishes req.Count articles one after another.
// Items are independent: a failure is recorded and the batch moves on.
// Rate-limited generations are retried with exponential backoff.
// Cancelling ctx stops the batch between items.
func (s *Service) Batch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := ValidateBatch(req); err != nil {
		return BatchResult{}, err
	}
	if _, err := s.checkLimit(ctx, req.Count); err != nil {
		return BatchResult{}, err
	}
	categories := req.Categories
	if len(categories) == 0 {
		categories = Categories
	}

	var result BatchResult
	for i := range req.Count {
		if i > 0 {
			if err := sleep(ctx, s.opts.BatchDelay); err != nil {
				return result, err
			}
		}

		category := categories[i%len(categories)]
		item := BatchItem{Index: i, Category: category}

		art, err := s.generateWithRetry(ctx, ArticleRequest{Category: category, SiteID: req.SiteID})
		if err != nil {
			item.Error, item.Err = err.Error(), err
			result.Failed++
			result.Results = append(result.Results, item)
			continue
		}
		item.Title = art.Title

		res, err := s.Publish(ctx, art, PublishOptions{SiteID: req.SiteID})
		if err != nil {
			item.Error, item.Err = err.Error(), err
			result.Failed++
		} else {
			item.Success = true
			item.PostID = res.PostID
			item.URL = res.URL
			result.Generated++
		}
		result.Results = append(result.Results, item)
	}

	s.logger.Info("batch finished", "requested", req.Count, "published", result.Generated, "failed", result.Failed)
	return result, nil
}

func (s *Service) generateWithRetry(ctx context.Context, req ArticleRequest) (*Article, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.opts.RetryAttempts-1)), ctx)

	var art *Article
	op := func() error {
		var err error
		art, err = s.GenerateArticle(ctx, req)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Info("rate limited, retrying", "category", req.Category, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return art, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
