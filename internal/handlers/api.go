// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API handlers of the autoblog server.
// Handlers receive their dependencies through the API struct.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"autoblog/internal/ai"
	"autoblog/internal/catalog"
	"autoblog/internal/config"
	"autoblog/internal/license"
	"autoblog/internal/pipeline"
	"autoblog/internal/scheduler"
	"autoblog/internal/wordpress"
)

// ProductCatalog looks up affiliate products. *catalog.Client satisfies it.
type ProductCatalog interface {
	Search(ctx context.Context, keyword string, limit int) catalog.Result
	Details(ctx context.Context, contentID string) (catalog.Product, bool)
}

// Presigner issues temporary archive links. *storage.Client satisfies it.
type Presigner interface {
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Providers reports and switches the AI provider. *ai.Registry satisfies
// it.
type Providers interface {
	ActiveName() string
	Available() []string
	HasProvider(name string) bool
	SetActive(name string) error
}

// CacheClearer drops cached catalog results. *cache.Results satisfies it.
type CacheClearer interface {
	InvalidateAll(ctx context.Context) (int, error)
}

// Deps are the collaborators of the API. Archive, ProductCache and
// Scheduler are optional.
type Deps struct {
	Pipeline     *pipeline.Service
	Catalog      ProductCatalog
	ProductCache CacheClearer
	License      *license.Manager
	Config       *config.File
	Providers    Providers
	Archive      Presigner
	Scheduler    *scheduler.Scheduler
	Publishers   pipeline.PublisherFactory
	Version      string
	// BaseContext bounds detached batches. The server cancels it on
	// shutdown; nil means context.Background.
	BaseContext context.Context
}

// API groups the JSON endpoints and their dependencies.
type API struct {
	Deps
	inflight *pipeline.InFlight
	// bg tracks detached batch runs.
	bg sync.WaitGroup
}

// NewAPI creates the handler group.
func NewAPI(deps Deps) *API {
	if deps.Publishers == nil {
		deps.Publishers = func(site config.Site) wordpress.Publisher {
			return wordpress.New(site, wordpress.DefaultTimeout)
		}
	}
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	return &API{
		Deps:     deps,
		inflight: pipeline.NewInFlight(),
	}
}

// Wait blocks until detached batches finish or ctx ends.
func (a *API) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

// writeError maps err onto a status code and writes the failure body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var le *pipeline.LimitError
	if errors.As(err, &le) {
		remaining := le.Limit.Remaining
		body.Remaining = &remaining
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// writeInvalid writes a 400 with msg.
func writeInvalid(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// statusFor classifies an error for the HTTP boundary.
func statusFor(err error) int {
	var (
		ve  *pipeline.ValidationError
		le  *pipeline.LimitError
		fe  *license.FeatureError
		aie *ai.Error
		wpe *wordpress.Error
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &le), errors.Is(err, pipeline.ErrInProgress):
		return http.StatusTooManyRequests
	case errors.As(err, &fe), errors.Is(err, pipeline.ErrSiteDisabled):
		return http.StatusForbidden
	case errors.Is(err, pipeline.ErrSiteNotFound):
		return http.StatusNotFound
	case errors.As(err, &aie):
		switch aie.Kind {
		case ai.KindAuth:
			return http.StatusUnauthorized
		case ai.KindRateLimit:
			return http.StatusTooManyRequests
		case ai.KindQuota:
			return http.StatusPaymentRequired
		case ai.KindTimeout:
			return http.StatusGatewayTimeout
		}
	case errors.As(err, &wpe):
		switch wpe.Kind {
		case wordpress.KindAuth:
			return http.StatusUnauthorized
		case wordpress.KindPermission:
			return http.StatusForbidden
		case wordpress.KindNotFound:
			return http.StatusNotFound
		case wordpress.KindTimeout:
			return http.StatusGatewayTimeout
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("リクエストボディが空です")
		}
		return fmt.Errorf("不正なJSONです: %w", err)
	}
	return nil
}

// remainingToday reports how many articles still fit today, or nil when
// the counter is unavailable.
func (a *API) remainingToday(ctx context.Context) *int {
	limit, err := a.License.CheckArticleLimit(ctx, 1)
	if err != nil {
		return nil
	}
	return &limit.Remaining
}
