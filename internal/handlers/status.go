// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"autoblog/internal/license"
	"autoblog/internal/store"
	"autoblog/internal/templates"
)

const (
	defaultHistoryLimit = 20
	archiveLinkTTL      = 15 * time.Minute
)

type siteView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	IsDefault bool   `json:"isDefault"`
	Transport string `json:"transport"`
}

// GetSites handles GET /api/get-sites. Credentials are never returned.
func (a *API) GetSites(w http.ResponseWriter, r *http.Request) {
	sites := a.Config.WordPress.Sites
	views := make([]siteView, 0, len(sites))
	for _, s := range sites {
		transport := s.Transport
		if transport == "" {
			transport = "xmlrpc"
		}
		views = append(views, siteView{
			ID:        s.ID,
			Name:      s.Name,
			URL:       s.URL,
			Enabled:   s.IsEnabled(),
			IsDefault: s.IsDefault,
			Transport: transport,
		})
	}
	maxSites := a.License.Features().MaxSites
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"sites":      views,
		"maxSites":   maxSites,
		"canAddMore": len(sites) < maxSites,
	})
}

// GetStats handles GET /api/get-stats.
func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day, month, err := a.License.Counts(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	history := a.Pipeline.History()
	generated, err := history.CountSince(ctx, startOfDay, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	failed, err := history.CountSince(ctx, startOfDay, store.StatusFailed)
	if err != nil {
		writeError(w, r, err)
		return
	}

	st := a.License.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"todayArticles":  day,
			"monthArticles":  month,
			"todayGenerated": generated,
			"todayFailed":    failed,
			"totalSites":     len(a.Config.WordPress.Sites),
			"licenseType":    st.Type,
			"limits": map[string]int{
				"dailyLimit":   st.Features.MaxArticlesPerDay,
				"monthlyLimit": st.Features.MaxArticlesPerMonth,
				"sitesLimit":   st.Features.MaxSites,
			},
			"running": map[string]bool{
				"article": a.inflight.Busy(keyArticle),
				"review":  a.inflight.Busy(keyReview),
				"batch":   a.inflight.Busy(keyBatch),
			},
		},
	})
}

// GetLicense handles GET /api/license.
func (a *API) GetLicense(w http.ResponseWriter, r *http.Request) {
	st := a.License.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"license": map[string]any{
			"type":     st.Type,
			"email":    st.Email,
			"key":      license.Mask(a.Config.License.Key),
			"features": st.Features,
			"valid":    st.Valid,
		},
	})
}

// TestConnection handles GET /api/test-connection?siteId.
func (a *API) TestConnection(w http.ResponseWriter, r *http.Request) {
	site, err := a.Pipeline.Site(r.URL.Query().Get("siteId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	blogs, err := a.Publishers(site).Ping(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "接続に成功しました",
		"site":    site.Name,
		"url":     site.URL,
		"blogs":   blogs,
	})
}

// Templates handles GET /api/templates.
func (a *API) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"templates": templates.List(),
	})
}

type historyView struct {
	store.Post
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

// History handles GET /api/history?limit. Archived posts carry a short
// lived download link.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeInvalid(w, "limitは1以上の整数で指定してください")
			return
		}
		limit = min(n, store.DefaultRetention)
	}

	posts, err := a.Pipeline.History().Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]historyView, len(posts))
	for i, p := range posts {
		views[i].Post = p
		if a.Archive != nil && p.ArchiveKey != "" {
			if u, err := a.Archive.PresignedURL(r.Context(), p.ArchiveKey, archiveLinkTTL); err == nil {
				views[i].ArchiveURL = u
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": views})
}

// ListProviders handles GET /api/providers.
func (a *API) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"active":    a.Providers.ActiveName(),
		"available": a.Providers.Available(),
	})
}

type providerRequest struct {
	Provider string `json:"provider"`
}

// SetProvider handles POST /api/providers/active. Only providers with an
// API key can be selected.
func (a *API) SetProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err.Error())
		return
	}
	name := strings.TrimSpace(req.Provider)
	if name == "" {
		writeInvalid(w, "providerを指定してください")
		return
	}
	if !a.Providers.HasProvider(name) {
		writeInvalid(w, "AIプロバイダー「"+name+"」は利用できません（APIキー未設定）")
		return
	}
	prev := a.Providers.ActiveName()
	if err := a.Providers.SetActive(name); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("ai provider switched", "from", prev, "to", name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"active":    name,
		"available": a.Providers.Available(),
	})
}

// Schedule handles GET /api/schedule.
func (a *API) Schedule(w http.ResponseWriter, r *http.Request) {
	if a.Scheduler == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": false})
		return
	}
	st := a.Scheduler.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"enabled": st.Enabled,
		"spec":    st.Spec,
		"next":    st.Next,
	})
}

// ToggleSchedule handles POST /api/schedule/toggle.
func (a *API) ToggleSchedule(w http.ResponseWriter, r *http.Request) {
	if a.Scheduler == nil {
		writeError(w, r, &license.FeatureError{Feature: license.FeatureAutoSchedule})
		return
	}
	st, err := a.Scheduler.Toggle()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"enabled": st.Enabled,
		"spec":    st.Spec,
		"next":    st.Next,
	})
}

// HealthCheck handles GET /api/health-check.
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	hasSite := false
	for _, s := range a.Config.WordPress.Sites {
		if s.IsEnabled() {
			hasSite = true
			break
		}
	}
	checks := map[string]bool{
		"license":   a.License.Status().Valid,
		"config":    len(a.Config.Validate()) == 0,
		"openai":    a.Providers.HasProvider(a.Providers.ActiveName()),
		"wordpress": hasSite,
	}
	healthy := true
	for _, ok := range checks {
		healthy = healthy && ok
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"healthy": healthy,
		"checks":  checks,
		"version": a.Version,
	})
}
