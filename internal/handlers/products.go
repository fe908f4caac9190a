// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"autoblog/internal/catalog"
)

const maxSearchLimit = 100

// SearchProducts handles GET /api/products/search?keyword&limit. The
// catalog never fails: upstream problems yield placeholder products with
// fallback set.
func (a *API) SearchProducts(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeInvalid(w, "キーワードを指定してください")
		return
	}
	limit := catalog.DefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeInvalid(w, "limitは1以上の整数で指定してください")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	res := a.Catalog.Search(r.Context(), keyword, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": res.Products,
		"fallback": res.Fallback,
	})
}

// ProductDetails handles GET /api/products/{id}.
func (a *API) ProductDetails(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeInvalid(w, "商品IDを指定してください")
		return
	}
	p, fallback := a.Catalog.Details(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"product":  p,
		"fallback": fallback,
	})
}

// ClearProductCache handles POST /api/products/cache/clear. Without a
// cache there is nothing to drop.
func (a *API) ClearProductCache(w http.ResponseWriter, r *http.Request) {
	if a.ProductCache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "cleared": 0, "cache": false})
		return
	}
	n, err := a.ProductCache.InvalidateAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cleared": n, "cache": true})
}
