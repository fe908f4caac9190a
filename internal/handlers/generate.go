// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"autoblog/internal/catalog"
	"autoblog/internal/pipeline"
	"autoblog/internal/render"
	"autoblog/internal/wordpress"
)

// In-flight keys, one per generating endpoint.
const (
	keyArticle = "generate-article"
	keyReview  = "generate-product-review"
	keyBatch   = "batch-generate"
)

type generateArticleRequest struct {
	Category     string `json:"category"`
	Keyword      string `json:"keyword"`
	Theme        string `json:"theme"`
	Template     string `json:"template"`
	SiteID       string `json:"siteId"`
	AutoPost     bool   `json:"autoPost"`
	WithProducts bool   `json:"withProducts"`
}

type articleView struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Format       string   `json:"format"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags"`
	Template     string   `json:"template,omitempty"`
	WordCount    int      `json:"wordCount"`
	ProductCount int      `json:"productCount,omitempty"`
}

type postView struct {
	PostID string `json:"postId"`
	URL    string `json:"url"`
}

type generateResponse struct {
	Success        bool        `json:"success"`
	Error          string      `json:"error,omitempty"`
	Article        articleView `json:"article"`
	Post           *postView   `json:"post,omitempty"`
	RemainingToday *int        `json:"remainingToday,omitempty"`
}

func newArticleView(art *pipeline.Article) articleView {
	return articleView{
		ID:           art.ID.String(),
		Title:        art.Title,
		Content:      art.Content,
		Format:       art.Format,
		Category:     art.Category,
		Tags:         art.Tags,
		Template:     art.Template,
		WordCount:    art.WordCount,
		ProductCount: len(art.Products),
	}
}

// GenerateArticle handles POST /api/generate-article.
func (a *API) GenerateArticle(w http.ResponseWriter, r *http.Request) {
	var req generateArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err.Error())
		return
	}
	if msg := validateArticle(req); msg != "" {
		writeInvalid(w, msg)
		return
	}

	release, err := a.inflight.Acquire(keyArticle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer release()

	out, err := a.Pipeline.GenerateAndPublish(r.Context(), pipeline.ArticleRequest{
		Category:     strings.TrimSpace(req.Category),
		Keyword:      strings.TrimSpace(req.Keyword),
		Theme:        strings.TrimSpace(req.Theme),
		Template:     req.Template,
		WithProducts: req.WithProducts,
		SiteID:       req.SiteID,
	}, req.AutoPost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeOutcome(w, r, out)
}

type reviewRequest struct {
	Products []catalog.Product `json:"products"`
	Keyword  string            `json:"keyword"`
	SiteID   string            `json:"siteId"`
	AutoPost bool              `json:"autoPost"`
	Position string            `json:"position"`
}

// GenerateProductReview handles POST /api/generate-product-review.
func (a *API) GenerateProductReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err.Error())
		return
	}
	if msg := validateReview(req); msg != "" {
		writeInvalid(w, msg)
		return
	}

	release, err := a.inflight.Acquire(keyReview)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer release()

	out, err := a.Pipeline.ReviewAndPublish(r.Context(), pipeline.ReviewRequest{
		Products: req.Products,
		Keyword:  req.Keyword,
		Position: render.ParsePosition(req.Position),
		SiteID:   req.SiteID,
	}, req.AutoPost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeOutcome(w, r, out)
}

// writeOutcome answers a generation. A failed publish keeps the article in
// the body next to the error, with the status of the publish failure.
func (a *API) writeOutcome(w http.ResponseWriter, r *http.Request, out pipeline.Outcome) {
	resp := generateResponse{
		Success:        out.PublishErr == nil,
		Article:        newArticleView(out.Article),
		RemainingToday: a.remainingToday(r.Context()),
	}
	if out.Post != nil {
		resp.Post = &postView{PostID: out.Post.PostID, URL: out.Post.URL}
	}

	status := http.StatusOK
	if out.PublishErr != nil {
		status = statusFor(out.PublishErr)
		resp.Error = out.PublishErr.Error()
		slog.Warn("article kept after publish failure",
			"article", out.Article.ID,
			"status", status,
			"kind", wordpress.KindOf(out.PublishErr),
			"error", out.PublishErr,
		)
	}
	writeJSON(w, status, resp)
}

type batchRequest struct {
	Count      int      `json:"count"`
	Categories []string `json:"categories"`
	SiteID     string   `json:"siteId"`
	Async      bool     `json:"async"`
}

type batchResponse struct {
	Success   bool                 `json:"success"`
	Error     string               `json:"error,omitempty"`
	Accepted  bool                 `json:"accepted,omitempty"`
	Generated int                  `json:"generated"`
	Failed    int                  `json:"failed"`
	Results   []pipeline.BatchItem `json:"results"`
}

// BatchGenerate handles POST /api/batch-generate. With async the batch
// runs detached and the response is 202; results land in the history.
func (a *API) BatchGenerate(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err.Error())
		return
	}
	if msg := validateBatch(req); msg != "" {
		writeInvalid(w, msg)
		return
	}

	release, err := a.inflight.Acquire(keyBatch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	breq := pipeline.BatchRequest{Count: req.Count, Categories: req.Categories, SiteID: req.SiteID}

	if !req.Async {
		defer release()
		res, err := a.Pipeline.Batch(r.Context(), breq)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := batchResponse{Success: true, Generated: res.Generated, Failed: res.Failed, Results: res.Results}
		if res.Generated == 0 {
			// Nothing was published: answer with the first item's failure.
			first := res.FirstError()
			if first == nil {
				first = errors.New("batch produced no articles")
			}
			resp.Success, resp.Error = false, first.Error()
			writeJSON(w, statusFor(first), resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	limit, err := a.License.CheckArticleLimit(r.Context(), req.Count)
	if err != nil {
		release()
		writeError(w, r, err)
		return
	}
	if !limit.Allowed {
		release()
		writeError(w, r, &pipeline.LimitError{Limit: limit})
		return
	}

	// The run outlives the request but not the server.
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		defer release()
		res, err := a.Pipeline.Batch(a.BaseContext, breq)
		if err != nil {
			slog.Error("background batch failed", "error", err)
			return
		}
		slog.Info("background batch finished", "requested", req.Count, "published", res.Generated, "failed", res.Failed)
	}()
	writeJSON(w, http.StatusAccepted, batchResponse{Success: true, Accepted: true, Results: []pipeline.BatchItem{}})
}
