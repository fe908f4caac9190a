// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autoblog/internal/ai"
	"autoblog/internal/catalog"
	"autoblog/internal/markdown"
	"autoblog/internal/metrics"
	"autoblog/internal/render"
	"autoblog/internal/storage"
	"autoblog/internal/store"
	"autoblog/internal/templates"
)

// Content formats of an Article body.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

const (
	articleTemperature  = 0.7
	articleMaxTokens    = 3000
	reviewMaxTokens     = 4000
	adProductLimit      = 3
	reviewGalleryTitle  = "この記事で紹介した商品"
	reviewCategory      = "レビュー"
	freeformTemplateKey = "category"
)

// ArticleRequest asks for one category or theme article.
type ArticleRequest struct {
	Category string
	Keyword  string
	Theme    string
	// Template forces a catalog template; empty lets Suggest pick.
	Template     string
	WithProducts bool
	SiteID       string
}

// ReviewRequest asks for a product review article.
type ReviewRequest struct {
	Products []catalog.Product
	Keyword  string
	Position render.Position
	SiteID   string
}

// Article is a generated post before publishing.
type Article struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Format     string            `json:"format"`
	Category   string            `json:"category"`
	Tags       []string          `json:"tags"`
	Template   string            `json:"template"`
	WordCount  int               `json:"wordCount"`
	Products   []catalog.Product `json:"products,omitempty"`
	TokensUsed int64             `json:"tokensUsed"`
	ArchiveKey string            `json:"archiveKey,omitempty"`
	SiteID     string            `json:"-"`
}

// GenerateArticle writes an article for a category, theme and keywords.
// With a theme or an explicit template the structured catalog prompt is
// used; a bare category gets the short free-form prompt.
func (s *Service) GenerateArticle(ctx context.Context, req ArticleRequest) (*Article, error) {
	if req.Category == "" && req.Keyword == "" && req.Theme == "" {
		return nil, invalid("カテゴリまたはキーワードを指定してください")
	}
	if req.Template != "" && !templates.Exists(req.Template) {
		return nil, invalid("不明なテンプレートです: %s", req.Template)
	}
	if _, err := s.checkLimit(ctx, 1); err != nil {
		return nil, err
	}

	keywords := req.Keyword
	if keywords == "" {
		keywords = DefaultKeyword(req.Category)
	}
	primary := templates.SplitKeywords(keywords)[0]

	var (
		genReq   ai.Request
		tmplKey  string
		fallback string
	)
	if req.Theme != "" || req.Template != "" {
		theme := req.Theme
		if theme == "" {
			theme = primary
		}
		tmplKey = req.Template
		if tmplKey == "" {
			tmplKey = templates.Suggest(theme, keywords)
		}
		tmpl, _ := templates.Get(tmplKey)
		genReq = ai.Request{
			System: ai.SystemTemplateWriter,
			Prompt: templates.BuildPrompt(tmpl, theme, keywords),
		}
		fallback = theme
	} else {
		tmplKey = freeformTemplateKey
		genReq = ai.Request{
			System: ai.SystemBlogWriter,
			Prompt: templates.BuildCategoryPrompt(req.Category, primary, ""),
		}
		fallback = primary + "の最新情報"
	}
	genReq.Temperature = articleTemperature
	genReq.MaxTokens = articleMaxTokens

	comp, err := s.generate(ctx, genReq)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	category := req.Category
	if category == "" {
		category = tmplKey
	}
	art := &Article{
		ID:         uuid.New(),
		Title:      ai.ExtractTitle(comp.Text, fallback),
		Content:    comp.Text,
		Format:     FormatMarkdown,
		Category:   category,
		Tags:       articleTags(primary, req.Category, now),
		Template:   tmplKey,
		TokensUsed: comp.TokensUsed,
		SiteID:     req.SiteID,
	}

	if (req.WithProducts || tmplKey == templates.AdultReview) && s.deps.Catalog != nil {
		res := s.deps.Catalog.Search(ctx, primary, adProductLimit)
		if !res.Fallback && len(res.Products) > 0 {
			art.Products = res.Products
			art.Content += render.RenderAdMarkdown(res.Products, tmplKey == templates.AdultReview)
		}
	}

	art.WordCount = ai.EstimateCharCount(art.Content)
	if err := s.addCTA(art); err != nil {
		return nil, err
	}
	s.finish(ctx, art, now)
	return art, nil
}

// GenerateProductReview writes a review of products and splices the
// product gallery into it.
func (s *Service) GenerateProductReview(ctx context.Context, req ReviewRequest) (*Article, error) {
	if len(req.Products) == 0 {
		return nil, invalid("商品を1つ以上選択してください")
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		return nil, invalid("キーワードを指定してください")
	}
	if s.deps.Renderer == nil {
		return nil, fmt.Errorf("pipeline: product renderer not configured")
	}
	if _, err := s.checkLimit(ctx, 1); err != nil {
		return nil, err
	}

	briefs := make([]templates.ProductBrief, len(req.Products))
	for i, p := range req.Products {
		briefs[i] = templates.ProductBrief{Title: p.Title, Price: p.Price, Description: p.Description}
	}

	comp, err := s.generate(ctx, ai.Request{
		System:      ai.SystemAffiliateWriter,
		Prompt:      templates.BuildProductReviewPrompt(briefs, req.Keyword),
		Temperature: articleTemperature,
		MaxTokens:   reviewMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	body := comp.Text
	if !looksLikeHTML(body) {
		if body, err = markdown.ToHTML(markdown.StripTitle(body)); err != nil {
			return nil, err
		}
	}

	gallery, err := s.deps.Renderer.RenderProducts(req.Products, render.Options{
		Mode:  render.ModeGallery,
		Title: reviewGalleryTitle,
		Limit: adProductLimit,
	})
	if err != nil {
		return nil, err
	}
	if req.Position == "" {
		req.Position = render.PositionEnd
	}

	now := s.opts.Now()
	art := &Article{
		ID:         uuid.New(),
		Title:      fmt.Sprintf("【%s】おすすめ商品%d選", req.Keyword, len(req.Products)),
		Content:    render.Splice(body, gallery, req.Position),
		Format:     FormatHTML,
		Category:   reviewCategory,
		Tags:       reviewTags(req.Keyword, now),
		Template:   templates.Review,
		Products:   req.Products,
		TokensUsed: comp.TokensUsed,
		SiteID:     req.SiteID,
	}
	art.WordCount = ai.EstimateCharCount(body)
	if err := s.addCTA(art); err != nil {
		return nil, err
	}
	s.finish(ctx, art, now)
	return art, nil
}

// generate calls the provider and records metrics.
func (s *Service) generate(ctx context.Context, req ai.Request) (ai.Completion, error) {
	start := time.Now()
	comp, err := s.deps.Generator.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("generation failed", "provider", s.deps.Generator.ActiveName(), "kind", ai.KindOf(err), "error", err)
		return ai.Completion{}, err
	}
	metrics.ObserveGeneration(s.deps.Generator.ActiveName(), time.Since(start), comp.TokensUsed)
	return comp, nil
}

// finish archives the article and opens its history record. Neither step
// may fail the generation.
func (s *Service) finish(ctx context.Context, art *Article, now time.Time) {
	metrics.ArticlesGenerated.WithLabelValues(art.Template).Inc()

	if s.deps.Archive != nil {
		key, err := s.deps.Archive.Save(ctx, storage.Document{
			ID:       art.ID,
			Title:    art.Title,
			Category: art.Category,
			Template: art.Template,
			Tags:     art.Tags,
			Created:  now,
			Body:     art.Content,
		})
		if err != nil {
			s.logger.Warn("archive failed", "article", art.ID, "error", err)
		} else {
			art.ArchiveKey = key
		}
	}

	err := s.deps.History.Create(ctx, &store.Post{
		ID:         art.ID,
		SiteID:     art.SiteID,
		Title:      art.Title,
		Category:   art.Category,
		Template:   art.Template,
		WordCount:  art.WordCount,
		ArchiveKey: art.ArchiveKey,
	})
	if err != nil {
		s.logger.Warn("history create failed", "article", art.ID, "error", err)
	}

	s.logger.Info("article generated",
		"article", art.ID,
		"title", art.Title,
		"template", art.Template,
		"word_count", art.WordCount,
		"tokens", art.TokensUsed,
	)
}

func looksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "<") || strings.Contains(t, "</p>") || strings.Contains(t, "</h2>")
}
