package handlers

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"autoblog/internal/pipeline"
	"autoblog/internal/templates"
)

// Request field limits.
const (
	maxKeywordLen   = 200
	maxThemeLen     = 200
	maxSiteIDLen    = 100
	maxReviewItems  = 10
	maxProductTitle = 500
	maxBodyBytes    = 1 << 20
)

// validateArticle checks a generate-article request and returns the first
// problem found, or "".
func validateArticle(req generateArticleRequest) string {
	if strings.TrimSpace(req.Category) == "" && strings.TrimSpace(req.Keyword) == "" && strings.TrimSpace(req.Theme) == "" {
		return "カテゴリまたはキーワードを指定してください"
	}
	if utf8.RuneCountInString(req.Keyword) > maxKeywordLen {
		return fmt.Sprintf("キーワードが長すぎます（最大%d文字）", maxKeywordLen)
	}
	if utf8.RuneCountInString(req.Theme) > maxThemeLen {
		return fmt.Sprintf("テーマが長すぎます（最大%d文字）", maxThemeLen)
	}
	if req.Template != "" && !templates.Exists(req.Template) {
		return "不明なテンプレートです: " + req.Template
	}
	if len(req.SiteID) > maxSiteIDLen {
		return "サイトIDが不正です"
	}
	return ""
}

// validateReview checks a generate-product-review request.
func validateReview(req reviewRequest) string {
	if len(req.Products) == 0 {
		return "商品を1つ以上選択してください"
	}
	if len(req.Products) > maxReviewItems {
		return fmt.Sprintf("商品は最大%d件までです", maxReviewItems)
	}
	for i, p := range req.Products {
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Sprintf("商品%dのタイトルがありません", i+1)
		}
		if utf8.RuneCountInString(p.Title) > maxProductTitle {
			return fmt.Sprintf("商品%dのタイトルが長すぎます", i+1)
		}
	}
	if strings.TrimSpace(req.Keyword) == "" {
		return "キーワードを指定してください"
	}
	if utf8.RuneCountInString(req.Keyword) > maxKeywordLen {
		return fmt.Sprintf("キーワードが長すぎます（最大%d文字）", maxKeywordLen)
	}
	if req.Position != "" && req.Position != "middle" && req.Position != "end" {
		return "positionはmiddleまたはendを指定してください"
	}
	return ""
}

// validateBatch checks a batch-generate request.
func validateBatch(req batchRequest) string {
	if req.Count < 1 || req.Count > pipeline.MaxBatch {
		return fmt.Sprintf("生成数は1〜%dの範囲で指定してください", pipeline.MaxBatch)
	}
	for _, c := range req.Categories {
		if !slices.Contains(pipeline.Categories, c) {
			return "不明なカテゴリです: " + c
		}
	}
	return ""
}
