package pipeline

import (
	"fmt"
	"time"
)

// Categories lists the dashboard categories in display order.
var Categories = []string{"entertainment", "anime", "game", "movie", "music", "tech", "beauty", "food"}

var defaultKeywords = map[string]string{
	"entertainment": "エンタメ最新",
	"anime":         "アニメ新作",
	"game":          "ゲーム攻略",
	"movie":         "映画レビュー",
	"music":         "音楽ランキング",
	"tech":          "IT最新技術",
	"beauty":        "美容トレンド",
	"food":          "グルメ情報",
}

// DefaultKeyword returns the seed keyword for a category, or the category
// itself when it has none.
func DefaultKeyword(category string) string {
	if kw, ok := defaultKeywords[category]; ok {
		return kw
	}
	return category
}

// articleTags are the tags of a category article.
func articleTags(keyword, category string, now time.Time) []string {
	tags := []string{keyword}
	if category != "" && category != keyword {
		tags = append(tags, category)
	}
	return append(tags, fmt.Sprintf("%d年", now.Year()), "おすすめ")
}

// reviewTags are the tags of a product review.
func reviewTags(keyword string, now time.Time) []string {
	return []string{keyword, "レビュー", "おすすめ", fmt.Sprintf("%d年", now.Year())}
}
