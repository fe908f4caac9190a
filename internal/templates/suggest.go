// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package templates

import (
	"slices"
	"strings"
)

// adultTerms match by substring in both keywords and theme.
var adultTerms = []string{
	"オナホ", "アダルト", "グッズ", "大人", "セックス", "性具",
	"ラブ", "バイブ", "ローター", "玩具", "おもちゃ", "エロ",
}

// rule is one entry of the ordered selection table. Keywords must equal a
// term exactly; the theme only needs to contain one of themeTerms.
type rule struct {
	key        string
	terms      []string
	themeTerms []string
}

// rules are evaluated in order after the adult check. The order decides
// ties and must not change.
var rules = []rule{
	{HowTo, []string{"方法", "やり方", "ステップ", "手順", "の仕方"}, []string{"方法", "やり方", "手順"}},
	{Listicle, []string{"おすすめ", "ランキング", "比較", "まとめ", "選", "厳選"}, []string{"おすすめ", "まとめ", "ランキング"}},
	{Review, []string{"レビュー", "評価", "口コミ", "体験", "使ってみた", "試してみた"}, []string{"レビュー", "評価", "体験"}},
	{News, []string{"ニュース", "最新", "トレンド", "速報", "動向", "話題"}, []string{"ニュース", "最新", "トレンド"}},
	{BeginnerGuide, []string{"初心者", "入門", "基礎", "始め方", "とは", "基本"}, []string{"初心者", "入門", "基礎"}},
}

// Suggest picks a template key for a theme and a comma-separated keyword
// list. Adult terms win over everything else; without any match the
// result is HowTo.
func Suggest(theme, keywords string) string {
	t := strings.ToLower(theme)
	kws := SplitKeywords(strings.ToLower(keywords))

	if containsAny(t, adultTerms) {
		return AdultReview
	}
	for _, k := range kws {
		if containsAny(k, adultTerms) {
			return AdultReview
		}
	}

	for _, r := range rules {
		for _, k := range kws {
			if slices.Contains(r.terms, k) {
				return r.key
			}
		}
		if containsAny(t, r.themeTerms) {
			return r.key
		}
	}
	return HowTo
}

// SplitKeywords splits a comma-separated list and trims each entry. Empty
// input yields a single empty keyword, matching how the list is scanned.
func SplitKeywords(keywords string) []string {
	parts := strings.Split(keywords, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
