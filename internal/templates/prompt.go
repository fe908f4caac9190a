// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package templates

import (
	"fmt"
	"strings"
)

// writingRules close every template prompt.
var writingRules = []string{
	"各セクションは指定された文字数範囲で作成",
	"見出し構造(H1, H2, H3)を正確に守る",
	"読者にとって価値のある具体的な内容",
	"自然で読みやすい文章",
	"キーワードを自然に含める",
	"マークダウン形式で出力",
}

// BuildPrompt renders the generation instructions for t. The output lists
// each section label once, in catalog order, and ends by asking for a
// Markdown article that starts with a "# " title line.
func BuildPrompt(t Template, theme, keywords string) string {
	var b strings.Builder

	b.WriteString("あなたは経験豊富なWebライターです。以下の雛形に従って高品質な記事を作成してください。\n\n")
	fmt.Fprintf(&b, "【記事テーマ】: %s\n", theme)
	fmt.Fprintf(&b, "【キーワード】: %s\n", keywords)
	fmt.Fprintf(&b, "【記事形式】: %s\n", t.Name)
	fmt.Fprintf(&b, "【目標文字数】: %s\n\n", t.TotalWordCount)
	b.WriteString("【記事構成・雛形】:\n")

	for i, s := range t.Sections {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, s.Label, s.Heading)
		fmt.Fprintf(&b, "   - 文字数: %s\n", s.WordCount)
		fmt.Fprintf(&b, "   - 内容タイプ: %s\n", s.ContentType)
		fmt.Fprintf(&b, "   - 要件: %s", strings.Join(s.Requirements, ", "))
		if len(s.Subsections) > 0 {
			sub := s.Subsections[0]
			count := sub.Count
			if count == "" {
				count = "複数"
			}
			fmt.Fprintf(&b, "\n   - サブセクション: %s (%s)", sub.Pattern, count)
		}
	}

	b.WriteString("\n\n【SEO要件】:\n")
	b.WriteString(strings.Join(t.SEORequirements, "\n"))

	if len(t.CVRequirements) > 0 {
		b.WriteString("\n\n【CV要件】:\n")
		b.WriteString(strings.Join(t.CVRequirements, "\n"))
	}

	b.WriteString("\n\n【記事作成のルール】:\n")
	for i, r := range writingRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("\nそれでは、この雛形に基づいて完全な記事を作成してください。")
	b.WriteString("記事タイトル（# タイトル）から始めて、すべてのセクションを含む完成した記事を出力してください。")

	return b.String()
}

// BuildCategoryPrompt is the short free-form prompt used for category
// driven generation when no template structure is wanted.
func BuildCategoryPrompt(category, keyword, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sに関する魅力的なブログ記事を作成してください。\n\n", keyword)
	b.WriteString("要件：\n")
	b.WriteString("1. 文字数: 2000文字以上\n")
	b.WriteString("2. SEO最適化されたタイトル\n")
	b.WriteString("3. 読みやすい構成（見出しを使用）\n")
	b.WriteString("4. 最新の情報を含む\n")
	b.WriteString("5. マークダウン形式で出力し、記事タイトル（# タイトル）から始める\n\n")
	fmt.Fprintf(&b, "カテゴリ: %s\n", category)
	if tone != "" {
		fmt.Fprintf(&b, "トーン: %s\n", tone)
	}
	return b.String()
}

// ProductBrief is the product information quoted in review prompts.
type ProductBrief struct {
	Title       string
	Price       string
	Description string
}

// BuildProductReviewPrompt asks for a comparison review of products that
// works the keyword in naturally.
func BuildProductReviewPrompt(products []ProductBrief, keyword string) string {
	var b strings.Builder
	b.WriteString("以下の商品についてのレビュー記事を作成してください。\n")
	for i, p := range products {
		fmt.Fprintf(&b, "\n商品%d:\n", i+1)
		fmt.Fprintf(&b, "- 商品名: %s\n", p.Title)
		fmt.Fprintf(&b, "- 価格: %s\n", p.Price)
		fmt.Fprintf(&b, "- 説明: %s\n", p.Description)
	}
	b.WriteString("\n要件：\n")
	b.WriteString("1. 購買意欲を高める内容\n")
	b.WriteString("2. 各商品の特徴を詳しく説明\n")
	b.WriteString("3. 比較表を含む\n")
	b.WriteString("4. HTML形式で出力\n")
	fmt.Fprintf(&b, "5. キーワード「%s」を自然に含める\n", keyword)
	return b.String()
}
