// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"autoblog/internal/catalog"
)

const (
	defaultAdDescription = "高品質でおすすめの人気商品です。"
	affiliateDisclosure  = "※この記事にはアフィリエイトリンクが含まれます。"
)

// markdownEscaper backslash-escapes the punctuation that would start
// emphasis, links, images or code inside inline text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"!", `\!`, "#", `\#`, "|", `\|`, "~", `\~`,
)

// escapeInline makes catalog text safe to embed in Markdown that is later
// rendered with raw HTML allowed. Line breaks are flattened, Markdown
// punctuation is escaped, then HTML is entity-escaped.
func escapeInline(s string) string {
	s = markdownEscaper.Replace(strings.Join(strings.Fields(s), " "))
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "=") {
		s = `\` + s
	}
	return html.EscapeString(s)
}

// linkTarget returns u when it is an absolute http(s) URL, encoded so it
// cannot close the Markdown link. Anything else yields "".
func linkTarget(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ""
	}
	return strings.NewReplacer("(", "%28", ")", "%29", " ", "%20", "<", "%3C", ">", "%3E").Replace(parsed.String())
}

// RenderAdMarkdown renders the Markdown ad section appended to generated
// articles. Adult sections carry a PR heading and the affiliate
// disclosure. No products yields an empty string. Product text is
// escaped and only http(s) links are kept.
func RenderAdMarkdown(products []catalog.Product, adult bool) string {
	if len(products) == 0 {
		return ""
	}

	var b strings.Builder
	if adult {
		b.WriteString("\n## どこで買える？（PRリンク）\n\n")
	} else {
		b.WriteString("\n## おすすめ商品\n\n")
	}

	for i, p := range products {
		title := escapeInline(p.Title)
		if title == "" {
			title = fmt.Sprintf("商品%d", i+1)
		}
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, title)
		if img := linkTarget(p.ImageURL); img != "" {
			fmt.Fprintf(&b, "![%s](%s)\n\n", title, img)
		}
		desc := escapeInline(p.Description)
		if desc == "" {
			desc = defaultAdDescription
		}
		b.WriteString(desc + "\n\n")
		if target := linkTarget(p.AffiliateURL); target != "" {
			link := "詳細を見る"
			if adult {
				link = title + "の詳細・購入はこちら"
			}
			fmt.Fprintf(&b, "👉 [%s](%s)\n\n", link, target)
		}
		b.WriteString("---\n\n")
	}

	if adult {
		b.WriteString("\n" + affiliateDisclosure + "\n\n")
	}
	return b.String()
}
