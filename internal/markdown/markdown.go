// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts generated Markdown articles into the HTML that
// WordPress stores. Raw HTML in the source (product blocks, ad sections)
// passes through unchanged.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // tables, strikethrough, autolinks
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(),
		),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

// StripTitle removes a leading "# " heading line. WordPress renders the
// post title itself, so the body must not repeat it.
func StripTitle(source string) string {
	s := strings.TrimLeft(source, "\r\n\t ")
	if !strings.HasPrefix(s, "# ") {
		return source
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimLeft(s[i+1:], "\r\n")
	}
	return ""
}
