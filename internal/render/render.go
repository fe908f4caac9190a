// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render produces the product blocks and ad sections embedded in
// generated articles, and splices them into article HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"autoblog/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mode selects the product block layout.
type Mode string

const (
	// ModeGallery renders a titled section with a responsive grid.
	ModeGallery Mode = "gallery"
	// ModeList renders the product blocks one after another.
	ModeList Mode = "list"
)

const (
	DefaultTitle = "おすすめ商品"
	DefaultLimit = 3
	// EmptyProducts is rendered when there is nothing to show.
	EmptyProducts = "<p>関連商品が見つかりませんでした。</p>"
)

// Options controls RenderProducts.
type Options struct {
	Mode  Mode
	Title string
	// Limit caps the number of products. Zero means DefaultLimit.
	Limit int
}

// productView is what the "product" template renders.
type productView struct {
	catalog.Product
	Features []string
}

// Renderer holds the parsed product templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("products").Funcs(template.FuncMap{
		"stars": FormatRating,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse product templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderProducts renders products as HTML. Product fields are escaped.
func (r *Renderer) RenderProducts(products []catalog.Product, opts Options) (string, error) {
	if len(products) == 0 {
		return EmptyProducts, nil
	}
	if opts.Mode == "" {
		opts.Mode = ModeGallery
	}
	if opts.Mode != ModeGallery && opts.Mode != ModeList {
		return "", fmt.Errorf("render: unknown mode %q", opts.Mode)
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if len(products) > opts.Limit {
		products = products[:opts.Limit]
	}

	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = productView{Product: p, Features: Features(p)}
	}

	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, string(opts.Mode), map[string]any{
		"Title":    opts.Title,
		"Products": views,
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", opts.Mode, err)
	}
	return buf.String(), nil
}

// FormatRating renders r as stars, a half star when the fraction is at
// least .5, and the numeric score.
func FormatRating(r float64) string {
	whole := int(math.Floor(r))
	stars := strings.Repeat("⭐", max(whole, 0))
	if r-math.Floor(r) >= 0.5 {
		stars += "✨"
	}
	return fmt.Sprintf("%s (%.1f/5.0)", stars, r)
}

// Features returns the bullet points shown under a product.
func Features(p catalog.Product) []string {
	features := []string{"高品質な仕上がり", "使いやすいデザイン"}
	if strings.Contains(p.Price, "円") {
		if n, ok := priceValue(p.Price); ok && n < 3000 {
			features = append(features, "手頃な価格")
		}
	}
	return features
}

// priceValue reads the digits of a display price such as "1,980円".
func priceValue(price string) (int, bool) {
	var digits strings.Builder
	for _, r := range price {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(digits.String())
	return n, err == nil
}
