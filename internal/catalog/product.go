// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is an affiliate item in the shape the rest of the service uses.
type Product struct {
	ContentID    string  `json:"contentId"`
	Title        string  `json:"title"`
	Price        string  `json:"price"`
	ImageURL     string  `json:"imageUrl"`
	AffiliateURL string  `json:"affiliateUrl"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Maker        string  `json:"maker"`
	Rating       float64 `json:"rating"`
}

// Source paths per field, highest precedence first. Dotted paths descend
// into nested objects.
var (
	contentIDPaths   = []string{"content_id", "contentId"}
	titlePaths       = []string{"title"}
	pricePaths       = []string{"prices.price", "price"}
	imagePaths       = []string{"imageURL.large", "imageURL.small", "imageUrl", "image_url"}
	affiliatePaths   = []string{"affiliateURL", "affiliateUrl", "affiliate_url"}
	descriptionPaths = []string{"comment", "description"}
	categoryPaths    = []string{"category_name", "category"}
	makerPaths       = []string{"maker_name", "maker"}
	ratingPaths      = []string{"review.average", "rating"}
)

// Normalize maps an upstream item, or a product already in canonical form,
// onto Product. Missing fields stay at their zero value.
func Normalize(raw map[string]any) Product {
	return Product{
		ContentID:    firstString(raw, contentIDPaths),
		Title:        firstString(raw, titlePaths),
		Price:        firstString(raw, pricePaths),
		ImageURL:     firstString(raw, imagePaths),
		AffiliateURL: firstString(raw, affiliatePaths),
		Description:  firstString(raw, descriptionPaths),
		Category:     firstString(raw, categoryPaths),
		Maker:        firstString(raw, makerPaths),
		Rating:       firstFloat(raw, ratingPaths),
	}
}

// ToMap returns p in the canonical key layout accepted by Normalize.
func ToMap(p Product) map[string]any {
	return map[string]any{
		"contentId":    p.ContentID,
		"title":        p.Title,
		"price":        p.Price,
		"imageUrl":     p.ImageURL,
		"affiliateUrl": p.AffiliateURL,
		"description":  p.Description,
		"category":     p.Category,
		"maker":        p.Maker,
		"rating":       p.Rating,
	}
}

// HasAffiliateLink reports whether the product links anywhere real.
func (p Product) HasAffiliateLink() bool {
	return p.AffiliateURL != "" && p.AffiliateURL != "#"
}

func lookup(raw map[string]any, path string) (any, bool) {
	cur := any(raw)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func firstString(raw map[string]any, paths []string) string {
	for _, p := range paths {
		v, ok := lookup(raw, p)
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case bool, map[string]any, []any:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(raw map[string]any, paths []string) float64 {
	for _, p := range paths {
		v, ok := lookup(raw, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			if t != 0 {
				return t
			}
		case int:
			if t != 0 {
				return float64(t)
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}
