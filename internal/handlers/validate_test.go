package handlers

import (
	"strings"
	"testing"

	"autoblog/internal/catalog"
)

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name      string
		req       generateArticleRequest
		wantError bool
	}{
		{"category only", generateArticleRequest{Category: "tech"}, false},
		{"theme only", generateArticleRequest{Theme: "筋トレ方法"}, false},
		{"nothing", generateArticleRequest{Category: "  "}, true},
		{"keyword too long", generateArticleRequest{Keyword: strings.Repeat("あ", 201)}, true},
		{"theme too long", generateArticleRequest{Theme: strings.Repeat("a", 201)}, true},
		{"unknown template", generateArticleRequest{Category: "tech", Template: "essay"}, true},
		{"known template", generateArticleRequest{Category: "tech", Template: "listicle"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateArticle(tt.req)
			if tt.wantError != (got != "") {
				t.Errorf("validateArticle = %q, wantError %v", got, tt.wantError)
			}
		})
	}
}

func TestValidateReview(t *testing.T) {
	one := []catalog.Product{{Title: "商品A"}}
	many := make([]catalog.Product, 11)
	for i := range many {
		many[i].Title = "x"
	}

	tests := []struct {
		name      string
		req       reviewRequest
		wantError bool
	}{
		{"valid", reviewRequest{Products: one, Keyword: "イヤホン"}, false},
		{"no products", reviewRequest{Keyword: "イヤホン"}, true},
		{"too many products", reviewRequest{Products: many, Keyword: "イヤホン"}, true},
		{"untitled product", reviewRequest{Products: []catalog.Product{{Price: "1円"}}, Keyword: "k"}, true},
		{"blank keyword", reviewRequest{Products: one, Keyword: " "}, true},
		{"bad position", reviewRequest{Products: one, Keyword: "k", Position: "top"}, true},
		{"middle", reviewRequest{Products: one, Keyword: "k", Position: "middle"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateReview(tt.req)
			if tt.wantError != (got != "") {
				t.Errorf("validateReview = %q, wantError %v", got, tt.wantError)
			}
		})
	}
}

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		req       batchRequest
		wantError bool
	}{
		{batchRequest{Count: 1}, false},
		{batchRequest{Count: 20, Categories: []string{"tech", "food"}}, false},
		{batchRequest{Count: 0}, true},
		{batchRequest{Count: 21}, true},
		{batchRequest{Count: 2, Categories: []string{"sports"}}, true},
	}
	for _, tt := range tests {
		if got := validateBatch(tt.req); tt.wantError != (got != "") {
			t.Errorf("validateBatch(%+v) = %q", tt.req, got)
		}
	}
}
