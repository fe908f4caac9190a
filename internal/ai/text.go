// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	markdownH1 = regexp.MustCompile(`(?m)^# (.+)$`)
	htmlH1     = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	// markdownMarks are the characters removed before counting.
	markdownMarks = regexp.MustCompile(`[#*\-\[\]()]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// ExtractTitle returns the first level-1 heading of text, Markdown first
// and HTML second. When neither exists it returns fallback.
func ExtractTitle(text, fallback string) string {
	if m := markdownH1.FindStringSubmatch(text); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	if m := htmlH1.FindStringSubmatch(text); m != nil {
		if t := strings.TrimSpace(htmlTag.ReplaceAllString(m[1], "")); t != "" {
			return t
		}
	}
	return fallback
}

// EstimateCharCount approximates the visible length of a Japanese article:
// tags, Markdown marks and whitespace are removed and runes counted.
func EstimateCharCount(text string) int {
	s := htmlTag.ReplaceAllString(text, "")
	s = markdownMarks.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "")
	return utf8.RuneCountInString(s)
}

// PlainText strips tags and Markdown marks and collapses whitespace.
func PlainText(text string) string {
	s := htmlTag.ReplaceAllString(text, "")
	s = markdownMarks.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Excerpt returns the first maxRunes runes of the plain text, with "..."
// appended when it was cut.
func Excerpt(text string, maxRunes int) string {
	s := PlainText(text)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes]) + "..."
}
