// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug builds WordPress post slugs from article titles.
package slug

import (
	"regexp"
	"strings"
)

// MaxRunes caps slug length; WordPress percent-encodes non-ASCII slugs,
// so long Japanese titles grow quickly.
const MaxRunes = 60

var (
	// disallowed matches anything that isn't a letter, digit, space or hyphen.
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}\p{Zs}\s_-]`)
	separators = regexp.MustCompile(`[\p{Zs}\s_]+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from s. Letters of any script are
// kept, so "筋トレ入門 2026年版！" becomes "筋トレ入門-2026年版".
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = disallowed.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if r := []rune(result); len(r) > MaxRunes {
		result = strings.TrimRight(string(r[:MaxRunes]), "-")
	}
	return result
}
