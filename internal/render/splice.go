// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import "strings"

// Position is where a block goes inside an article.
type Position string

const (
	PositionMiddle Position = "middle"
	PositionEnd    Position = "end"
)

// ParsePosition maps request input onto a Position, defaulting to end.
func ParsePosition(s string) Position {
	if Position(s) == PositionMiddle {
		return PositionMiddle
	}
	return PositionEnd
}

// Splice inserts block into article HTML.
//
// Middle splits the article on "</p>" and inserts the block at the halfway
// index when there are more than three parts. End inserts it right after
// the last "</h2>". When the anchor is missing the block is appended.
func Splice(article, block string, pos Position) string {
	switch pos {
	case PositionMiddle:
		parts := strings.Split(article, "</p>")
		if len(parts) > 3 {
			at := len(parts) / 2
			out := make([]string, 0, len(parts)+1)
			out = append(out, parts[:at]...)
			out = append(out, block)
			out = append(out, parts[at:]...)
			return strings.Join(out, "</p>")
		}
	case PositionEnd:
		if i := strings.LastIndex(article, "</h2>"); i >= 0 {
			cut := i + len("</h2>")
			return article[:cut] + block + article[cut:]
		}
	}
	return article + block
}
