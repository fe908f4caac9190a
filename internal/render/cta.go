// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"bytes"
	"fmt"
)

// CTA is the call-to-action block added to every generated article, for
// example an invitation to the operator's community chat.
type CTA struct {
	Heading  string
	Text     string
	URL      string
	Label    string
	Position Position
}

// Enabled reports whether a CTA is configured.
func (c CTA) Enabled() bool { return c.URL != "" }

// RenderCTA renders c as an HTML block. The block has no blank lines, so
// it stays a single raw HTML block when embedded in Markdown.
func (r *Renderer) RenderCTA(c CTA) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "cta", c); err != nil {
		return "", fmt.Errorf("render cta: %w", err)
	}
	return buf.String(), nil
}

// SpliceCTA renders c and splices it into article. Middle uses Splice;
// anything else appends the block after the whole article, product
// gallery included. A disabled CTA leaves article unchanged.
func (r *Renderer) SpliceCTA(article string, c CTA) (string, error) {
	if !c.Enabled() {
		return article, nil
	}
	block, err := r.RenderCTA(c)
	if err != nil {
		return "", err
	}
	block = "\n\n" + block + "\n\n"
	if c.Position == PositionMiddle {
		return Splice(article, block, PositionMiddle), nil
	}
	return article + block, nil
}
