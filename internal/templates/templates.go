// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package templates holds the fixed catalog of article structures used to
// steer the language model, the heuristic that picks one for a topic, and
// the prompt builder that turns a template into generation instructions.
package templates

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Template keys. The catalog order below is also the listing order.
const (
	HowTo         = "howto"
	Listicle      = "listicle"
	Review        = "review"
	News          = "news"
	BeginnerGuide = "beginner_guide"
	AdultReview   = "adult_review"
)

//go:embed catalog.json
var catalogJSON []byte

// Range is an inclusive character-count range such as 200-300.
type Range struct {
	Min int
	Max int
}

// String renders the range the way it appears in prompts ("200-300").
func (r Range) String() string {
	if r.Min == 0 && r.Max == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// UnmarshalJSON parses "min-max" strings from the catalog file.
func (r *Range) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*r = Range{}
		return nil
	}
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return fmt.Errorf("templates: invalid range %q", s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return fmt.Errorf("templates: invalid range %q: %w", s, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return fmt.Errorf("templates: invalid range %q: %w", s, err)
	}
	*r = Range{Min: from, Max: to}
	return nil
}

// MarshalJSON writes the range back as "min-max".
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Subsection describes a repeated H3 block inside a section.
type Subsection struct {
	Heading      string   `json:"heading"`
	Pattern      string   `json:"pattern"`
	Count        string   `json:"count,omitempty"`
	WordCount    Range    `json:"word_count"`
	Examples     []string `json:"examples,omitempty"`
	Format       string   `json:"format,omitempty"`
	SubStructure []string `json:"sub_structure,omitempty"`
}

// Section is one H2 block of an article template.
type Section struct {
	Label        string       `json:"label"`
	Heading      string       `json:"heading"`
	ContentType  string       `json:"content_type"`
	WordCount    Range        `json:"word_count"`
	Requirements []string     `json:"requirements"`
	Subsections  []Subsection `json:"subsections,omitempty"`
}

// Template is a named article structure. Templates are immutable once the
// catalog has loaded; callers receive copies.
type Template struct {
	Key             string    `json:"key"`
	Name            string    `json:"name"`
	Sections        []Section `json:"sections"`
	TotalWordCount  Range     `json:"total_word_count"`
	SEORequirements []string  `json:"seo_requirements"`
	CVRequirements  []string  `json:"cv_requirements,omitempty"`
}

// Summary is the listing view of a template.
type Summary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	WordCount   string `json:"wordCount"`
	Sections    int    `json:"sections"`
	Description string `json:"description"`
}

var (
	catalog []Template
	byKey   map[string]int
)

func init() {
	if err := json.Unmarshal(catalogJSON, &catalog); err != nil {
		panic(fmt.Sprintf("templates: parse catalog: %v", err))
	}
	byKey = make(map[string]int, len(catalog))
	for i, t := range catalog {
		byKey[t.Key] = i
	}
}

// Get returns the template stored under name.
func Get(name string) (Template, bool) {
	i, ok := byKey[name]
	if !ok {
		return Template{}, false
	}
	return clone(catalog[i]), true
}

// Exists reports whether name is a catalog key.
func Exists(name string) bool {
	_, ok := byKey[name]
	return ok
}

// List returns every template in catalog order.
func List() []Summary {
	out := make([]Summary, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, Summary{
			Key:         t.Key,
			Name:        t.Name,
			WordCount:   t.TotalWordCount.String(),
			Sections:    len(t.Sections),
			Description: fmt.Sprintf("%dセクション構成、%s文字", len(t.Sections), t.TotalWordCount),
		})
	}
	return out
}

// Keys returns the catalog keys in order.
func Keys() []string {
	keys := make([]string, len(catalog))
	for i, t := range catalog {
		keys[i] = t.Key
	}
	return keys
}

func clone(t Template) Template {
	c := t
	c.Sections = make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		s.Requirements = append([]string(nil), s.Requirements...)
		if s.Subsections != nil {
			subs := make([]Subsection, len(s.Subsections))
			for j, sub := range s.Subsections {
				sub.Examples = append([]string(nil), sub.Examples...)
				sub.SubStructure = append([]string(nil), sub.SubStructure...)
				subs[j] = sub
			}
			s.Subsections = subs
		}
		c.Sections[i] = s
	}
	c.SEORequirements = append([]string(nil), t.SEORequirements...)
	c.CVRequirements = append([]string(nil), t.CVRequirements...)
	return c
}
