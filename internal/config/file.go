// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"autoblog/internal/license"
)

// DefaultOpenAIModel is used when the user configuration names no model.
const DefaultOpenAIModel = "gpt-4o-mini"

// DefaultClaudeModel is used when a Claude key is present without a model.
const DefaultClaudeModel = "claude-sonnet-4-6"

// Publishing transports a site can use.
const (
	TransportXMLRPC = "xmlrpc"
	TransportREST   = "rest"
)

// File is the operator's JSON user configuration.
type File struct {
	License   LicenseConfig   `json:"license"`
	WordPress WordPressConfig `json:"wordpress"`
	APIKeys   APIKeys         `json:"api_keys"`
	CTA       CTAConfig       `json:"cta"`
}

// CTAConfig is the optional call-to-action appended to every article.
// An empty URL disables it.
type CTAConfig struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	Label   string `json:"label"`
	// Position is "end" (default) or "middle".
	Position string `json:"position,omitempty"`
}

// LicenseConfig is the license key and the email it was issued to.
type LicenseConfig struct {
	Key   string `json:"key"`
	Email string `json:"email"`
}

// WordPressConfig lists the publishing targets.
type WordPressConfig struct {
	Sites []Site `json:"sites"`
}

// Site is one WordPress publishing target.
type Site struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Enabled   *bool  `json:"enabled,omitempty"`
	IsDefault bool   `json:"isDefault"`
	// Transport is "xmlrpc" (default) or "rest".
	Transport string `json:"transport,omitempty"`
	BlogID    int    `json:"blogId,omitempty"`
	// Categories maps category names to WordPress term IDs.
	Categories map[string]int `json:"categories,omitempty"`
}

// IsEnabled reports whether the site accepts posts. Absent means enabled.
func (s Site) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// BaseURL returns the site URL without a trailing slash.
func (s Site) BaseURL() string {
	return strings.TrimRight(s.URL, "/")
}

// APIKeys groups upstream credentials.
type APIKeys struct {
	OpenAI ProviderKey `json:"openai"`
	Claude ProviderKey `json:"claude"`
	DMM    DMMConfig   `json:"dmm"`
}

// ProviderKey is an LLM API key and optional model override.
type ProviderKey struct {
	Key   string `json:"key"`
	Model string `json:"model"`
}

// DMMConfig holds the affiliate catalog credentials.
type DMMConfig struct {
	Enabled     bool   `json:"enabled"`
	APIID       string `json:"api_id"`
	AffiliateID string `json:"affiliate_id"`
}

// ValidationError lists every problem found in the user configuration.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "設定エラー (%s):", e.Path)
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	return b.String()
}

// LoadFile reads and validates the user configuration at path. It returns
// either a fully valid File or a *ValidationError; never both.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ValidationError{Path: path, Problems: []string{
				"設定ファイルが見つかりません。config-template.json を user-config.json にコピーして編集してください",
			}}
		}
		return nil, fmt.Errorf("config read %s: %w", path, err)
	}
	return ParseFile(path, data)
}

// ParseFile decodes and validates a user configuration document.
func ParseFile(path string, data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &ValidationError{Path: path, Problems: []string{
			fmt.Sprintf("JSONの形式が不正です: %v", err),
		}}
	}
	if problems := f.Validate(); len(problems) > 0 {
		return nil, &ValidationError{Path: path, Problems: problems}
	}
	return &f, nil
}

// Validate returns one message per missing or malformed field.
func (f *File) Validate() []string {
	var problems []string

	if f.License.Key == "" {
		problems = append(problems, "ライセンスキーが設定されていません")
	} else if _, err := license.Parse(f.License.Key, f.License.Email); err != nil {
		problems = append(problems, err.Error())
	}
	if f.License.Email == "" {
		problems = append(problems, "メールアドレスが設定されていません")
	}

	if len(f.WordPress.Sites) == 0 {
		problems = append(problems, "WordPressサイトが設定されていません")
	}
	seen := make(map[string]bool)
	for i, s := range f.WordPress.Sites {
		n := i + 1
		if s.URL == "" {
			problems = append(problems, fmt.Sprintf("サイト%d: URLが設定されていません", n))
		}
		if s.Username == "" {
			problems = append(problems, fmt.Sprintf("サイト%d: ユーザー名が設定されていません", n))
		}
		if s.Password == "" {
			problems = append(problems, fmt.Sprintf("サイト%d: パスワードが設定されていません", n))
		}
		if s.Transport != "" && s.Transport != TransportXMLRPC && s.Transport != TransportREST {
			problems = append(problems, fmt.Sprintf("サイト%d: transport は xmlrpc か rest を指定してください", n))
		}
		if s.ID != "" {
			if seen[s.ID] {
				problems = append(problems, fmt.Sprintf("サイト%d: ID %q が重複しています", n, s.ID))
			}
			seen[s.ID] = true
		}
	}

	if u := f.CTA.URL; u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		problems = append(problems, "CTA: url は http(s) で指定してください")
	}
	if p := f.CTA.Position; p != "" && p != "end" && p != "middle" {
		problems = append(problems, "CTA: position は end か middle を指定してください")
	}

	if f.APIKeys.OpenAI.Key == "" && f.APIKeys.Claude.Key == "" {
		problems = append(problems, "OpenAI APIキーが設定されていません")
	}

	return problems
}

// Site returns the site with the given id. An empty id selects the first
// site flagged isDefault, or the first site when none is flagged.
func (f *File) Site(id string) (Site, bool) {
	sites := f.WordPress.Sites
	if id != "" {
		for _, s := range sites {
			if s.ID == id {
				return s, true
			}
		}
		return Site{}, false
	}
	for _, s := range sites {
		if s.IsDefault {
			return s, true
		}
	}
	if len(sites) > 0 {
		return sites[0], true
	}
	return Site{}, false
}

// OpenAIModel returns the configured model or the default.
func (f *File) OpenAIModel() string {
	if f.APIKeys.OpenAI.Model != "" {
		return f.APIKeys.OpenAI.Model
	}
	return DefaultOpenAIModel
}

// ClaudeModel returns the configured model or the default.
func (f *File) ClaudeModel() string {
	if f.APIKeys.Claude.Model != "" {
		return f.APIKeys.Claude.Model
	}
	return DefaultClaudeModel
}

// DMM returns the catalog settings allowed by st. Licenses without the
// DMM feature always get a disabled config.
func (f *File) DMM(st license.Status) DMMConfig {
	if !st.Has(license.FeatureDMMAPI) {
		return DMMConfig{}
	}
	return f.APIKeys.DMM
}
