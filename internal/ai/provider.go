// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides a unified interface for the LLM providers that write
// articles (OpenAI, Claude). Each provider implements Provider and the
// Registry selects the active one by name.
package ai

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// System instructions sent with every completion.
const (
	SystemBlogWriter = "あなたはプロのブログライターです。SEO最適化された魅力的な記事を作成します。"

	SystemTemplateWriter = "あなたは経験豊富なプロのブログライターです。SEOを意識し、読者に価値を提供する高品質な記事を書くことが得意です。" +
		"自然で人間らしい文章を心がけ、専門的すぎず親しみやすい内容を作成してください。"

	SystemAffiliateWriter = "あなたはアフィリエイトマーケティングのエキスパートです。購買意欲を高める魅力的なレビュー記事を作成します。"
)

// DefaultTimeout bounds a single completion when the config sets none.
const DefaultTimeout = 60 * time.Second

// Request is one completion call.
type Request struct {
	System           string
	Prompt           string
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Completion is the provider's answer.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int64
}

// Provider defines the interface that all AI providers must implement.
// Failures are always returned as *Error.
type Provider interface {
	Generate(ctx context.Context, req Request) (Completion, error)

	// Name returns the provider identifier (e.g., "openai", "claude").
	Name() string
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Registry manages available AI providers and selects the active one.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	active    string
}

// NewRegistry creates a registry and initialises providers for every config
// that has a non-empty API key. Providers without keys are skipped.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "claude":
			r.providers[name] = newClaude(cfg)
		}
	}

	// Fall back to whatever is configured when the requested one is not.
	if _, ok := r.providers[r.active]; !ok {
		if names := r.sortedNames(); len(names) > 0 {
			r.active = names[0]
		}
	}
	return r
}

// Generate calls the active provider.
func (r *Registry) Generate(ctx context.Context, req Request) (Completion, error) {
	p, err := r.Active()
	if err != nil {
		return Completion{}, err
	}
	return p.Generate(ctx, req)
}

// Active returns the currently active provider, or a KindAuth *Error when
// it has no API key.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, &Error{Provider: r.active, Kind: KindAuth, Message: "APIキーが設定されていません"}
	}
	return p, nil
}

// SetActive switches the active provider at runtime.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

// Available returns the sorted names of all configured providers.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProvider checks whether a named provider is configured and available.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}
