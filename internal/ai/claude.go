// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// claudeDefaultMaxTokens is used when a request does not cap the output;
// the Messages API requires the field.
const claudeDefaultMaxTokens = 4096

// claudeProvider implements the Provider interface using the Anthropic
// Messages API (POST /v1/messages).
type claudeProvider struct {
	config ProviderConfig
	client *http.Client
}

// newClaude creates a new Anthropic Claude provider.
func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &claudeProvider{
		config: cfg,
		client: &http.Client{},
	}
}

func (p *claudeProvider) Name() string { return "claude" }

// Generate sends a message to the Anthropic Messages API.
func (p *claudeProvider) Generate(ctx context.Context, req Request) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	body := claudeRequest{
		Model:     p.config.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages: []claudeMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = claudeDefaultMaxTokens
	}
	if req.Temperature > 0 {
		t := min(req.Temperature, 1.0)
		body.Temperature = &t
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Completion{}, fmt.Errorf("claude marshal: %w", err)
	}

	url := p.config.BaseURL + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, fmt.Errorf("claude request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Completion{}, transportError(ctx, p.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, transportError(ctx, p.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, statusError(p.Name(), resp.StatusCode, string(respBody))
	}

	var result claudeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Completion{}, &Error{Provider: p.Name(), Kind: KindUpstream, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}

	// Extract text from the first content block.
	for _, block := range result.Content {
		if block.Type == "text" {
			return Completion{
				Text:       block.Text,
				Model:      result.Model,
				TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
			}, nil
		}
	}

	return Completion{}, &Error{Provider: p.Name(), Kind: KindUpstream, Status: resp.StatusCode, Message: "no text content in response"}
}

// --- Anthropic Messages API types ---

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type claudeResponse struct {
	Model   string               `json:"model"`
	Content []claudeContentBlock `json:"content"`
	Usage   claudeUsage          `json:"usage"`
}
