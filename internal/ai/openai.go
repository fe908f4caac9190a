package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIProvider implements the Provider interface using the official
// openai-go SDK (chat completions).
type openAIProvider struct {
	config ProviderConfig
	client openai.Client
}

// newOpenAI creates a new OpenAI provider. SDK retries are disabled;
// retry policy belongs to the caller.
func newOpenAI(cfg ProviderConfig, extra ...option.RequestOption) *openAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	return &openAIProvider{
		config: cfg,
		client: openai.NewClient(opts...),
	}
}

func (p *openAIProvider) Name() string { return "openai" }

// Generate sends a chat completion request and returns the assistant's
// reply with total token usage.
func (p *openAIProvider) Generate(ctx context.Context, req Request) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(req.PresencePenalty)
	}
	if req.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(req.FrequencyPenalty)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			e := statusError(p.Name(), apiErr.StatusCode, apiErr.Message)
			e.Err = err
			return Completion{}, e
		}
		return Completion{}, transportError(ctx, p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, &Error{Provider: p.Name(), Kind: KindUpstream, Status: http.StatusOK, Message: "no choices returned"}
	}

	return Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
