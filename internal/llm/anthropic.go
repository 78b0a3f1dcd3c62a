package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

const (
	defaultAnthropicModel = "claude-3-5-sonnet-20241022"
	anthropicMaxTokens    = 2000
)

// anthropicClient implements the Client interface with the Anthropic messages API.
type anthropicClient struct {
	client anthropic.Client
	logger *slog.Logger
	model  string
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key: %w", common.ErrMissingCredentials)
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = defaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.httpClient()),
		option.WithMaxRetries(0),
		option.WithHeader("anthropic-dangerous-direct-browser-access", "true"),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(withTrailingSlash(cfg.BaseURL)))
	}

	return &anthropicClient{
		client: anthropic.NewClient(opts...),
		logger: cfg.logger(),
		model:  modelID,
	}, nil
}

func (c *anthropicClient) Provider() model.Provider {
	return model.ProviderAnthropic
}

// Complete sends one message and returns the first text block of the reply.
func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return Completion{}, anthropicError(err)
	}

	c.logger.Debug("Anthropic completion finished",
		"model", c.model,
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
		"duration", time.Since(start))

	for _, block := range message.Content {
		if block.Type == "text" {
			return Completion{
				Text:         block.Text,
				Model:        c.model,
				InputTokens:  message.Usage.InputTokens,
				OutputTokens: message.Usage.OutputTokens,
			}, nil
		}
	}
	return Completion{}, fmt.Errorf("no text content in anthropic response: %w", common.ErrEmptyResponse)
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &common.APIError{
			Provider:   string(model.ProviderAnthropic),
			StatusCode: apiErr.StatusCode,
			Message:    anthropicErrorMessage(apiErr),
		}
	}
	return fmt.Errorf("anthropic request failed: %w", err)
}

func anthropicErrorMessage(apiErr *anthropic.Error) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(apiErr.RawJSON()), &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return apiErr.Error()
}
