package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

const defaultOpenAIModel = "gpt-4o"

// openAIClient implements the Client interface with the OpenAI chat completions API.
type openAIClient struct {
	client      *openai.Client
	logger      *slog.Logger
	model       string
	temperature float64
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key: %w", common.ErrMissingCredentials)
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.httpClient()),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(withTrailingSlash(cfg.BaseURL)))
	}

	return &openAIClient{
		client:      openai.NewClient(opts...),
		logger:      cfg.logger(),
		model:       modelID,
		temperature: cfg.temperature(),
	}, nil
}

func (c *openAIClient) Provider() model.Provider {
	return model.ProviderOpenAI
}

// chatParams applies the parameter style of the model's capability entry.
func (c *openAIClient) chatParams(req CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.F(openai.ChatModel(c.model)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.Prompt),
		}),
	}

	switch model.CapabilityFor(c.model).ParamStyle {
	case model.ParamMaxCompletionTokens:
		params.MaxCompletionTokens = openai.F(maxTokens(req))
	default:
		params.MaxTokens = openai.F(maxTokens(req))
		params.Temperature = openai.F(c.temperature)
	}
	return params
}

// Complete sends one chat completion request.
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.chatParams(req))
	if err != nil {
		return Completion{}, openAIError(err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("no completion choices returned: %w", common.ErrEmptyResponse)
	}

	c.logger.Debug("OpenAI completion finished",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start))

	return Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        c.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(apiErr.Error())
		}
		return &common.APIError{Provider: string(model.ProviderOpenAI), StatusCode: apiErr.StatusCode, Message: msg}
	}
	return fmt.Errorf("openai request failed: %w", err)
}
