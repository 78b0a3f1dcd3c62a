package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/textlens/internal/model"
)

// Defaults shared by both providers.
const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

// Client sends a single chat completion.
type Client interface {
	Provider() model.Provider
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// CompletionRequest is a system prompt plus one user turn.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

// Completion is the text of the first choice and the provider-reported usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Config selects and configures a provider client.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Provider may be empty, in which case it is inferred from Model.
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c Config) temperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return DefaultTemperature
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{
		Timeout: c.timeout(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func maxTokens(req CompletionRequest) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return DefaultMaxTokens
}

func withTrailingSlash(u string) string {
	if u == "" || u[len(u)-1] == '/' {
		return u
	}
	return u + "/"
}
