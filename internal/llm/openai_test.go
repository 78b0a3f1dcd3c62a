package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

const openAIReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Optimized text."}}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

func openAIServer(t *testing.T, status int, reply string) (*httptest.Server, *map[string]any, *http.Header) {
	t.Helper()
	body := map[string]any{}
	header := http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		header = r.Header.Clone()
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &body, &header
}

func TestOpenAIComplete_ParamStyle(t *testing.T) {
	tests := []struct {
		name            string
		model           string
		wantCompletion  bool
		wantTemperature bool
	}{
		{name: "o4 family", model: "o4-mini", wantCompletion: true},
		{name: "o3 family", model: "o3", wantCompletion: true},
		{name: "chat model", model: "gpt-4o", wantTemperature: true},
		{name: "unknown model uses default style", model: "gpt-5-preview", wantTemperature: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, body, _ := openAIServer(t, http.StatusOK, openAIReply)

			client, err := NewClient(Config{APIKey: "sk-test", Model: tt.model, BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), CompletionRequest{SystemPrompt: "sys", Prompt: "hi", MaxTokens: 500})
			require.NoError(t, err)

			_, hasCompletion := (*body)["max_completion_tokens"]
			_, hasMaxTokens := (*body)["max_tokens"]
			_, hasTemperature := (*body)["temperature"]

			assert.Equal(t, tt.wantCompletion, hasCompletion)
			assert.Equal(t, !tt.wantCompletion, hasMaxTokens)
			assert.Equal(t, tt.wantTemperature, hasTemperature)
			assert.Equal(t, tt.model, (*body)["model"])
		})
	}
}

// messageText returns the text of a chat message whose content is a string or a list of text parts.
func messageText(t *testing.T, message any) string {
	t.Helper()
	content := message.(map[string]any)["content"]
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var text string
		for _, part := range c {
			p, ok := part.(map[string]any)
			require.True(t, ok)
			if p["type"] == "text" {
				text += p["text"].(string)
			}
		}
		return text
	default:
		t.Fatalf("unexpected message content %T", content)
		return ""
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv, body, header := openAIServer(t, http.StatusOK, openAIReply)

	client, err := NewClient(Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOpenAI, client.Provider())

	got, err := client.Complete(context.Background(), CompletionRequest{SystemPrompt: "be on brand", Prompt: "rewrite this"})
	require.NoError(t, err)

	assert.Equal(t, "Optimized text.", got.Text)
	assert.Equal(t, int64(12), got.InputTokens)
	assert.Equal(t, int64(3), got.OutputTokens)
	assert.Equal(t, "Bearer sk-test", header.Get("Authorization"))

	messages, ok := (*body)["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "be on brand", messageText(t, messages[0]))
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "rewrite this", messageText(t, messages[1]))
	assert.InDelta(t, float64(DefaultMaxTokens), (*body)["max_tokens"], 0)
}

func TestOpenAIComplete_Errors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		srv, _, _ := openAIServer(t, http.StatusUnauthorized,
			`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
		client, err := NewClient(Config{APIKey: "bad", Model: "gpt-4o", BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrAuth)

		var apiErr *common.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "openai", apiErr.Provider)
	})

	t.Run("rejected parameter", func(t *testing.T) {
		srv, _, _ := openAIServer(t, http.StatusBadRequest,
			`{"error":{"message":"Unsupported parameter: 'max_tokens' is not supported with this model. Use 'max_completion_tokens' instead.","type":"invalid_request_error","param":"max_tokens"}}`)
		client, err := NewClient(Config{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
		assert.ErrorIs(t, err, common.ErrRequestFormat)
	})

	t.Run("no choices", func(t *testing.T) {
		srv, _, _ := openAIServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`)
		client, err := NewClient(Config{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
		assert.ErrorIs(t, err, common.ErrEmptyResponse)
	})
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		want     model.Provider
		wantErr  error
		wantFail bool
	}{
		{name: "provider inferred from claude model", config: Config{APIKey: "k", Model: "claude-3-5-haiku-20241022"}, want: model.ProviderAnthropic},
		{name: "provider inferred from openai model", config: Config{APIKey: "k", Model: "o3-mini"}, want: model.ProviderOpenAI},
		{name: "explicit provider", config: Config{APIKey: "k", Provider: "Anthropic"}, want: model.ProviderAnthropic},
		{name: "missing key", config: Config{Model: "gpt-4o"}, wantErr: common.ErrMissingCredentials},
		{name: "unknown provider", config: Config{APIKey: "k", Provider: "cohere"}, wantErr: common.ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.Provider())
		})
	}
}
