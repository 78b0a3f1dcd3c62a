package optimize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/textlens/internal/budget"
	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/llm"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/session"
)

type fakeClient struct {
	err      error
	provider model.Provider
	text     string
	requests []llm.CompletionRequest
}

func (f *fakeClient) Provider() model.Provider { return f.provider }

func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.text}, nil
}

type countingLimiter struct {
	err       error
	providers []model.Provider
	calls     int
}

func (l *countingLimiter) Wait(_ context.Context, provider model.Provider) error {
	l.calls++
	l.providers = append(l.providers, provider)
	return l.err
}

type harness struct {
	optimizer *Optimizer
	client    *fakeClient
	limiter   *countingLimiter
	tracker   *budget.Tracker
	configs   []llm.Config
}

func newHarness(t *testing.T, client *fakeClient) *harness {
	t.Helper()
	prompts, err := NewPromptBuilder()
	require.NoError(t, err)

	h := &harness{
		client:  client,
		limiter: &countingLimiter{},
		tracker: budget.NewTracker(session.NewMemoryStore(), nil, nil),
	}
	h.optimizer, err = NewOptimizer(Deps{
		NewClient: func(cfg llm.Config) (llm.Client, error) {
			h.configs = append(h.configs, cfg)
			client.provider = model.Provider(cfg.Provider)
			return client, nil
		},
		Tracker: h.tracker,
		Limiter: h.limiter,
		Prompts: prompts,
	}, Config{AnthropicBaseURL: "http://anthropic.test", OpenAIBaseURL: "http://openai.test"})
	require.NoError(t, err)
	return h
}

var priorResult = &model.AnalysisResult{
	Entities: []model.Entity{{Type: "Company", Text: "Acme"}},
}

func TestOptimize_Success(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeClient{text: "  Our comfortable bra offers excellent support.  "})

	outcome, err := h.optimizer.Optimize(ctx, model.OptimizationRequest{
		OriginalText:   "Our bra offers support.",
		TargetKeywords: []string{"comfortable bra", "support"},
		PriorResult:    priorResult,
		Model:          "gpt-4o",
		APIKey:         "sk-test",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeOptimized, outcome.Kind)
	assert.Equal(t, "Our comfortable bra offers excellent support.", outcome.Text)
	assert.Equal(t, model.ProviderOpenAI, outcome.Provider)
	assert.Equal(t, []string{"comfortable bra"}, outcome.FocusKeywords)
	assert.Equal(t, []model.KeywordMatch{
		{Keyword: "comfortable bra", Status: model.KeywordExact},
		{Keyword: "support", Status: model.KeywordExact},
	}, outcome.Statuses)

	require.NotNil(t, outcome.Reanalysis)
	assert.Equal(t, "comfortable bra", outcome.Reanalysis.Keywords[0].Text)
	assert.InDelta(t, 0.95, outcome.Reanalysis.Keywords[0].Relevance, 1e-9)

	require.NotNil(t, outcome.Cost)
	b, err := h.tracker.Budget(ctx, model.ProviderOpenAI)
	require.NoError(t, err)
	assert.InDelta(t, outcome.Cost.EstimatedCost, b.TotalSpent, 1e-12)

	assert.Equal(t, 1, h.limiter.calls)
	assert.Equal(t, []model.Provider{model.ProviderOpenAI}, h.limiter.providers)
	require.Len(t, h.configs, 1)
	assert.Equal(t, "http://openai.test", h.configs[0].BaseURL)
	assert.Equal(t, "sk-test", h.configs[0].APIKey)

	require.Len(t, h.client.requests, 1)
	sent := h.client.requests[0]
	assert.Contains(t, sent.Prompt, "Our bra offers support.")
	assert.Contains(t, sent.Prompt, "comfortable bra, support", "prompt carries the unfiltered targets")
	assert.NotEmpty(t, sent.SystemPrompt)
}

func TestOptimize_RoutesClaudeToAnthropic(t *testing.T) {
	h := newHarness(t, &fakeClient{text: "Rewritten."})

	outcome, err := h.optimizer.Optimize(context.Background(), model.OptimizationRequest{
		OriginalText:   "Original.",
		TargetKeywords: []string{"brand voice"},
		Model:          "claude-3-5-haiku-20241022",
		APIKey:         "sk-ant",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ProviderAnthropic, outcome.Provider)
	assert.Equal(t, "anthropic", h.configs[0].Provider)
	assert.Equal(t, "http://anthropic.test", h.configs[0].BaseURL)
}

func TestOptimize_EmptyResponse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeClient{text: " \n\t "})

	_, err := h.optimizer.Optimize(ctx, model.OptimizationRequest{
		OriginalText:   "Original.",
		TargetKeywords: []string{"keyword phrase"},
		Model:          "gpt-4o",
		APIKey:         "k",
	})
	assert.ErrorIs(t, err, common.ErrEmptyResponse)

	h2, err := h.tracker.History(ctx, model.ProviderOpenAI)
	require.NoError(t, err)
	assert.Empty(t, h2, "blank output is not charged")
}

func TestOptimize_AnthropicAuthDegrades(t *testing.T) {
	ctx := context.Background()
	authErr := &common.APIError{Provider: "anthropic", StatusCode: 401, Message: "invalid x-api-key"}
	h := newHarness(t, &fakeClient{err: authErr})

	outcome, err := h.optimizer.Optimize(ctx, model.OptimizationRequest{
		OriginalText:   "Acme makes comfortable bras.",
		TargetKeywords: []string{"Acme", "comfortable bra", "support"},
		PriorResult:    priorResult,
		Model:          "claude-3-5-sonnet-20241022",
		APIKey:         "bad",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeDegraded, outcome.Kind)
	assert.Equal(t, []string{"Acme", "comfortable bra"}, outcome.FocusKeywords)
	assert.Contains(t, outcome.Text, "Acme, comfortable bra")
	assert.NotContains(t, outcome.Text, "support")
	assert.NotEmpty(t, outcome.Caveat)
	assert.Nil(t, outcome.Cost)

	history, err := h.tracker.History(ctx, model.ProviderAnthropic)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOptimize_OpenAIAuthPropagates(t *testing.T) {
	authErr := &common.APIError{Provider: "openai", StatusCode: 401, Message: "Incorrect API key provided"}
	h := newHarness(t, &fakeClient{err: authErr})

	outcome, err := h.optimizer.Optimize(context.Background(), model.OptimizationRequest{
		OriginalText:   "Text.",
		TargetKeywords: []string{"some keyword"},
		Model:          "gpt-4o-mini",
		APIKey:         "bad",
	})
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestOptimize_PreflightErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     model.OptimizationRequest
		wantErr error
	}{
		{
			name:    "missing key",
			req:     model.OptimizationRequest{OriginalText: "x", TargetKeywords: []string{"k w"}, Model: "gpt-4o"},
			wantErr: common.ErrMissingCredentials,
		},
		{
			name: "blank text",
			req:  model.OptimizationRequest{OriginalText: "  ", TargetKeywords: []string{"k w"}, APIKey: "k"},
		},
		{
			name: "no keywords",
			req:  model.OptimizationRequest{OriginalText: "x", TargetKeywords: []string{" "}, APIKey: "k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeClient{text: "unused"})
			_, err := h.optimizer.Optimize(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var userErr *common.UserError
				assert.True(t, errors.As(err, &userErr))
			}
			assert.Empty(t, h.client.requests)
			assert.Zero(t, h.limiter.calls)
		})
	}
}

func TestOptimize_LimiterCanceled(t *testing.T) {
	h := newHarness(t, &fakeClient{text: "unused"})
	h.limiter.err = context.Canceled

	_, err := h.optimizer.Optimize(context.Background(), model.OptimizationRequest{
		OriginalText: "x", TargetKeywords: []string{"a b"}, Model: "gpt-4o", APIKey: "k",
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.client.requests)
}

func TestResolveModel(t *testing.T) {
	id, c := ResolveModel(model.OptimizationRequest{Provider: model.ProviderAnthropic})
	assert.Equal(t, "claude-3-5-sonnet-20241022", id)
	assert.True(t, c.FailSoftAuth)

	id, c = ResolveModel(model.OptimizationRequest{Model: " o4-mini "})
	assert.Equal(t, "o4-mini", id)
	assert.Equal(t, model.ParamMaxCompletionTokens, c.ParamStyle)

	id, _ = ResolveModel(model.OptimizationRequest{})
	assert.Equal(t, "gpt-4o", id)
}

func TestNewOptimizer_RequiresDeps(t *testing.T) {
	_, err := NewOptimizer(Deps{}, Config{})
	assert.ErrorContains(t, err, "invalid dependencies")
}
