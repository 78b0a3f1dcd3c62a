// Package optimize rewrites analyzed text for target keywords through an LLM and accounts for the cost.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/keywords"
	"github.com/Veraticus/textlens/internal/llm"
	"github.com/Veraticus/textlens/internal/model"
)

// Default models per provider, used when a request names none.
var defaultModels = map[model.Provider]string{
	model.ProviderOpenAI:    "gpt-4o",
	model.ProviderAnthropic: "claude-3-5-sonnet-20241022",
}

// CostTracker charges completed calls.
type CostTracker interface {
	TrackOperation(ctx context.Context, modelID, inputText, outputText string) (*model.CostRecord, error)
}

// Limiter gates dispatches per provider.
type Limiter interface {
	Wait(ctx context.Context, provider model.Provider) error
}

// ClientFactory builds the provider client for one request.
type ClientFactory func(cfg llm.Config) (llm.Client, error)

// Deps contains all dependencies required by the optimizer.
type Deps struct {
	// NewClient builds provider clients. Defaults to llm.NewClient.
	NewClient ClientFactory
	// Tracker records the cost of successful rewrites.
	Tracker CostTracker
	// Limiter gates every dispatch.
	Limiter Limiter
	// Prompts renders the system and user prompts.
	Prompts *PromptBuilder
	Logger  *slog.Logger
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Tracker == nil {
		return fmt.Errorf("cost tracker dependency is required")
	}
	if d.Limiter == nil {
		return fmt.Errorf("rate limiter dependency is required")
	}
	if d.Prompts == nil {
		return fmt.Errorf("prompt builder dependency is required")
	}
	return nil
}

// Config holds provider connection settings shared by every request.
type Config struct {
	OpenAIBaseURL    string
	AnthropicBaseURL string
	Timeout          time.Duration
	Temperature      float64
}

// Optimizer runs keyword optimizations.
type Optimizer struct {
	deps Deps
	cfg  Config
}

// NewOptimizer creates an optimizer with the provided dependencies.
func NewOptimizer(deps Deps, cfg Config) (*Optimizer, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.NewClient == nil {
		deps.NewClient = llm.NewClient
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Optimizer{deps: deps, cfg: cfg}, nil
}

// ResolveModel returns the model a request will use and the capability that routes it.
func ResolveModel(req model.OptimizationRequest) (string, model.Capability) {
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		provider := req.Provider
		if provider == "" {
			provider = model.ProviderOpenAI
		}
		modelID = defaultModels[provider]
	}
	return modelID, model.CapabilityFor(modelID)
}

// Optimize rewrites req.OriginalText for req.TargetKeywords.
//
// Authentication failures from providers whose capability is fail-soft produce a degraded
// outcome with no cost charged. Every other failure is returned as an error.
func (o *Optimizer) Optimize(ctx context.Context, req model.OptimizationRequest) (*model.OptimizationOutcome, error) {
	text := req.OriginalText
	if strings.TrimSpace(text) == "" {
		return nil, common.NewUserError("Enter or analyze some text before optimizing.", nil)
	}
	targets := keywords.Dedupe(req.TargetKeywords)
	if len(targets) == 0 {
		return nil, common.NewUserError("Add at least one target keyword to optimize for.", nil)
	}

	modelID, capability := ResolveModel(req)
	if req.APIKey == "" {
		return nil, fmt.Errorf("%s api key: %w", capability.Provider, common.ErrMissingCredentials)
	}

	focus := keywords.FilterTargets(targets, req.PriorResult)

	systemPrompt, err := o.deps.Prompts.SystemPrompt()
	if err != nil {
		return nil, err
	}
	prompt, err := o.deps.Prompts.BuildPrompt(PromptData{Text: text, Keywords: targets})
	if err != nil {
		return nil, err
	}

	client, err := o.deps.NewClient(llm.Config{
		Provider:    string(capability.Provider),
		APIKey:      req.APIKey,
		Model:       modelID,
		BaseURL:     o.baseURL(capability.Provider),
		Timeout:     o.cfg.Timeout,
		Temperature: o.cfg.Temperature,
		Logger:      o.deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", capability.Provider, err)
	}

	if err := o.deps.Limiter.Wait(ctx, capability.Provider); err != nil {
		return nil, err
	}

	o.deps.Logger.Info("Optimizing text",
		"provider", capability.Provider,
		"model", modelID,
		"targets", len(targets),
		"focus", len(focus),
		"chars", len(text))

	completion, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		MaxTokens:    llm.DefaultMaxTokens,
	})
	if err != nil {
		if capability.FailSoftAuth && errors.Is(err, common.ErrAuth) {
			o.deps.Logger.Warn("Provider rejected credentials, returning fallback text",
				"provider", capability.Provider,
				"model", modelID,
				"error", err)
			return &model.OptimizationOutcome{
				Kind:          model.OutcomeDegraded,
				Text:          FallbackText(capability.Provider, focus),
				Model:         modelID,
				Provider:      capability.Provider,
				Caveat:        common.Guidance(err),
				FocusKeywords: focus,
				Statuses:      keywords.MatchAll(targets, req.PriorResult),
			}, nil
		}
		return nil, fmt.Errorf("failed to optimize text: %w", err)
	}

	optimized := strings.TrimSpace(completion.Text)
	if optimized == "" {
		return nil, fmt.Errorf("%s returned blank text: %w", modelID, common.ErrEmptyResponse)
	}

	reanalysis := keywords.Reanalyze(optimized, targets)

	cost, err := o.deps.Tracker.TrackOperation(ctx, modelID, systemPrompt+"\n\n"+prompt, optimized)
	if err != nil {
		o.deps.Logger.Error("Failed to record optimization cost", "model", modelID, "error", err)
	}

	return &model.OptimizationOutcome{
		Kind:          model.OutcomeOptimized,
		Text:          optimized,
		Model:         modelID,
		Provider:      capability.Provider,
		Cost:          cost,
		Reanalysis:    reanalysis,
		FocusKeywords: focus,
		Statuses:      keywords.MatchAll(targets, reanalysis),
	}, nil
}

func (o *Optimizer) baseURL(p model.Provider) string {
	if p == model.ProviderAnthropic {
		return o.cfg.AnthropicBaseURL
	}
	return o.cfg.OpenAIBaseURL
}

// FallbackText is returned in place of a rewrite when the provider rejects the API key.
func FallbackText(p model.Provider, focus []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automatic optimization is unavailable because the %s API key was rejected. ", p)
	if len(focus) == 0 {
		b.WriteString("No brand names or multi-word phrases were found among the target keywords. ")
	} else {
		fmt.Fprintf(&b, "Focus your manual rewrite on these keywords: %s. ", strings.Join(focus, ", "))
	}
	b.WriteString("Update the API key in settings to enable automatic optimization.")
	return b.String()
}
