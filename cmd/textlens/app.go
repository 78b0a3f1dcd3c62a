package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/textlens/internal/analysis"
	"github.com/Veraticus/textlens/internal/budget"
	"github.com/Veraticus/textlens/internal/config"
	"github.com/Veraticus/textlens/internal/llm"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/nlu"
	"github.com/Veraticus/textlens/internal/optimize"
	"github.com/Veraticus/textlens/internal/session"
)

// app holds the services every command shares.
type app struct {
	store     session.Store
	vault     *session.Vault
	tracker   *budget.Tracker
	analysis  *analysis.Service
	optimizer *optimize.Optimizer
	resolver  optimize.Resolver
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := slog.Default()

	store, err := session.Open(ctx, cfg.Session.Backend, cfg.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	vault, err := session.NewVault(store, cfg.Session.Secret, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	tracker := budget.NewTracker(store, cfg.Budget.Providers(), logger)

	svc, err := analysis.NewService(analysis.Deps{
		Credentials: analysis.SessionCredentials{
			Store: store,
			Vault: vault,
			Base: analysis.Credentials{
				Watson: nlu.WatsonConfig{
					Logger:     logger,
					APIKey:     cfg.Watson.APIKey,
					URL:        cfg.Watson.URL,
					Region:     cfg.Watson.Region,
					InstanceID: cfg.Watson.InstanceID,
					AuthType:   cfg.Watson.AuthType,
					ProxyURL:   cfg.Watson.ProxyURL,
					Timeout:    cfg.Watson.Timeout,
				},
				Google: nlu.GoogleConfig{
					Logger:   logger,
					APIKey:   cfg.Google.APIKey,
					Endpoint: cfg.Google.Endpoint,
				},
			},
		},
		Store:  store,
		Logger: logger,
	}, analysis.Config{
		DefaultProvider: cfg.Analysis.DefaultProvider,
		DefaultLanguage: cfg.Analysis.DefaultLanguage,
		ToneLanguages:   cfg.Analysis.ToneLanguages,
		CacheTTL:        cfg.Analysis.CacheTTL,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	prompts, err := optimize.NewPromptBuilder()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	limiter := llm.NewRateLimiter(cfg.LLM.RequestsPerMinute)
	optimizer, err := optimize.NewOptimizer(optimize.Deps{
		NewClient: llm.NewClient,
		Tracker:   tracker,
		Limiter:   limiter,
		Prompts:   prompts,
		Logger:    logger,
	}, optimize.Config{
		OpenAIBaseURL:    cfg.LLM.OpenAIBaseURL,
		AnthropicBaseURL: cfg.LLM.AnthropicBaseURL,
		Timeout:          cfg.LLM.Timeout,
		Temperature:      cfg.LLM.Temperature,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		store:     store,
		vault:     vault,
		tracker:   tracker,
		analysis:  svc,
		optimizer: optimizer,
		resolver: optimize.Resolver{
			Store: store,
			Vault: vault,
			DefaultKeys: map[model.Provider]string{
				model.ProviderOpenAI:    cfg.LLM.OpenAIAPIKey,
				model.ProviderAnthropic: cfg.LLM.AnthropicAPIKey,
			},
			DefaultModel:    cfg.LLM.Model,
			DefaultProvider: model.Provider(cfg.LLM.Provider),
		},
		logger: logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close session store", "error", err)
	}
}
