// Package analysis runs text analyses against the configured NLU provider.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/nlu"
	"github.com/Veraticus/textlens/internal/session"
)

// AnalyzerFactory builds the adapter for provider from resolved credentials.
type AnalyzerFactory func(ctx context.Context, provider string, creds Credentials) (nlu.Analyzer, error)

// NewAnalyzer is the default AnalyzerFactory.
func NewAnalyzer(ctx context.Context, provider string, creds Credentials) (nlu.Analyzer, error) {
	switch provider {
	case nlu.ProviderWatson:
		return nlu.NewWatsonClient(creds.Watson)
	case nlu.ProviderGoogle:
		return nlu.NewGoogleClient(ctx, creds.Google)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedProvider, provider)
	}
}

// Deps contains all dependencies required by the analysis service.
type Deps struct {
	// Credentials resolves provider credentials for each run.
	Credentials CredentialSource
	// Store receives the last successful result.
	Store session.Store
	// NewAnalyzer builds provider adapters. Defaults to NewAnalyzer.
	NewAnalyzer AnalyzerFactory
	Logger      *slog.Logger
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Credentials == nil {
		return fmt.Errorf("credential source dependency is required")
	}
	if d.Store == nil {
		return fmt.Errorf("session store dependency is required")
	}
	return nil
}

// Config holds configuration options for the analysis service.
type Config struct {
	// DefaultProvider is used when Run is given no provider.
	DefaultProvider string
	// DefaultLanguage is assumed for the tone gate when a request names no language.
	DefaultLanguage string
	// ToneLanguages are the languages the tone classifications model supports.
	ToneLanguages []string
	// CacheTTL is how long identical requests are answered from memory.
	CacheTTL time.Duration
}

// DefaultConfig returns the default analysis configuration.
func DefaultConfig() Config {
	return Config{
		DefaultProvider: nlu.ProviderWatson,
		DefaultLanguage: "en",
		ToneLanguages:   []string{"en", "fr"},
		CacheTTL:        15 * time.Minute,
	}
}

// Service runs analyses and remembers the last result.
type Service struct {
	deps  Deps
	cache *resultCache
	tone  map[string]bool
	cfg   Config
}

// NewService creates a service with the provided dependencies.
func NewService(deps Deps, cfg Config) (*Service, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.NewAnalyzer == nil {
		deps.NewAnalyzer = NewAnalyzer
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	defaults := DefaultConfig()
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = defaults.DefaultProvider
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = defaults.DefaultLanguage
	}
	if len(cfg.ToneLanguages) == 0 {
		cfg.ToneLanguages = defaults.ToneLanguages
	}

	tone := make(map[string]bool, len(cfg.ToneLanguages))
	for _, lang := range cfg.ToneLanguages {
		tone[strings.ToLower(strings.TrimSpace(lang))] = true
	}

	return &Service{
		deps:  deps,
		cfg:   cfg,
		tone:  tone,
		cache: newResultCache(cfg.CacheTTL),
	}, nil
}

// Run analyzes req with provider ("watson" or "google"; empty selects the configured default).
//
// Credentials are checked before any network call. A tone classification request in a
// language the tone model does not support is dropped from the outgoing request.
func (s *Service) Run(ctx context.Context, req model.AnalysisRequest, provider string) (*model.AnalysisResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	if provider != nlu.ProviderWatson && provider != nlu.ProviderGoogle {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedProvider, provider)
	}

	creds, err := s.deps.Credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkCredentials(provider, creds); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, common.NewUserError("Enter some text to analyze.", nil)
	}
	if len(req.Features) == 0 {
		return nil, common.NewUserError("Select at least one analysis feature.", nil)
	}

	if req.Has(model.FeatureClassifications) && !s.toneSupported(req.Language) {
		s.deps.Logger.Debug("Dropping tone classification for unsupported language",
			"language", req.Language)
		req = req.Without(model.FeatureClassifications)
	}

	key := cacheKey(provider, req)
	if cached, ok := s.cache.get(key); ok {
		s.deps.Logger.Debug("Serving analysis from cache", "provider", provider)
		s.remember(ctx, cached)
		return cached, nil
	}

	analyzer, err := s.deps.NewAnalyzer(ctx, provider, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s analyzer: %w", provider, err)
	}

	start := time.Now()
	result, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text with %s: %w", provider, err)
	}
	if err := result.Keywords.Validate(); err != nil {
		return nil, fmt.Errorf("%s returned an invalid result: %w", provider, err)
	}

	s.deps.Logger.Info("Analysis completed",
		"provider", provider,
		"features", len(req.Features),
		"keywords", len(result.Keywords),
		"entities", len(result.Entities),
		"duration", time.Since(start))

	s.cache.put(key, result)
	s.remember(ctx, result)

	return result, nil
}

// remember saves result as the last analysis. Overlapping runs are not fenced; the last one to
// finish wins.
func (s *Service) remember(ctx context.Context, result *model.AnalysisResult) {
	if err := s.deps.Store.Set(ctx, session.KeyLastAnalysis, result); err != nil {
		s.deps.Logger.Warn("Failed to save last analysis", "error", err)
	}
}

// LastResult returns the most recent successful analysis, if any.
func (s *Service) LastResult(ctx context.Context) (*model.AnalysisResult, error) {
	result, ok, err := session.Load[model.AnalysisResult](ctx, s.deps.Store, session.KeyLastAnalysis)
	if err != nil {
		return nil, fmt.Errorf("failed to load last analysis: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &result, nil
}

func (s *Service) toneSupported(language string) bool {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		lang = s.cfg.DefaultLanguage
	}
	return s.tone[lang]
}

func checkCredentials(provider string, creds Credentials) error {
	switch provider {
	case nlu.ProviderWatson:
		if !creds.Watson.HasCredentials() {
			return fmt.Errorf("watson api key and service url or region: %w", common.ErrMissingCredentials)
		}
	case nlu.ProviderGoogle:
		if creds.Google.APIKey == "" {
			return fmt.Errorf("google api key: %w", common.ErrMissingCredentials)
		}
	}
	return nil
}
