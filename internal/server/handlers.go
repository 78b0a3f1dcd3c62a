package server

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/textlens/internal/keywords"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/nlu"
	"github.com/Veraticus/textlens/internal/session"
)

type healthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version,omitempty"`
	Time    time.Time `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.cfg.Version,
		Time:    time.Now().UTC(),
	})
}

type analyzeRequest struct {
	Limits   map[model.Feature]int `json:"limits,omitempty"`
	Text     string                `json:"text"`
	Language string                `json:"language,omitempty"`
	Provider string                `json:"provider,omitempty"`
	Features []string              `json:"features"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	req := model.AnalysisRequest{
		Text:     body.Text,
		Language: body.Language,
		Limits:   body.Limits,
	}
	for _, name := range body.Features {
		f, ok := model.ParseFeature(name)
		if !ok {
			s.writeError(w, r, badRequest("Unknown analysis feature %q.", name))
			return
		}
		req.Features = append(req.Features, f)
	}
	if req.Has(model.FeatureClassifications) {
		req.ToneModel = nlu.ToneModel(req.Language)
	}

	result, err := s.deps.Analyzer.Run(r.Context(), req, body.Provider)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLastAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Analyzer.LastResult(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{
			Error:    "no analysis yet",
			Guidance: "Run an analysis first.",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type optimizeRequest struct {
	PriorResult    *model.AnalysisResult `json:"priorResult,omitempty"`
	OriginalText   string                `json:"originalText"`
	Provider       string                `json:"provider,omitempty"`
	Model          string                `json:"model,omitempty"`
	APIKey         string                `json:"apiKey,omitempty"`
	TargetKeywords []string              `json:"targetKeywords"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	req := model.OptimizationRequest{
		OriginalText:   body.OriginalText,
		Model:          body.Model,
		APIKey:         body.APIKey,
		TargetKeywords: body.TargetKeywords,
		PriorResult:    body.PriorResult,
	}
	if body.Provider != "" {
		p, err := model.ParseProvider(body.Provider)
		if err != nil {
			s.writeError(w, r, badRequest("%v", err))
			return
		}
		req.Provider = p
	}

	ctx := r.Context()
	if req.PriorResult == nil {
		last, err := s.deps.Analyzer.LastResult(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.PriorResult = last
	}
	if err := s.deps.Keys.Resolve(ctx, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.deps.Optimizer.Optimize(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

type keywordStatusRequest struct {
	Result         *model.AnalysisResult `json:"result,omitempty"`
	TargetKeywords []string              `json:"targetKeywords"`
}

type keywordStatusResponse struct {
	Statuses []model.KeywordMatch `json:"statuses"`
}

func (s *Server) handleKeywordStatus(w http.ResponseWriter, r *http.Request) {
	var body keywordStatusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	result := body.Result
	if result == nil {
		last, err := s.deps.Analyzer.LastResult(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		result = last
	}

	s.writeJSON(w, http.StatusOK, keywordStatusResponse{
		Statuses: keywords.MatchAll(keywords.Dedupe(body.TargetKeywords), result),
	})
}

func (s *Server) handleCostSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.deps.Costs.Summaries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

type providerCostsResponse struct {
	Provider model.Provider     `json:"provider"`
	History  []model.CostRecord `json:"history"`
	Budget   model.Budget       `json:"budget"`
}

func (s *Server) handleProviderCosts(w http.ResponseWriter, r *http.Request) {
	p, ok := s.providerParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	b, err := s.deps.Costs.Budget(ctx, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.deps.Costs.History(ctx, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []model.CostRecord{}
	}
	s.writeJSON(w, http.StatusOK, providerCostsResponse{Provider: p, Budget: b, History: history})
}

type budgetRequest struct {
	Amount *float64 `json:"amount"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.providerParam(w, r)
	if !ok {
		return
	}

	var body budgetRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Amount == nil || *body.Amount < 0 || math.IsNaN(*body.Amount) || math.IsInf(*body.Amount, 0) {
		s.writeError(w, r, badRequest("Budget amount must be a non-negative number."))
		return
	}

	b, err := s.deps.Costs.SetBudget(r.Context(), p, *body.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleResetProviderCosts(w http.ResponseWriter, r *http.Request) {
	p, ok := s.providerParam(w, r)
	if !ok {
		return
	}
	if err := s.deps.Costs.ResetTracking(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetAllCosts(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Costs.ResetAll(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) providerParam(w http.ResponseWriter, r *http.Request) (model.Provider, bool) {
	p, err := model.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		s.writeError(w, r, badRequest("%v", err))
		return "", false
	}
	return p, true
}

// keyProviders are the providers whose API keys can be managed through settings.
var keyProviders = []string{
	nlu.ProviderWatson,
	nlu.ProviderGoogle,
	string(model.ProviderOpenAI),
	string(model.ProviderAnthropic),
}

type settingsResponse struct {
	APIKeys      map[string]bool     `json:"apiKeys"`
	Credentials  session.Credentials `json:"credentials"`
	AISettings   session.AISettings  `json:"aiSettings"`
	CORSProxyURL string              `json:"corsProxyUrl,omitempty"`
	KeysSealed   bool                `json:"keysSealed"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := settingsResponse{
		APIKeys:    make(map[string]bool, len(keyProviders)),
		KeysSealed: s.deps.Vault.Sealed(),
	}

	var err error
	if resp.Credentials, _, err = session.Load[session.Credentials](ctx, s.deps.Store, session.KeyCredentials); err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.AISettings, _, err = session.Load[session.AISettings](ctx, s.deps.Store, session.KeyAISettings); err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.CORSProxyURL, _, err = session.Load[string](ctx, s.deps.Store, session.KeyCORSProxyURL); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Stored keys never leave the server.
	for _, p := range keyProviders {
		if resp.APIKeys[p], err = s.deps.Vault.HasAPIKey(ctx, p); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// settingsRequest updates only the fields that are present.
type settingsRequest struct {
	Credentials  *session.Credentials `json:"credentials,omitempty"`
	AISettings   *session.AISettings  `json:"aiSettings,omitempty"`
	CORSProxyURL *string              `json:"corsProxyUrl,omitempty"`
	// APIKeys maps a provider to its key. An empty key deletes the stored one.
	APIKeys map[string]string `json:"apiKeys,omitempty"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSettings(body); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if body.Credentials != nil {
		if err := s.deps.Store.Set(ctx, session.KeyCredentials, body.Credentials); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if body.AISettings != nil {
		if err := s.deps.Store.Set(ctx, session.KeyAISettings, body.AISettings); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if body.CORSProxyURL != nil {
		if err := s.deps.Store.Set(ctx, session.KeyCORSProxyURL, strings.TrimSpace(*body.CORSProxyURL)); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	for p, key := range body.APIKeys {
		var err error
		if key == "" {
			err = s.deps.Vault.DeleteAPIKey(ctx, p)
		} else {
			err = s.deps.Vault.SetAPIKey(ctx, p, key)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	s.handleGetSettings(w, r)
}

func validateSettings(body settingsRequest) error {
	if body.AISettings != nil && body.AISettings.Provider != "" {
		if _, err := model.ParseProvider(body.AISettings.Provider); err != nil {
			return badRequest("%v", err)
		}
	}
	for p := range body.APIKeys {
		known := false
		for _, kp := range keyProviders {
			if strings.EqualFold(p, kp) {
				known = true
				break
			}
		}
		if !known {
			return badRequest("Unknown provider %q for API key.", p)
		}
	}
	return nil
}
