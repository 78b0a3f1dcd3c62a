package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

// Watson auth types.
const (
	AuthBasic  = "basic"
	AuthBearer = "bearer"
)

const (
	watsonAPIVersion = "2022-04-07"
	watsonURLPattern = "https://api.%s.natural-language-understanding.watson.cloud.ibm.com/instances/%s"

	defaultLimit         = 10
	defaultCategoryLimit = 3
)

// WatsonConfig configures the Watson NLU adapter.
type WatsonConfig struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	APIKey     string
	// URL is the full instance URL. When empty it is built from Region and InstanceID.
	URL        string
	Region     string
	InstanceID string
	AuthType   string
	// ProxyURL is prepended to the request URL, as CORS proxies expect.
	ProxyURL string
	Timeout  time.Duration
}

// HasCredentials reports whether a key and a way to address the instance are configured.
func (c WatsonConfig) HasCredentials() bool {
	return c.APIKey != "" && (c.URL != "" || (c.Region != "" && c.InstanceID != ""))
}

// Endpoint returns the analyze URL.
func (c WatsonConfig) Endpoint() (string, error) {
	base := strings.TrimRight(c.URL, "/")
	if base == "" {
		if c.Region == "" || c.InstanceID == "" {
			return "", fmt.Errorf("watson service URL or region and instance id: %w", common.ErrMissingCredentials)
		}
		base = fmt.Sprintf(watsonURLPattern, c.Region, c.InstanceID)
	}
	base = strings.TrimSuffix(base, "/v1/analyze")

	endpoint := base + "/v1/analyze?version=" + watsonAPIVersion
	if c.ProxyURL != "" {
		proxy := c.ProxyURL
		if !strings.HasSuffix(proxy, "/") {
			proxy += "/"
		}
		endpoint = proxy + endpoint
	}
	return endpoint, nil
}

// WatsonClient calls the IBM Watson Natural Language Understanding API.
type WatsonClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
	authType   string
}

// NewWatsonClient validates cfg and builds a client.
func NewWatsonClient(cfg WatsonConfig) (*WatsonClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("watson api key: %w", common.ErrMissingCredentials)
	}
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	authType := strings.ToLower(cfg.AuthType)
	switch authType {
	case "", "iam", "apikey", AuthBasic:
		authType = AuthBasic
	case AuthBearer:
	default:
		return nil, fmt.Errorf("%w: watson auth type %q", common.ErrInvalidConfig, cfg.AuthType)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if authType == AuthBearer {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout: httpClient.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
				Base:   base,
			},
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WatsonClient{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		authType:   authType,
	}, nil
}

// Name returns the provider name.
func (c *WatsonClient) Name() string {
	return ProviderWatson
}

// Analyze sends one analyze request.
func (c *WatsonClient) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	body, err := json.Marshal(buildWatsonRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.authType == AuthBasic {
		httpReq.SetBasicAuth("apikey", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("watson request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Watson analyze completed",
		"status", resp.StatusCode,
		"features", len(req.Features),
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &common.APIError{
			Provider:   ProviderWatson,
			StatusCode: resp.StatusCode,
			Message:    watsonErrorMessage(respBody),
		}
	}

	var parsed watsonResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return parsed.normalize(), nil
}

func watsonErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

type watsonRequest struct {
	Features watsonFeatures `json:"features"`
	Text     string         `json:"text"`
	Language string         `json:"language,omitempty"`
}

type watsonFeatures struct {
	Keywords        *watsonLimitSentiment  `json:"keywords,omitempty"`
	Entities        *watsonLimitSentiment  `json:"entities,omitempty"`
	Concepts        *watsonLimit           `json:"concepts,omitempty"`
	Categories      *watsonLimit           `json:"categories,omitempty"`
	SemanticRoles   *watsonLimit           `json:"semantic_roles,omitempty"`
	Classifications *watsonClassifications `json:"classifications,omitempty"`
	Sentiment       *watsonDocument        `json:"sentiment,omitempty"`
	Emotion         *watsonDocument        `json:"emotion,omitempty"`
	Relations       *struct{}              `json:"relations,omitempty"`
	Syntax          *watsonSyntax          `json:"syntax,omitempty"`
}

type watsonLimitSentiment struct {
	Limit     int  `json:"limit"`
	Sentiment bool `json:"sentiment"`
}

type watsonLimit struct {
	Limit int `json:"limit"`
}

type watsonClassifications struct {
	Model string `json:"model"`
}

type watsonDocument struct {
	Document bool `json:"document"`
}

type watsonSyntax struct {
	Tokens    watsonSyntaxTokens `json:"tokens"`
	Sentences bool               `json:"sentences"`
}

type watsonSyntaxTokens struct {
	Lemma        bool `json:"lemma"`
	PartOfSpeech bool `json:"part_of_speech"`
}

// ToneModel returns the classifications model for a language, e.g. "tone-classifications-fr-v1".
func ToneModel(language string) string {
	if language == "" {
		language = "en"
	}
	return "tone-classifications-" + language + "-v1"
}

func buildWatsonRequest(req model.AnalysisRequest) watsonRequest {
	out := watsonRequest{Text: req.Text, Language: req.Language}
	f := &out.Features

	for _, feature := range req.Features {
		switch feature {
		case model.FeatureKeywords:
			f.Keywords = &watsonLimitSentiment{Limit: req.Limit(feature, defaultLimit), Sentiment: true}
		case model.FeatureEntities:
			f.Entities = &watsonLimitSentiment{Limit: req.Limit(feature, defaultLimit), Sentiment: true}
		case model.FeatureConcepts:
			f.Concepts = &watsonLimit{Limit: req.Limit(feature, defaultLimit)}
		case model.FeatureCategories:
			f.Categories = &watsonLimit{Limit: req.Limit(feature, defaultCategoryLimit)}
		case model.FeatureSemanticRoles:
			f.SemanticRoles = &watsonLimit{Limit: req.Limit(feature, defaultLimit)}
		case model.FeatureClassifications:
			toneModel := req.ToneModel
			if toneModel == "" {
				toneModel = ToneModel(req.Language)
			}
			f.Classifications = &watsonClassifications{Model: toneModel}
		case model.FeatureSentiment:
			f.Sentiment = &watsonDocument{Document: true}
		case model.FeatureEmotion:
			f.Emotion = &watsonDocument{Document: true}
		case model.FeatureRelations:
			f.Relations = &struct{}{}
		case model.FeatureSyntax:
			f.Syntax = &watsonSyntax{Sentences: true, Tokens: watsonSyntaxTokens{Lemma: true, PartOfSpeech: true}}
		}
	}
	return out
}

type watsonSentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (s *watsonSentiment) toModel() *model.Sentiment {
	if s == nil {
		return nil
	}
	label := s.Label
	if label == "" {
		label = sentimentLabel(s.Score)
	}
	return &model.Sentiment{Label: label, Score: s.Score}
}

type watsonResponse struct {
	Sentiment *struct {
		Document *watsonSentiment `json:"document"`
	} `json:"sentiment"`
	Emotion *struct {
		Document *struct {
			Emotion map[string]float64 `json:"emotion"`
		} `json:"document"`
	} `json:"emotion"`
	Language string `json:"language"`
	Keywords []struct {
		Sentiment *watsonSentiment `json:"sentiment"`
		Text      string           `json:"text"`
		Relevance float64          `json:"relevance"`
		Count     int              `json:"count"`
	} `json:"keywords"`
	Entities []struct {
		Sentiment *watsonSentiment `json:"sentiment"`
		Type      string           `json:"type"`
		Text      string           `json:"text"`
		Relevance float64          `json:"relevance"`
		Count     int              `json:"count"`
	} `json:"entities"`
	Concepts []struct {
		Text      string  `json:"text"`
		Resource  string  `json:"dbpedia_resource"`
		Relevance float64 `json:"relevance"`
	} `json:"concepts"`
	Categories []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"categories"`
	Relations []struct {
		Type      string  `json:"type"`
		Sentence  string  `json:"sentence"`
		Arguments []struct {
			Text     string `json:"text"`
			Entities []struct {
				Type string `json:"type"`
			} `json:"entities"`
		} `json:"arguments"`
		Score float64 `json:"score"`
	} `json:"relations"`
	Classifications []struct {
		ClassName  string  `json:"class_name"`
		Confidence float64 `json:"confidence"`
	} `json:"classifications"`
}

func (r watsonResponse) normalize() *model.AnalysisResult {
	out := &model.AnalysisResult{
		AnalyzedAt: time.Now().UTC(),
		Provider:   ProviderWatson,
		Language:   r.Language,
	}

	for _, k := range r.Keywords {
		out.Keywords = append(out.Keywords, model.Keyword{
			Text:      k.Text,
			Relevance: k.Relevance,
			Count:     k.Count,
			Sentiment: k.Sentiment.toModel(),
		})
	}
	for _, e := range r.Entities {
		out.Entities = append(out.Entities, model.Entity{
			Type:      e.Type,
			Text:      e.Text,
			Relevance: e.Relevance,
			Count:     e.Count,
			Sentiment: e.Sentiment.toModel(),
		})
	}
	for _, c := range r.Concepts {
		out.Concepts = append(out.Concepts, model.Concept{Text: c.Text, Resource: c.Resource, Relevance: c.Relevance})
	}
	for _, c := range r.Categories {
		out.Categories = append(out.Categories, model.Category{Label: categoryLabel(c.Label), Score: c.Score})
	}
	for _, rel := range r.Relations {
		relation := model.Relation{Type: rel.Type, Sentence: rel.Sentence, Score: rel.Score}
		for _, arg := range rel.Arguments {
			a := model.RelationArgument{Text: arg.Text}
			if len(arg.Entities) > 0 {
				a.EntityType = arg.Entities[0].Type
			}
			relation.Arguments = append(relation.Arguments, a)
		}
		out.Relations = append(out.Relations, relation)
	}
	for _, c := range r.Classifications {
		out.Classifications = append(out.Classifications, model.Classification{ClassName: c.ClassName, Confidence: c.Confidence})
	}
	if r.Sentiment != nil && r.Sentiment.Document != nil {
		out.Sentiment = r.Sentiment.Document.toModel()
	}
	if r.Emotion != nil && r.Emotion.Document != nil {
		out.Emotion = r.Emotion.Document.Emotion
	}

	return out
}
