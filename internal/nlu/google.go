package nlu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/googleapi"
	language "google.golang.org/api/language/v1"
	"google.golang.org/api/option"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

// keywordSalience is the entity salience above which an entity also counts as a keyword.
const keywordSalience = 0.1

// Google endpoints.
const (
	googleAnnotateText           = "annotateText"
	googleAnalyzeEntitySentiment = "analyzeEntitySentiment"
	googleClassifyText           = "classifyText"
)

var googleFeatures = map[model.Feature]bool{
	model.FeatureKeywords:   true,
	model.FeatureEntities:   true,
	model.FeatureSentiment:  true,
	model.FeatureSyntax:     true,
	model.FeatureCategories: true,
}

// GoogleConfig configures the Google Cloud Natural Language adapter.
type GoogleConfig struct {
	Logger *slog.Logger
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint string
}

// GoogleClient calls the Google Cloud Natural Language v1 API.
type GoogleClient struct {
	svc    *language.Service
	logger *slog.Logger
}

// NewGoogleClient builds a client authenticated with an API key.
func NewGoogleClient(ctx context.Context, cfg GoogleConfig) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google api key: %w", common.ErrMissingCredentials)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := language.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create language service: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleClient{svc: svc, logger: logger}, nil
}

// Name returns the provider name.
func (c *GoogleClient) Name() string {
	return ProviderGoogle
}

// googleEndpoint picks the narrowest endpoint that serves the supported features.
func googleEndpoint(features []model.Feature) string {
	if len(features) == 1 {
		switch features[0] {
		case model.FeatureEntities:
			return googleAnalyzeEntitySentiment
		case model.FeatureCategories:
			return googleClassifyText
		}
	}
	return googleAnnotateText
}

func supportedGoogleFeatures(req model.AnalysisRequest) []model.Feature {
	var out []model.Feature
	for _, f := range req.Features {
		if googleFeatures[f] {
			out = append(out, f)
		}
	}
	return out
}

// Analyze sends one request to the endpoint chosen by the requested features.
func (c *GoogleClient) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	features := supportedGoogleFeatures(req)
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: none of the requested features are available from google", common.ErrInvalidConfig)
	}
	supported := req
	supported.Features = features

	doc := &language.Document{Type: "PLAIN_TEXT", Content: req.Text, Language: req.Language}
	endpoint := googleEndpoint(features)

	start := time.Now()
	var (
		result *model.AnalysisResult
		err    error
	)
	switch endpoint {
	case googleAnalyzeEntitySentiment:
		var resp *language.AnalyzeEntitySentimentResponse
		resp, err = c.svc.Documents.AnalyzeEntitySentiment(&language.AnalyzeEntitySentimentRequest{
			Document:     doc,
			EncodingType: "UTF8",
		}).Context(ctx).Do()
		if err == nil {
			result = normalizeGoogle(supported, resp.Language, resp.Entities, nil, nil)
		}
	case googleClassifyText:
		var resp *language.ClassifyTextResponse
		resp, err = c.svc.Documents.ClassifyText(&language.ClassifyTextRequest{
			Document: doc,
		}).Context(ctx).Do()
		if err == nil {
			result = normalizeGoogle(supported, req.Language, nil, nil, resp.Categories)
		}
	default:
		var resp *language.AnnotateTextResponse
		resp, err = c.svc.Documents.AnnotateText(&language.AnnotateTextRequest{
			Document:     doc,
			EncodingType: "UTF8",
			Features: &language.AnnotateTextRequestFeatures{
				ExtractEntities:          supported.Has(model.FeatureEntities) || supported.Has(model.FeatureKeywords),
				ExtractDocumentSentiment: supported.Has(model.FeatureSentiment),
				ExtractSyntax:            supported.Has(model.FeatureSyntax),
				ClassifyText:             supported.Has(model.FeatureCategories),
			},
		}).Context(ctx).Do()
		if err == nil {
			result = normalizeGoogle(supported, resp.Language, resp.Entities, resp.DocumentSentiment, resp.Categories)
		}
	}

	if err != nil {
		return nil, googleError(err)
	}

	c.logger.Debug("Google analyze completed",
		"endpoint", endpoint,
		"features", len(features),
		"duration", time.Since(start))

	return result, nil
}

func googleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &common.APIError{Provider: ProviderGoogle, StatusCode: gerr.Code, Message: gerr.Message}
	}
	return fmt.Errorf("google request failed: %w", err)
}

func normalizeGoogle(
	req model.AnalysisRequest,
	lang string,
	entities []*language.Entity,
	sentiment *language.Sentiment,
	categories []*language.ClassificationCategory,
) *model.AnalysisResult {
	out := &model.AnalysisResult{
		AnalyzedAt: time.Now().UTC(),
		Provider:   ProviderGoogle,
		Language:   lang,
	}

	for _, e := range entities {
		if e == nil {
			continue
		}
		if req.Has(model.FeatureEntities) {
			entity := model.Entity{
				Type:      e.Type,
				Text:      e.Name,
				Relevance: e.Salience,
				Count:     len(e.Mentions),
			}
			if e.Sentiment != nil {
				entity.Sentiment = &model.Sentiment{Label: sentimentLabel(e.Sentiment.Score), Score: e.Sentiment.Score}
			}
			out.Entities = append(out.Entities, entity)
		}
		if req.Has(model.FeatureKeywords) && e.Salience > keywordSalience {
			out.Keywords = append(out.Keywords, model.Keyword{
				Text:      e.Name,
				Relevance: e.Salience,
				Count:     len(e.Mentions),
			})
		}
	}

	if sentiment != nil && req.Has(model.FeatureSentiment) {
		out.Sentiment = &model.Sentiment{Label: sentimentLabel(sentiment.Score), Score: sentiment.Score}
	}

	for _, c := range categories {
		if c == nil {
			continue
		}
		out.Categories = append(out.Categories, model.Category{Label: categoryLabel(c.Name), Score: c.Confidence})
	}

	return out
}
