package nlu

import (
	"context"
	"encoding/base64"
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

type capturedRequest struct {
	header http.Header
	body   map[string]any
	path   string
	query  string
}

func watsonServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.header = r.Header.Clone()
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &captured.body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestWatsonAnalyze_KeywordsOnlyRequestBody(t *testing.T) {
	srv, captured := watsonServer(t, http.StatusOK, `{
		"language": "en",
		"keywords": [{"text": "IBM Watson", "relevance": 0.98, "count": 1, "sentiment": {"score": 0.9, "label": "positive"}}]
	}`)

	client, err := NewWatsonClient(WatsonConfig{APIKey: "secret", URL: srv.URL})
	require.NoError(t, err)

	result, err := client.Analyze(context.Background(), model.AnalysisRequest{
		Text:     "IBM Watson is great.",
		Features: []model.Feature{model.FeatureKeywords},
		Limits:   map[model.Feature]int{model.FeatureKeywords: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/analyze", captured.path)
	assert.Equal(t, "version=2022-04-07", captured.query)
	assert.Equal(t, "IBM Watson is great.", captured.body["text"])

	features, ok := captured.body["features"].(map[string]any)
	require.True(t, ok)
	require.Len(t, features, 1)
	kw, ok := features["keywords"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 5, kw["limit"], 0)
	assert.Equal(t, true, kw["sentiment"])
	_, hasLanguage := captured.body["language"]
	assert.False(t, hasLanguage)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("apikey:secret"))
	assert.Equal(t, wantAuth, captured.header.Get("Authorization"))

	assert.Equal(t, ProviderWatson, result.Provider)
	require.Len(t, result.Keywords, 1)
	assert.Equal(t, "IBM Watson", result.Keywords[0].Text)
	assert.Equal(t, "positive", result.Keywords[0].Sentiment.Label)
}

func TestWatsonAnalyze_AllFeatures(t *testing.T) {
	srv, captured := watsonServer(t, http.StatusOK, `{
		"language": "fr",
		"entities": [{"type": "Company", "text": "IBM", "relevance": 0.9, "count": 2}],
		"concepts": [{"text": "Cloud", "relevance": 0.7, "dbpedia_resource": "http://dbpedia.org/resource/Cloud"}],
		"categories": [{"label": "/technology and computing/software", "score": 0.8}],
		"relations": [{"type": "employedBy", "sentence": "Ana works at IBM.", "score": 0.6,
			"arguments": [{"text": "Ana", "entities": [{"type": "Person"}]}, {"text": "IBM", "entities": [{"type": "Organization"}]}]}],
		"classifications": [{"class_name": "excited", "confidence": 0.7}],
		"sentiment": {"document": {"score": -0.4, "label": "negative"}},
		"emotion": {"document": {"emotion": {"joy": 0.2, "anger": 0.6}}}
	}`)

	client, err := NewWatsonClient(WatsonConfig{APIKey: "k", URL: srv.URL + "/"})
	require.NoError(t, err)

	result, err := client.Analyze(context.Background(), model.AnalysisRequest{
		Text:     "Ana works at IBM.",
		Language: "fr",
		Features: model.AllFeatures,
	})
	require.NoError(t, err)

	features := captured.body["features"].(map[string]any)
	assert.Len(t, features, len(model.AllFeatures))
	assert.Equal(t, map[string]any{"limit": float64(10), "sentiment": true}, features["entities"])
	assert.Equal(t, map[string]any{"limit": float64(3)}, features["categories"])
	assert.Equal(t, map[string]any{"model": "tone-classifications-fr-v1"}, features["classifications"])
	assert.Equal(t, map[string]any{"document": true}, features["emotion"])
	assert.Equal(t, map[string]any{}, features["relations"])
	assert.Equal(t, map[string]any{
		"sentences": true,
		"tokens":    map[string]any{"lemma": true, "part_of_speech": true},
	}, features["syntax"])
	assert.Equal(t, "fr", captured.body["language"])

	assert.Equal(t, "fr", result.Language)
	assert.Equal(t, "technology and computing > software", result.Categories[0].Label)
	assert.Equal(t, "http://dbpedia.org/resource/Cloud", result.Concepts[0].Resource)
	assert.Equal(t, "Organization", result.Relations[0].Arguments[1].EntityType)
	assert.Equal(t, "excited", result.Classifications[0].ClassName)
	assert.Equal(t, "negative", result.Sentiment.Label)
	assert.InDelta(t, 0.6, result.Emotion["anger"], 1e-9)
}

func TestWatsonAnalyze_BearerAuth(t *testing.T) {
	srv, captured := watsonServer(t, http.StatusOK, `{}`)

	client, err := NewWatsonClient(WatsonConfig{APIKey: "token-123", URL: srv.URL, AuthType: "Bearer"})
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), model.AnalysisRequest{Text: "x", Features: []model.Feature{model.FeatureSentiment}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", captured.header.Get("Authorization"))
}

func TestWatsonAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantMsg  string
		status   int
		wantAuth bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"Unauthorized","code":401}`, wantMsg: "Unauthorized", wantAuth: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"unsupported text language","code":400}`, wantMsg: "unsupported text language"},
		{name: "plain body", status: http.StatusBadGateway, body: "upstream down", wantMsg: "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := watsonServer(t, tt.status, tt.body)
			client, err := NewWatsonClient(WatsonConfig{APIKey: "k", URL: srv.URL})
			require.NoError(t, err)

			_, err = client.Analyze(context.Background(), model.AnalysisRequest{Text: "x", Features: []model.Feature{model.FeatureKeywords}})
			require.Error(t, err)

			var apiErr *common.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantAuth, errors.Is(err, common.ErrAuth))
		})
	}
}

func TestWatsonConfig_Endpoint(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WatsonConfig
		want    string
		wantErr bool
	}{
		{
			name: "region and instance",
			cfg:  WatsonConfig{Region: "us-south", InstanceID: "abc"},
			want: "https://api.us-south.natural-language-understanding.watson.cloud.ibm.com/instances/abc/v1/analyze?version=2022-04-07",
		},
		{
			name: "custom url wins",
			cfg:  WatsonConfig{URL: "https://nlu.example.com/instances/x/", Region: "eu-de", InstanceID: "y"},
			want: "https://nlu.example.com/instances/x/v1/analyze?version=2022-04-07",
		},
		{
			name: "custom url already pointing at analyze",
			cfg:  WatsonConfig{URL: "https://nlu.example.com/v1/analyze"},
			want: "https://nlu.example.com/v1/analyze?version=2022-04-07",
		},
		{
			name: "proxy prefix",
			cfg:  WatsonConfig{URL: "https://nlu.example.com", ProxyURL: "https://proxy.example.com"},
			want: "https://proxy.example.com/https://nlu.example.com/v1/analyze?version=2022-04-07",
		},
		{
			name:    "nothing to address",
			cfg:     WatsonConfig{Region: "us-south"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Endpoint()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrMissingCredentials)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWatsonClient_Validation(t *testing.T) {
	_, err := NewWatsonClient(WatsonConfig{URL: "https://x"})
	assert.ErrorIs(t, err, common.ErrMissingCredentials)

	_, err = NewWatsonClient(WatsonConfig{APIKey: "k", URL: "https://x", AuthType: "kerberos"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	assert.True(t, WatsonConfig{APIKey: "k", Region: "r", InstanceID: "i"}.HasCredentials())
	assert.False(t, WatsonConfig{APIKey: "k"}.HasCredentials())
}

func TestToneModel(t *testing.T) {
	assert.Equal(t, "tone-classifications-en-v1", ToneModel(""))
	assert.True(t, strings.HasSuffix(ToneModel("fr"), "-fr-v1"))
}
