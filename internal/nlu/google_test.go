package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

type googleCall struct {
	body map[string]any
	path string
	key  string
}

func googleServer(t *testing.T, status int, response string) (*httptest.Server, *googleCall) {
	t.Helper()
	call := &googleCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call.path = r.URL.Path
		call.key = r.URL.Query().Get("key")
		if call.key == "" {
			call.key = r.Header.Get("X-Goog-Api-Key")
		}
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &call.body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, call
}

func newGoogle(t *testing.T, srv *httptest.Server) *GoogleClient {
	t.Helper()
	client, err := NewGoogleClient(context.Background(), GoogleConfig{APIKey: "gkey", Endpoint: srv.URL + "/"})
	require.NoError(t, err)
	return client
}

const annotateResponse = `{
	"language": "en",
	"documentSentiment": {"score": 0.6, "magnitude": 1.2},
	"entities": [
		{"name": "Google", "type": "ORGANIZATION", "salience": 0.7, "mentions": [{}, {}], "sentiment": {"score": -0.2}},
		{"name": "weather", "type": "OTHER", "salience": 0.05, "mentions": [{}]}
	],
	"categories": [{"name": "/Computers & Electronics/Software", "confidence": 0.9}]
}`

func TestGoogleAnalyze_AnnotateText(t *testing.T) {
	srv, call := googleServer(t, http.StatusOK, annotateResponse)
	client := newGoogle(t, srv)

	result, err := client.Analyze(context.Background(), model.AnalysisRequest{
		Text: "Google makes software.",
		Features: []model.Feature{
			model.FeatureKeywords, model.FeatureEntities, model.FeatureSentiment,
			model.FeatureCategories, model.FeatureConcepts,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/documents:annotateText", call.path)
	assert.Equal(t, "gkey", call.key)
	assert.Equal(t, "UTF8", call.body["encodingType"])
	doc := call.body["document"].(map[string]any)
	assert.Equal(t, "PLAIN_TEXT", doc["type"])
	assert.Equal(t, "Google makes software.", doc["content"])
	features := call.body["features"].(map[string]any)
	assert.Equal(t, true, features["extractEntities"])
	assert.Equal(t, true, features["extractDocumentSentiment"])
	assert.Equal(t, true, features["classifyText"])
	assert.Nil(t, features["extractSyntax"])

	assert.Equal(t, ProviderGoogle, result.Provider)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "Google", result.Entities[0].Text)
	assert.InDelta(t, 0.7, result.Entities[0].Relevance, 1e-9)
	assert.Equal(t, 2, result.Entities[0].Count)
	assert.Equal(t, "negative", result.Entities[0].Sentiment.Label)

	require.Len(t, result.Keywords, 1, "only salient entities become keywords")
	assert.Equal(t, "Google", result.Keywords[0].Text)

	assert.Equal(t, "positive", result.Sentiment.Label)
	require.Len(t, result.Categories, 1)
	assert.Equal(t, "Computers & Electronics > Software", result.Categories[0].Label)
	assert.InDelta(t, 0.9, result.Categories[0].Score, 1e-9)
	assert.Empty(t, result.Concepts)
}

func TestGoogleAnalyze_EndpointSelection(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantPath string
		features []model.Feature
	}{
		{
			name:     "entities only",
			features: []model.Feature{model.FeatureEntities},
			response: `{"language":"en","entities":[{"name":"Paris","type":"LOCATION","salience":0.9}]}`,
			wantPath: "/v1/documents:analyzeEntitySentiment",
		},
		{
			name:     "categories only",
			features: []model.Feature{model.FeatureCategories},
			response: `{"categories":[{"name":"/News","confidence":0.5}]}`,
			wantPath: "/v1/documents:classifyText",
		},
		{
			name:     "unsupported features do not count",
			features: []model.Feature{model.FeatureEntities, model.FeatureRelations},
			response: `{"entities":[]}`,
			wantPath: "/v1/documents:analyzeEntitySentiment",
		},
		{
			name:     "two supported features",
			features: []model.Feature{model.FeatureEntities, model.FeatureSentiment},
			response: `{}`,
			wantPath: "/v1/documents:annotateText",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, call := googleServer(t, http.StatusOK, tt.response)
			client := newGoogle(t, srv)

			_, err := client.Analyze(context.Background(), model.AnalysisRequest{Text: "Paris news", Features: tt.features})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, call.path)
		})
	}
}

func TestGoogleAnalyze_NoSupportedFeatures(t *testing.T) {
	srv, call := googleServer(t, http.StatusOK, `{}`)
	client := newGoogle(t, srv)

	_, err := client.Analyze(context.Background(), model.AnalysisRequest{Text: "x", Features: []model.Feature{model.FeatureRelations}})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.Empty(t, call.path)
}

func TestGoogleAnalyze_APIError(t *testing.T) {
	srv, _ := googleServer(t, http.StatusForbidden, `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`)
	client := newGoogle(t, srv)

	_, err := client.Analyze(context.Background(), model.AnalysisRequest{Text: "x", Features: []model.Feature{model.FeatureSentiment}})
	require.Error(t, err)

	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ProviderGoogle, apiErr.Provider)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "permission")
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestNewGoogleClient_RequiresKey(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), GoogleConfig{})
	assert.ErrorIs(t, err, common.ErrMissingCredentials)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "positive", sentimentLabel(0.1))
	assert.Equal(t, "negative", sentimentLabel(-0.1))
	assert.Equal(t, "neutral", sentimentLabel(0))
	assert.Equal(t, "A > B > C", categoryLabel("/A/B/C"))
}
