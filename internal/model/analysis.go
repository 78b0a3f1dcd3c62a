// Package model defines the core domain models used throughout the application.
package model

import "time"

// Feature names an analysis capability that can be requested from an NLU provider.
type Feature string

// Supported analysis features.
const (
	FeatureKeywords        Feature = "keywords"
	FeatureEntities        Feature = "entities"
	FeatureConcepts        Feature = "concepts"
	FeatureCategories      Feature = "categories"
	FeatureRelations       Feature = "relations"
	FeatureClassifications Feature = "classifications"
	FeatureSentiment       Feature = "sentiment"
	FeatureEmotion         Feature = "emotion"
	FeatureSemanticRoles   Feature = "semantic_roles"
	FeatureSyntax          Feature = "syntax"
)

// AllFeatures lists every feature in a stable order.
var AllFeatures = []Feature{
	FeatureKeywords,
	FeatureEntities,
	FeatureConcepts,
	FeatureCategories,
	FeatureRelations,
	FeatureClassifications,
	FeatureSentiment,
	FeatureEmotion,
	FeatureSemanticRoles,
	FeatureSyntax,
}

// ParseFeature validates a feature name.
func ParseFeature(s string) (Feature, bool) {
	for _, f := range AllFeatures {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// AnalysisRequest is the provider-neutral input to an NLU analysis.
type AnalysisRequest struct {
	Limits    map[Feature]int `json:"limits,omitempty"`
	Text      string          `json:"text"`
	Language  string          `json:"language,omitempty"`
	ToneModel string          `json:"toneModel,omitempty"`
	Features  []Feature       `json:"features"`
}

// Has reports whether the request asks for feature f.
func (r AnalysisRequest) Has(f Feature) bool {
	for _, got := range r.Features {
		if got == f {
			return true
		}
	}
	return false
}

// Limit returns the configured limit for f, or def when none is set.
func (r AnalysisRequest) Limit(f Feature, def int) int {
	if n, ok := r.Limits[f]; ok && n > 0 {
		return n
	}
	return def
}

// Without returns a copy of the request with feature f removed.
func (r AnalysisRequest) Without(f Feature) AnalysisRequest {
	out := r
	out.Features = make([]Feature, 0, len(r.Features))
	for _, got := range r.Features {
		if got != f {
			out.Features = append(out.Features, got)
		}
	}
	return out
}

// Sentiment is a polarity score in [-1, 1] with a label.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Keyword is an important phrase found in the text.
type Keyword struct {
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Text      string     `json:"text"`
	Relevance float64    `json:"relevance"`
	Count     int        `json:"count,omitempty"`
}

// Entity is a named thing found in the text.
type Entity struct {
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Type      string     `json:"type"`
	Text      string     `json:"text"`
	Relevance float64    `json:"relevance"`
	Count     int        `json:"count,omitempty"`
}

// Concept is a high-level idea the text relates to, possibly not mentioned verbatim.
type Concept struct {
	Text      string  `json:"text"`
	Resource  string  `json:"resource,omitempty"`
	Relevance float64 `json:"relevance"`
}

// Category is a hierarchical taxonomy label such as "Arts > Music".
type Category struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// RelationArgument is one side of a relation.
type RelationArgument struct {
	Text       string `json:"text"`
	EntityType string `json:"entityType,omitempty"`
}

// Relation links entities mentioned in the same sentence.
type Relation struct {
	Type      string             `json:"type"`
	Sentence  string             `json:"sentence,omitempty"`
	Arguments []RelationArgument `json:"arguments,omitempty"`
	Score     float64            `json:"score"`
}

// Classification is a tone label from a classifications model.
type Classification struct {
	ClassName  string  `json:"className"`
	Confidence float64 `json:"confidence"`
}

// AnalysisResult is the normalized output of any NLU provider.
type AnalysisResult struct {
	AnalyzedAt      time.Time          `json:"analyzedAt"`
	Sentiment       *Sentiment         `json:"sentiment,omitempty"`
	Emotion         map[string]float64 `json:"emotion,omitempty"`
	Provider        string             `json:"provider"`
	Language        string             `json:"language,omitempty"`
	Keywords        Keywords           `json:"keywords,omitempty"`
	Entities        []Entity           `json:"entities,omitempty"`
	Concepts        []Concept          `json:"concepts,omitempty"`
	Categories      []Category         `json:"categories,omitempty"`
	Relations       []Relation         `json:"relations,omitempty"`
	Classifications []Classification   `json:"classifications,omitempty"`
}
