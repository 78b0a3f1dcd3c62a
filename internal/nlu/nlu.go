// Package nlu adapts natural-language-understanding providers to a common analysis result.
//
// Each adapter makes exactly one provider round trip per Analyze call and never retries.
// Features a provider cannot serve are dropped from the outgoing request.
package nlu

import (
	"context"
	"strings"

	"github.com/Veraticus/textlens/internal/model"
)

// Provider names.
const (
	ProviderWatson = "watson"
	ProviderGoogle = "google"
)

// Analyzer runs an analysis against one provider.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// sentimentLabel maps a score to the label used across providers.
func sentimentLabel(score float64) string {
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}

// categoryLabel turns a path such as "/Arts & Entertainment/Music" into "Arts & Entertainment > Music".
func categoryLabel(path string) string {
	return strings.ReplaceAll(strings.TrimPrefix(path, "/"), "/", " > ")
}
