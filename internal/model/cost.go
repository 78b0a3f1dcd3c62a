package model

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies an LLM vendor that costs are tracked against.
type Provider string

// Known LLM providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every LLM provider with a budget.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic}

// ParseProvider validates an LLM provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderAnthropic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown LLM provider: %q", s)
	}
}

// CostRecord is the estimated cost of one completed optimization call. It is never mutated.
type CostRecord struct {
	Timestamp             time.Time `json:"timestamp"`
	ID                    string    `json:"id"`
	Model                 string    `json:"model"`
	Provider              Provider  `json:"provider"`
	InputChars            int       `json:"inputChars"`
	OutputChars           int       `json:"outputChars"`
	EstimatedInputTokens  int       `json:"estimatedInputTokens"`
	EstimatedOutputTokens int       `json:"estimatedOutputTokens"`
	EstimatedCost         float64   `json:"estimatedCost"`
}

// Budget is the spend allowance for one provider.
type Budget struct {
	Remaining  float64 `json:"remaining"`
	TotalSpent float64 `json:"totalSpent"`
}
