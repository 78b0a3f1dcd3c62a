package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

// NewClient creates a client for cfg.Provider, or for the provider that serves cfg.Model.
func NewClient(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = string(model.ProviderFor(cfg.Model))
	}

	switch model.Provider(provider) {
	case model.ProviderOpenAI:
		return newOpenAIClient(cfg)
	case model.ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: LLM provider %q", common.ErrUnsupportedProvider, cfg.Provider)
	}
}
