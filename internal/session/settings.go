package session

import "context"

// Credentials holds the non-secret NLU connection settings. API keys live in the Vault.
type Credentials struct {
	WatsonURL        string `json:"watsonUrl,omitempty"`
	WatsonRegion     string `json:"watsonRegion,omitempty"`
	WatsonInstanceID string `json:"watsonInstanceId,omitempty"`
	WatsonAuthType   string `json:"watsonAuthType,omitempty"`
}

// AISettings is the LLM choice used by the optimizer surfaces.
type AISettings struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Load reads the value at key into a new T.
func Load[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	return v, ok, err
}
