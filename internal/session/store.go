// Package session persists dashboard state: credentials, settings, cost history and the last analysis.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/textlens/internal/model"
)

// Well-known keys.
const (
	KeyCredentials  = "credentials"
	KeyCORSProxyURL = "cors_proxy_url"
	KeyAISettings   = "ai_settings"
	KeyLastAnalysis = "last_analysis"
)

// CostHistoryKey is the key holding the cost records of one provider.
func CostHistoryKey(p model.Provider) string {
	return "cost_history:" + string(p)
}

// BudgetKey is the key holding the budget of one provider.
func BudgetKey(p model.Provider) string {
	return "budget:" + string(p)
}

// APIKeyKey is the key holding the sealed API key of one provider.
func APIKeyKey(provider string) string {
	return "api_key:" + provider
}

func providerKey(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// Store is a key/value store for JSON-serializable session state.
type Store interface {
	// Get decodes the value stored at key into v. It reports false when the key is absent.
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// schemaVersion is bumped whenever a stored payload changes shape.
const schemaVersion = 1

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Version int             `json:"v"`
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session value: %w", err)
	}
	out, err := json.Marshal(envelope{Version: schemaVersion, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session envelope: %w", err)
	}
	return out, nil
}

func decode(raw []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to unmarshal session envelope: %w", err)
	}
	if env.Version != schemaVersion {
		return fmt.Errorf("unsupported session schema version %d", env.Version)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal session value: %w", err)
	}
	return nil
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("session key is required")
	}
	return nil
}
