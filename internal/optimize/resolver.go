package optimize

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/textlens/internal/model"
	"github.com/Veraticus/textlens/internal/session"
)

// Resolver fills the parts of an optimization request the caller left out.
type Resolver struct {
	Store session.Store
	Vault *session.Vault
	// DefaultKeys are the configured API keys, used when the vault has none.
	DefaultKeys map[model.Provider]string
	// DefaultModel, then DefaultProvider, apply when neither the request nor the
	// saved settings pick a model or provider.
	DefaultModel    string
	DefaultProvider model.Provider
}

// Resolve sets req.Provider and req.Model from the saved AI settings, then the
// configured defaults, when the request names neither. It then looks up the API key
// for the routed provider. A key already on the request is kept.
func (r Resolver) Resolve(ctx context.Context, req *model.OptimizationRequest) error {
	if strings.TrimSpace(req.Model) == "" && req.Provider == "" && r.Store != nil {
		saved, ok, err := session.Load[session.AISettings](ctx, r.Store, session.KeyAISettings)
		if err != nil {
			return fmt.Errorf("failed to load ai settings: %w", err)
		}
		if ok {
			req.Model = saved.Model
			if saved.Provider != "" {
				p, err := model.ParseProvider(saved.Provider)
				if err != nil {
					return err
				}
				req.Provider = p
			}
		}
	}

	if strings.TrimSpace(req.Model) == "" && req.Provider == "" {
		req.Model = r.DefaultModel
		if req.Model == "" {
			req.Provider = r.DefaultProvider
		}
	}

	if req.APIKey != "" {
		return nil
	}

	_, capability := ResolveModel(*req)
	if r.Vault != nil {
		key, err := r.Vault.APIKey(ctx, string(capability.Provider))
		if err != nil {
			return fmt.Errorf("failed to load %s api key: %w", capability.Provider, err)
		}
		if key != "" {
			req.APIKey = key
			return nil
		}
	}
	req.APIKey = r.DefaultKeys[capability.Provider]
	return nil
}
