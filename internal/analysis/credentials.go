package analysis

import (
	"context"
	"fmt"

	"github.com/Veraticus/textlens/internal/nlu"
	"github.com/Veraticus/textlens/internal/session"
)

// Credentials holds the connection settings of every NLU provider.
type Credentials struct {
	Watson nlu.WatsonConfig
	Google nlu.GoogleConfig
}

// CredentialSource resolves the credentials to use for one analysis.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials always returns the same credentials.
type StaticCredentials Credentials

// Credentials returns c.
func (c StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(c), nil
}

// SessionCredentials overlays settings saved in the session over the configured defaults.
// Keys come from the vault; everything else from the credentials and cors_proxy_url entries.
type SessionCredentials struct {
	Store session.Store
	Vault *session.Vault
	Base  Credentials
}

// Credentials merges the session state over Base. Empty session values keep the Base value.
func (s SessionCredentials) Credentials(ctx context.Context) (Credentials, error) {
	out := s.Base

	saved, _, err := session.Load[session.Credentials](ctx, s.Store, session.KeyCredentials)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to load saved credentials: %w", err)
	}
	overlay(&out.Watson.URL, saved.WatsonURL)
	overlay(&out.Watson.Region, saved.WatsonRegion)
	overlay(&out.Watson.InstanceID, saved.WatsonInstanceID)
	overlay(&out.Watson.AuthType, saved.WatsonAuthType)

	proxy, _, err := session.Load[string](ctx, s.Store, session.KeyCORSProxyURL)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to load proxy url: %w", err)
	}
	overlay(&out.Watson.ProxyURL, proxy)

	if s.Vault != nil {
		key, err := s.Vault.APIKey(ctx, nlu.ProviderWatson)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to load watson api key: %w", err)
		}
		overlay(&out.Watson.APIKey, key)

		key, err = s.Vault.APIKey(ctx, nlu.ProviderGoogle)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to load google api key: %w", err)
		}
		overlay(&out.Google.APIKey, key)
	}

	return out, nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
