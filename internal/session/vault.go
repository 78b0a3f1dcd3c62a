package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedPrefix = "sealed:v1:"

// ErrVaultLocked is returned when a sealed key is read without the encryption secret.
var ErrVaultLocked = errors.New("api key is sealed and no encryption key is configured")

// Vault stores provider API keys in a Store, sealed with XChaCha20-Poly1305 when a secret is configured.
type Vault struct {
	store  Store
	logger *slog.Logger
	key    []byte
}

// NewVault wraps store. An empty secret stores keys in plaintext.
func NewVault(store Store, secret string, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Vault{store: store, logger: logger}
	if secret == "" {
		return v, nil
	}

	v.key = make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("textlens api key vault"))
	if _, err := io.ReadFull(kdf, v.key); err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}
	return v, nil
}

// Sealed reports whether keys are encrypted at rest.
func (v *Vault) Sealed() bool {
	return v.key != nil
}

// SetAPIKey stores the key for provider.
func (v *Vault) SetAPIKey(ctx context.Context, provider, apiKey string) error {
	value := apiKey
	if v.Sealed() {
		sealed, err := v.seal(apiKey)
		if err != nil {
			return err
		}
		value = sealed
	} else {
		v.logger.Warn("Storing API key without encryption; set store.encryption_key to seal it",
			"provider", provider)
	}

	if err := v.store.Set(ctx, APIKeyKey(providerKey(provider)), value); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	return nil
}

// APIKey returns the stored key for provider, or "" when none is stored.
func (v *Vault) APIKey(ctx context.Context, provider string) (string, error) {
	var value string
	ok, err := v.store.Get(ctx, APIKeyKey(providerKey(provider)), &value)
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	if !ok {
		return "", nil
	}

	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !v.Sealed() {
		return "", ErrVaultLocked
	}
	return v.open(value)
}

// HasAPIKey reports whether a key is stored for provider without opening it.
func (v *Vault) HasAPIKey(ctx context.Context, provider string) (bool, error) {
	var value string
	ok, err := v.store.Get(ctx, APIKeyKey(providerKey(provider)), &value)
	if err != nil {
		return false, fmt.Errorf("failed to read api key: %w", err)
	}
	return ok && value != "", nil
}

// DeleteAPIKey forgets the key for provider.
func (v *Vault) DeleteAPIKey(ctx context.Context, provider string) error {
	return v.store.Delete(ctx, APIKeyKey(providerKey(provider)))
}

func (v *Vault) seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

func (v *Vault) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed api key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("sealed api key is truncated")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed api key: %w", err)
	}
	return string(plaintext), nil
}
