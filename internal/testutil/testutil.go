// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Veraticus/textlens/internal/session"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenStore opens a session store of the given backend in a temp dir and closes it on cleanup.
func OpenStore(t *testing.T, backend string) session.Store {
	t.Helper()

	var path string
	switch backend {
	case session.BackendFile:
		path = filepath.Join(t.TempDir(), "session.json")
	case session.BackendSQLite:
		path = filepath.Join(t.TempDir(), "session.db")
	}

	store, err := session.Open(context.Background(), backend, path)
	if err != nil {
		t.Fatalf("failed to open %s store: %v", backend, err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close %s store: %v", backend, err)
		}
	})
	return store
}

// NewVault wraps store in a vault sealed with secret, failing the test on error.
func NewVault(t *testing.T, store session.Store, secret string) *session.Vault {
	t.Helper()
	vault, err := session.NewVault(store, secret, DiscardLogger())
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return vault
}
