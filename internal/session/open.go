package session

import (
	"context"
	"fmt"
)

// Supported store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the store named by backend.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileStore(path)
	case BackendSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", backend)
	}
}
