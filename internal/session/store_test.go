package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/textlens/internal/model"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)

	all := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var missing model.Budget
			ok, err := store.Get(ctx, BudgetKey(model.ProviderOpenAI), &missing)
			require.NoError(t, err)
			assert.False(t, ok)

			want := model.Budget{Remaining: 7.5, TotalSpent: 2.5}
			require.NoError(t, store.Set(ctx, BudgetKey(model.ProviderOpenAI), want))

			got, ok, err := Load[model.Budget](ctx, store, BudgetKey(model.ProviderOpenAI))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, got)

			require.NoError(t, store.Set(ctx, BudgetKey(model.ProviderOpenAI), model.Budget{Remaining: 1}))
			got, _, err = Load[model.Budget](ctx, store, BudgetKey(model.ProviderOpenAI))
			require.NoError(t, err)
			assert.InDelta(t, 1.0, got.Remaining, 1e-9)

			require.NoError(t, store.Delete(ctx, BudgetKey(model.ProviderOpenAI)))
			_, ok, err = Load[model.Budget](ctx, store, BudgetKey(model.ProviderOpenAI))
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Delete(ctx, "never-set"))
		})
	}
}

func TestStore_ComplexValue(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			result := model.AnalysisResult{
				AnalyzedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
				Provider:   "watson",
				Language:   "en",
				Keywords:   model.Keywords{{Text: "cloud computing", Relevance: 0.9}},
				Entities:   []model.Entity{{Type: "Company", Text: "IBM", Relevance: 0.8}},
				Sentiment:  &model.Sentiment{Label: "positive", Score: 0.6},
			}
			require.NoError(t, store.Set(ctx, KeyLastAnalysis, result))

			got, ok, err := Load[model.AnalysisResult](ctx, store, KeyLastAnalysis)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, result, got)
		})
	}
}

func TestStore_RejectsBadInput(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			assert.Error(t, store.Set(context.Background(), "", 1))
			assert.Error(t, store.Set(ctx, "k", 1))
			_, err := store.Get(ctx, "k", new(int))
			assert.Error(t, err)
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyCORSProxyURL, "https://proxy.example.com"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := NewFileStore(path)
	require.NoError(t, err)
	got, ok, err := Load[string](ctx, second, KeyCORSProxyURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://proxy.example.com", got)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyAISettings, AISettings{Provider: "anthropic", Model: "claude-3-5-sonnet-20241022"}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	got, ok, err := Load[AISettings](ctx, second, KeyAISettings)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "anthropic", got.Provider)
}

func TestDecode_RejectsUnknownVersion(t *testing.T) {
	var v int
	err := decode([]byte(`{"v":2,"data":1}`), &v)
	assert.ErrorContains(t, err, "schema version 2")

	require.NoError(t, decode([]byte(`{"v":1,"data":42}`), &v))
	assert.Equal(t, 42, v)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, BackendFile, filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, BackendSQLite, "")
	assert.Error(t, err)

	_, err = Open(ctx, "redis", "x")
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cost_history:openai", CostHistoryKey(model.ProviderOpenAI))
	assert.Equal(t, "budget:anthropic", BudgetKey(model.ProviderAnthropic))
	assert.Equal(t, "api_key:watson", APIKeyKey("watson"))
}
