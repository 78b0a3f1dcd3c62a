package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/textlens/internal/model"
)

func find(kws model.Keywords, text string) (model.Keyword, bool) {
	for _, kw := range kws {
		if kw.Text == text {
			return kw, true
		}
	}
	return model.Keyword{}, false
}

func TestReanalyze_ExactTarget(t *testing.T) {
	result := Reanalyze("Our comfortable bra offers excellent support.", []string{"comfortable bra"})

	kw, ok := find(result.Keywords, "comfortable bra")
	require.True(t, ok)
	assert.InDelta(t, 0.95, kw.Relevance, 1e-9)
	assert.Equal(t, "comfortable bra", result.Keywords[0].Text)
	assert.Equal(t, model.KeywordExact, MatchStatus("comfortable bra", result))
}

func TestReanalyze_PartialTarget(t *testing.T) {
	result := Reanalyze("Support for microservices architectures.", []string{"microservice"})

	kw, ok := find(result.Keywords, "microservice (partial)")
	require.True(t, ok)
	assert.InDelta(t, 0.80, kw.Relevance, 1e-9)
	assert.Equal(t, model.KeywordPartial, MatchStatus("microservice", result))
}

func TestReanalyze_MissingTargetNotAdded(t *testing.T) {
	result := Reanalyze("Plain text here.", []string{"kubernetes"})
	_, ok := find(result.Keywords, "kubernetes")
	assert.False(t, ok)
	_, ok = find(result.Keywords, "kubernetes (partial)")
	assert.False(t, ok)
}

func TestReanalyze_NGrams(t *testing.T) {
	result := Reanalyze("Fast cloud storage", nil)

	assert.Equal(t, ReanalysisProvider, result.Provider)
	require.Len(t, result.Keywords, 6)

	uni, ok := find(result.Keywords, "cloud")
	require.True(t, ok)
	assert.InDelta(t, 0.7, uni.Relevance, 1e-9)

	bi, ok := find(result.Keywords, "cloud storage")
	require.True(t, ok)
	assert.InDelta(t, 0.6, bi.Relevance, 1e-9)

	tri, ok := find(result.Keywords, "fast cloud storage")
	require.True(t, ok)
	assert.InDelta(t, 0.5, tri.Relevance, 1e-9)

	for i := 1; i < len(result.Keywords); i++ {
		assert.GreaterOrEqual(t, result.Keywords[i-1].Relevance, result.Keywords[i].Relevance)
	}
}

func TestReanalyze_DedupesAndTruncates(t *testing.T) {
	text := "Support support SUPPORT one two three four five six seven eight nine ten eleven twelve"
	result := Reanalyze(text, []string{"Support"})

	assert.Len(t, result.Keywords, 15)

	count := 0
	for _, kw := range result.Keywords {
		if kw.Text == "Support" || kw.Text == "support" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	kw, ok := find(result.Keywords, "Support")
	require.True(t, ok)
	assert.Equal(t, 3, kw.Count)
}
