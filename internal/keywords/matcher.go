// Package keywords classifies target keywords against analysis results and builds the
// keyword-only re-analysis shown after an optimization.
package keywords

import (
	"strings"
	"unicode"

	"github.com/Veraticus/textlens/internal/model"
)

// DefaultTopN is how many leading result keywords are searched for a relevant match.
const DefaultTopN = 10

// Matcher derives keyword statuses.
type Matcher struct {
	TopN int
}

// MatchStatus classifies keyword against result using DefaultTopN.
func MatchStatus(keyword string, result *model.AnalysisResult) model.KeywordStatus {
	return Matcher{TopN: DefaultTopN}.MatchStatus(keyword, result)
}

// MatchAll classifies every target using DefaultTopN.
func MatchAll(targets []string, result *model.AnalysisResult) []model.KeywordMatch {
	return Matcher{TopN: DefaultTopN}.MatchAll(targets, result)
}

// MatchStatus returns the first status that applies, in order: exact, partial, relevant, missing.
func (m Matcher) MatchStatus(keyword string, result *model.AnalysisResult) model.KeywordStatus {
	candidate := normalize(keyword)
	if candidate == "" || result == nil || len(result.Keywords) == 0 {
		return model.KeywordMissing
	}

	for _, kw := range result.Keywords {
		if normalize(kw.Text) == candidate {
			return model.KeywordExact
		}
	}

	for _, kw := range result.Keywords {
		text := normalize(kw.Text)
		if text == "" {
			continue
		}
		if strings.Contains(text, candidate) || strings.Contains(candidate, text) {
			return model.KeywordPartial
		}
	}

	n := m.TopN
	if n <= 0 {
		n = DefaultTopN
	}
	top := result.Keywords
	if len(top) > n {
		top = top[:n]
	}

	words := tokens(candidate)
	for _, kw := range top {
		for t := range tokens(kw.Text) {
			if _, ok := words[t]; ok {
				return model.KeywordRelevant
			}
		}
	}

	return model.KeywordMissing
}

// MatchAll classifies every non-blank target, keeping input order.
func (m Matcher) MatchAll(targets []string, result *model.AnalysisResult) []model.KeywordMatch {
	out := make([]model.KeywordMatch, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, model.KeywordMatch{Keyword: t, Status: m.MatchStatus(t, result)})
	}
	return out
}

// stopwords never make a keyword relevant on their own.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "by": {}, "for": {}, "in": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

// tokens splits s into lower-cased words, dropping stopwords.
func tokens(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
