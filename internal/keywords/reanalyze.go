package keywords

import (
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/textlens/internal/model"
)

// Relevance constants of the keyword-only re-analysis.
const (
	exactRelevance   = 0.95
	partialRelevance = 0.80
	unigramRelevance = 0.7
	ngramDecay       = 0.1
	maxNGram         = 3
	maxReanalyzed    = 15
	partialSuffix    = " (partial)"

	// ReanalysisProvider marks results produced without a provider call.
	ReanalysisProvider = "local"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}'-]+`)

// Reanalyze builds a keyword-only result for text without calling a provider. Targets found on
// word boundaries score 0.95, targets found only as substrings score 0.80 with a " (partial)"
// label, and the rest is filled with 1-3 word n-grams.
func Reanalyze(text string, targets []string) *model.AnalysisResult {
	lowerText := strings.ToLower(text)

	var found model.Keywords
	seen := make(map[string]bool)
	add := func(kw model.Keyword) {
		key := strings.ToLower(kw.Text)
		if seen[key] {
			return
		}
		seen[key] = true
		found = append(found, kw)
	}

	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(target) + `\b`)
		if err == nil {
			if matches := re.FindAllStringIndex(text, -1); len(matches) > 0 {
				add(model.Keyword{Text: target, Relevance: exactRelevance, Count: len(matches)})
				continue
			}
		}
		if n := strings.Count(lowerText, strings.ToLower(target)); n > 0 {
			add(model.Keyword{Text: target + partialSuffix, Relevance: partialRelevance, Count: n})
		}
	}

	words := wordPattern.FindAllString(lowerText, -1)
	for n := 1; n <= maxNGram; n++ {
		relevance := unigramRelevance - ngramDecay*float64(n-1)
		for i := 0; i+n <= len(words); i++ {
			add(model.Keyword{Text: strings.Join(words[i:i+n], " "), Relevance: relevance})
		}
	}

	found.Sort()
	if len(found) > maxReanalyzed {
		found = found[:maxReanalyzed]
	}

	return &model.AnalysisResult{
		AnalyzedAt: time.Now().UTC(),
		Provider:   ReanalysisProvider,
		Keywords:   found,
	}
}
