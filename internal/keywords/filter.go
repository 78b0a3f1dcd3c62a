package keywords

import (
	"strings"

	"github.com/Veraticus/textlens/internal/model"
)

// namedEntityTypes are the entity types that make a single word worth targeting.
var namedEntityTypes = map[string]bool{
	"organization": true,
	"company":      true,
	"brand":        true,
	"product":      true,
}

// FilterTargets drops generic single-word targets. Multi-word phrases are always kept; a single
// word is kept only when prior names it as an Organization, Company, Brand or Product entity.
func FilterTargets(targets []string, prior *model.AnalysisResult) []string {
	named := make(map[string]bool)
	if prior != nil {
		for _, e := range prior.Entities {
			if namedEntityTypes[strings.ToLower(e.Type)] {
				named[normalize(e.Text)] = true
			}
		}
	}

	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(strings.Fields(t)) > 1 || named[normalize(t)] {
			out = append(out, t)
		}
	}
	return out
}

// Dedupe trims targets and removes blanks and case-insensitive duplicates, keeping first occurrences.
func Dedupe(targets []string) []string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
