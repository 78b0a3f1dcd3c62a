package model

import (
	"fmt"
	"sort"
)

// KeywordStatus describes how well a target keyword is represented in an analysis result.
type KeywordStatus string

// Keyword status constants.
const (
	KeywordMissing  KeywordStatus = "missing"
	KeywordExact    KeywordStatus = "exact"
	KeywordPartial  KeywordStatus = "partial"
	KeywordRelevant KeywordStatus = "relevant"
)

// KeywordMatch pairs a target keyword with its derived status.
type KeywordMatch struct {
	Keyword string        `json:"keyword"`
	Status  KeywordStatus `json:"status"`
}

// Keywords is a slice of Keyword that supports relevance ordering.
type Keywords []Keyword

// Validate ensures every keyword has text and a relevance in [0, 1].
// Provider results are checked with it before they are cached or saved.
func (k Keywords) Validate() error {
	for i, kw := range k {
		if kw.Text == "" {
			return fmt.Errorf("keyword at index %d has no text", i)
		}
		if kw.Relevance < 0.0 || kw.Relevance > 1.0 {
			return fmt.Errorf("relevance must be between 0.0 and 1.0, got %.2f", kw.Relevance)
		}
	}
	return nil
}

// Sort orders keywords by relevance descending. Ties keep their original order.
func (k Keywords) Sort() {
	sort.SliceStable(k, func(i, j int) bool {
		return k[i].Relevance > k[j].Relevance
	})
}
