package model

// OptimizationRequest asks an LLM to rewrite text for a set of target keywords.
type OptimizationRequest struct {
	PriorResult    *AnalysisResult `json:"priorResult,omitempty"`
	OriginalText   string          `json:"originalText"`
	Provider       Provider        `json:"provider,omitempty"`
	Model          string          `json:"model"`
	APIKey         string          `json:"-"`
	TargetKeywords []string        `json:"targetKeywords"`
}

// OutcomeKind distinguishes a real rewrite from a degraded fallback.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeOptimized OutcomeKind = "optimized"
	OutcomeDegraded  OutcomeKind = "degraded"
)

// OptimizationOutcome is the result of a keyword optimization.
type OptimizationOutcome struct {
	Cost          *CostRecord     `json:"cost,omitempty"`
	Reanalysis    *AnalysisResult `json:"reanalysis,omitempty"`
	Kind          OutcomeKind     `json:"kind"`
	Text          string          `json:"text"`
	Model         string          `json:"model"`
	Provider      Provider        `json:"provider"`
	Caveat        string          `json:"caveat,omitempty"`
	FocusKeywords []string        `json:"focusKeywords"`
	Statuses      []KeywordMatch  `json:"statuses,omitempty"`
}
