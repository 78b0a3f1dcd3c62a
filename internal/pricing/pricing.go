// Package pricing estimates the cost of LLM calls from character counts.
package pricing

import (
	"fmt"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/model"
)

// Rate is the published price of a model plus the characters-to-tokens heuristic used for it.
type Rate struct {
	InputCostPer1M      float64
	OutputCostPer1M     float64
	TokensPerCharInput  float64
	TokensPerCharOutput float64
}

var rates = map[string]Rate{
	"gpt-4o":                     {InputCostPer1M: 2.50, OutputCostPer1M: 10.00, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"gpt-4o-mini":                {InputCostPer1M: 0.15, OutputCostPer1M: 0.60, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"gpt-4.1":                    {InputCostPer1M: 2.00, OutputCostPer1M: 8.00, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"gpt-4.1-mini":               {InputCostPer1M: 0.40, OutputCostPer1M: 1.60, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"gpt-4-turbo":                {InputCostPer1M: 10.00, OutputCostPer1M: 30.00, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"gpt-3.5-turbo":              {InputCostPer1M: 0.50, OutputCostPer1M: 1.50, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"o3":                         {InputCostPer1M: 2.00, OutputCostPer1M: 8.00, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"o3-mini":                    {InputCostPer1M: 1.10, OutputCostPer1M: 4.40, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"o4-mini":                    {InputCostPer1M: 1.10, OutputCostPer1M: 4.40, TokensPerCharInput: 0.25, TokensPerCharOutput: 0.25},
	"claude-3-haiku-20240307":    {InputCostPer1M: 0.25, OutputCostPer1M: 1.25, TokensPerCharInput: 0.29, TokensPerCharOutput: 0.29},
	"claude-3-5-haiku-20241022":  {InputCostPer1M: 0.80, OutputCostPer1M: 4.00, TokensPerCharInput: 0.29, TokensPerCharOutput: 0.29},
	"claude-3-5-sonnet-20241022": {InputCostPer1M: 3.00, OutputCostPer1M: 15.00, TokensPerCharInput: 0.29, TokensPerCharOutput: 0.29},
	"claude-3-7-sonnet-20250219": {InputCostPer1M: 3.00, OutputCostPer1M: 15.00, TokensPerCharInput: 0.29, TokensPerCharOutput: 0.29},
	"claude-sonnet-4-20250514":   {InputCostPer1M: 3.00, OutputCostPer1M: 15.00, TokensPerCharInput: 0.29, TokensPerCharOutput: 0.29},
	"claude-opus-4-20250514":     {InputCostPer1M: 15.00, OutputCostPer1M: 75.00, TokensPerCharInput: 0.29, TokensPerCharOutput: 0.29},
}

// RateFor returns the rate for an exact model id.
func RateFor(modelID string) (Rate, bool) {
	r, ok := rates[modelID]
	return r, ok
}

// Models returns every priced model id, sorted.
func Models() []string {
	ids := make([]string, 0, len(rates))
	for id := range rates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Estimate converts the input and output text of a call into an estimated cost.
// It returns common.ErrUnknownModel when the model has no rate; callers record no charge in that case.
func Estimate(modelID, inputText, outputText string) (model.CostRecord, error) {
	rate, ok := RateFor(modelID)
	if !ok {
		return model.CostRecord{}, fmt.Errorf("%w: %q", common.ErrUnknownModel, modelID)
	}

	inputChars := utf8.RuneCountInString(inputText)
	outputChars := utf8.RuneCountInString(outputText)

	inputTokens := int(math.Ceil(float64(inputChars) * rate.TokensPerCharInput))
	outputTokens := int(math.Ceil(float64(outputChars) * rate.TokensPerCharOutput))

	cost := float64(inputTokens)/1e6*rate.InputCostPer1M + float64(outputTokens)/1e6*rate.OutputCostPer1M

	return model.CostRecord{
		Timestamp:             time.Now().UTC(),
		Model:                 modelID,
		Provider:              model.ProviderFor(modelID),
		InputChars:            inputChars,
		OutputChars:           outputChars,
		EstimatedInputTokens:  inputTokens,
		EstimatedOutputTokens: outputTokens,
		EstimatedCost:         cost,
	}, nil
}
