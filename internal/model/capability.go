package model

import "strings"

// ParamStyle selects how the output token cap is sent to a chat completion API.
type ParamStyle string

// Parameter styles.
const (
	// ParamMaxTokens sends max_tokens together with temperature.
	ParamMaxTokens ParamStyle = "max_tokens"
	// ParamMaxCompletionTokens sends max_completion_tokens and omits temperature.
	ParamMaxCompletionTokens ParamStyle = "max_completion_tokens"
)

// Capability describes how a model family is reached and billed.
type Capability struct {
	Prefix     string
	Provider   Provider
	ParamStyle ParamStyle
	// FailSoftAuth makes authentication failures produce a degraded fallback text instead of an error.
	FailSoftAuth bool
}

// capabilities is matched in order; the empty prefix is the catch-all and must stay last.
var capabilities = []Capability{
	{Prefix: "claude", Provider: ProviderAnthropic, ParamStyle: ParamMaxTokens, FailSoftAuth: true},
	{Prefix: "o3", Provider: ProviderOpenAI, ParamStyle: ParamMaxCompletionTokens},
	{Prefix: "o4", Provider: ProviderOpenAI, ParamStyle: ParamMaxCompletionTokens},
	{Prefix: "", Provider: ProviderOpenAI, ParamStyle: ParamMaxTokens},
}

// CapabilityFor returns the capability entry for a model id.
func CapabilityFor(modelID string) Capability {
	id := strings.ToLower(strings.TrimSpace(modelID))
	for _, c := range capabilities {
		if strings.HasPrefix(id, c.Prefix) {
			return c
		}
	}
	return capabilities[len(capabilities)-1]
}

// ProviderFor attributes a model id to the provider that bills it.
func ProviderFor(modelID string) Provider {
	return CapabilityFor(modelID).Provider
}
