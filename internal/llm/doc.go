// Package llm provides chat completion clients for the rewrite step of keyword optimization.
// It supports OpenAI and Anthropic through their official SDKs, with SDK retries disabled
// and a per-provider rate limiter for dispatch.
package llm
