// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common application errors.
var (
	// Pre-flight errors. No network call is made when these are returned.
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// Provider errors.
	ErrAuth          = errors.New("authentication failed")
	ErrRequestFormat = errors.New("provider rejected request parameters")
	ErrEmptyResponse = errors.New("empty response from model")

	// Cost estimation errors. Never fatal: callers skip the charge.
	ErrUnknownModel = errors.New("unknown model")

	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// APIError is a non-2xx response from an external provider.
type APIError struct {
	Provider   string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error (status %d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrAuth and ErrRequestFormat on the provider status.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrAuth
	case e.StatusCode == http.StatusBadRequest && mentionsParameter(e.Message):
		return ErrRequestFormat
	default:
		return nil
	}
}

func mentionsParameter(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range []string{"max_tokens", "max_completion_tokens", "temperature", "unsupported parameter"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Guidance translates an error into an actionable message for the person using the dashboard.
func Guidance(err error) string {
	if err == nil {
		return ""
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	msg := err.Error()
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Credentials are missing for the selected provider. Add an API key and service URL (or region) in settings."
	case errors.Is(err, ErrUnsupportedProvider):
		return "The selected provider is not supported. Choose watson or google for analysis, openai or anthropic for optimization."
	case errors.Is(err, ErrAuth):
		return "The provider rejected the API key (HTTP 401). Check that the key is correct and has access to this service."
	case errors.Is(err, ErrRequestFormat):
		return "The model rejected a request parameter. Newer reasoning models need max_completion_tokens instead of max_tokens; pick a supported model."
	case errors.Is(err, ErrEmptyResponse):
		return "The model returned an empty response. Try again or choose a different model."
	case strings.Contains(strings.ToLower(msg), "cors"):
		return "The request was blocked by CORS. Configure a proxy URL in settings or call the provider from the server."
	default:
		return msg
	}
}
