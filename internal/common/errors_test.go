package common

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		target error
		want   bool
	}{
		{"unauthorized", &APIError{Provider: "openai", StatusCode: http.StatusUnauthorized}, ErrAuth, true},
		{"forbidden", &APIError{Provider: "watson", StatusCode: http.StatusForbidden}, ErrAuth, true},
		{"max tokens rejected", &APIError{Provider: "openai", StatusCode: http.StatusBadRequest, Message: "Unsupported parameter: 'max_tokens'"}, ErrRequestFormat, true},
		{"plain bad request", &APIError{Provider: "openai", StatusCode: http.StatusBadRequest, Message: "text too short"}, ErrRequestFormat, false},
		{"server error", &APIError{Provider: "google", StatusCode: http.StatusInternalServerError}, ErrAuth, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to call provider: %w", tt.err)
			assert.Equal(t, tt.want, errors.Is(wrapped, tt.target))

			var apiErr *APIError
			require.ErrorAs(t, wrapped, &apiErr)
			assert.Equal(t, tt.err.StatusCode, apiErr.StatusCode)
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "google API error (status 500)", (&APIError{Provider: "google", StatusCode: 500}).Error())
	assert.Equal(t, "watson API error (status 422): not enough text",
		(&APIError{Provider: "watson", StatusCode: 422, Message: "not enough text"}).Error())
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil", nil, ""},
		{"user error", NewUserError("Enter some text first", nil), "Enter some text first"},
		{"missing credentials", fmt.Errorf("watson: %w", ErrMissingCredentials), "Credentials are missing"},
		{"unsupported provider", fmt.Errorf("%w: azure", ErrUnsupportedProvider), "not supported"},
		{"auth", &APIError{Provider: "anthropic", StatusCode: http.StatusUnauthorized}, "HTTP 401"},
		{"parameter mismatch", fmt.Errorf("failed: %w", ErrRequestFormat), "max_completion_tokens"},
		{"empty response", ErrEmptyResponse, "empty response"},
		{"cors", errors.New("blocked by CORS policy"), "proxy URL"},
		{"other", errors.New("connection reset"), "connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Guidance(tt.err)
			if tt.contains == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.contains)
		})
	}
}

func TestUserError(t *testing.T) {
	inner := errors.New("eof")
	err := NewUserError("Request body is empty", inner)

	assert.Equal(t, "Request body is empty: eof", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "Request body is empty", NewUserError("Request body is empty", nil).Error())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelWarn, "json")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "provider", "watson")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"provider":"watson"`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
