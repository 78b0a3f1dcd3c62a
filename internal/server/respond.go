package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Veraticus/textlens/internal/common"
	"github.com/Veraticus/textlens/internal/session"
)

const maxBodyBytes = 1 << 20

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error    string `json:"error"`
	Guidance string `json:"guidance"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.deps.Logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.deps.Logger.Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.deps.Logger.Warn("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{
		Error:    err.Error(),
		Guidance: common.Guidance(err),
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var userErr *common.UserError
	var apiErr *common.APIError
	switch {
	case errors.As(err, &userErr),
		errors.Is(err, common.ErrMissingCredentials),
		errors.Is(err, common.ErrUnsupportedProvider),
		errors.Is(err, common.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrVaultLocked):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrRequestFormat),
		errors.Is(err, common.ErrEmptyResponse),
		errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewUserError("Request body is empty.", nil)
		}
		return common.NewUserError("Request body is not valid JSON.", err)
	}
	if dec.More() {
		return common.NewUserError("Request body must contain a single JSON object.", nil)
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return common.NewUserError(fmt.Sprintf(format, args...), nil)
}
