package frontdoor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

// RequestError is a failure the gateway itself diagnosed, carrying the HTTP
// status it must be surfaced with.
type RequestError struct {
	Status  int
	Type    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Type:    "invalid_request_error",
		Message: fmt.Sprintf(format, args...),
	}
}

// writeError renders an error as the standard envelope. Gateway-diagnosed
// errors and upstream API errors keep their status; anything else is an
// internal error with a generic message, the detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errType := "api_error"
	message := "internal server error"

	var reqErr *RequestError
	var apiErr *anthropic.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.Status
		errType = reqErr.Type
		message = reqErr.Message
	case errors.As(err, &apiErr):
		status = apiErr.StatusCode
		message = apiErr.Message
		if apiErr.Type != "" {
			errType = apiErr.Type
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(openai.ErrorResponse{
		Error: &openai.APIError{Message: message, Type: errType},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
