package apierror

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidtube/backend/internal/logging"
)

// Envelope is the body of every error response.
type Envelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// Write renders err as an error envelope. Internal errors are logged with
// their cause; the cause is never sent to the client.
func Write(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := From(err)
	if apiErr == nil {
		apiErr = Internal("Something went wrong", nil)
	}

	logger := logging.FromContext(ctx)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "status", apiErr.StatusCode, "error", err)
	} else {
		logger.Warn("request rejected", "status", apiErr.StatusCode, "message", apiErr.Message, "error", apiErr.Err)
	}

	details := apiErr.Errors
	if details == nil {
		details = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	if encodeErr := json.NewEncoder(w).Encode(Envelope{
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
		Success:    false,
		Errors:     details,
	}); encodeErr != nil {
		logger.Error("encode error envelope", "error", encodeErr)
	}
}

// TooManyRequests reports a rate-limited caller (429).
func TooManyRequests(message string) *Error {
	return &Error{Kind: KindValidation, StatusCode: http.StatusTooManyRequests, Message: message}
}
