package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// envelope is the body of every successful response.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiFunc is a handler that reports failures by returning an error.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts fn to http.HandlerFunc, rendering any returned error as the
// error envelope.
func handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			apierror.Write(r.Context(), w, err)
		}
	}
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) error {
	if data == nil {
		data = struct{}{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
	return nil
}

// currentUser returns the user attached by the authentication middleware.
func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, apierror.Unauthorized("Unauthorized request")
	}
	return user, nil
}
