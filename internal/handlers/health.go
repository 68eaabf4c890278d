package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
)

const healthTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := h.DB.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Error("health check failed", "error", err)
			apierror.Write(ctx, w, &apierror.Error{
				Kind:       apierror.KindInternal,
				StatusCode: http.StatusServiceUnavailable,
				Message:    "database unavailable",
				Err:        err,
			})
			return
		}
	}

	_ = respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
}
