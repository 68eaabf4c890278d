package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type ctxKey struct{}

// WithUser stores the authenticated, sanitized user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user.Sanitized())
}

// UserFromContext returns the authenticated user, if one was attached.
func UserFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(ctxKey{}).(models.User)
	return user, ok && user.ID != ""
}
