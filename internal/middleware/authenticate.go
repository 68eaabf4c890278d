package middleware

import (
	"context"
	"net/http"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// Authenticator resolves an access token to the sanitized user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// RequireUser rejects requests without a valid access token and attaches the
// resolved user to the request context.
func RequireUser(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, err := authenticator.Authenticate(ctx, auth.AccessTokenFromRequest(r))
			if err != nil {
				apierror.Write(ctx, w, err)
				return
			}

			logger := logging.FromContext(ctx).With("user_id", user.ID)
			ctx = logging.WithLogger(auth.WithUser(ctx, user), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
