package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/cliptide/backend/internal/auth"
	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
)

type userCtxKey struct{}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext retrieves the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}

// RequireAuth rejects requests without a valid access token and makes the
// resolved user available on the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if authn == nil {
				logging.FromContext(ctx).Error("authenticator unavailable")
				respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
				return
			}

			user, err := authn.Authenticate(r)
			if err != nil {
				// A store failure is not a bad credential; do not tell the
				// client to log in again.
				if !errors.Is(err, auth.ErrUnauthorized) {
					logging.FromContext(ctx).Error("authenticate request", "error", err)
					respondError(ctx, w, http.StatusInternalServerError, "failed to authenticate request")
					return
				}
				logging.FromContext(ctx).Warn("request rejected", "error", err)
				respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}
