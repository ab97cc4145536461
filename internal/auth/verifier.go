package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

// AccessTokenCookie is the cookie carrying the access token; it is checked
// before the Authorization header.
const AccessTokenCookie = "accessToken"

// ErrUnauthorized indicates the request carries no usable access credential.
var ErrUnauthorized = errors.New("unauthorized request")

// UserFinder is the read-only lookup the verifier needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Verifier resolves an inbound request to the authenticated user. It has no
// side effects; it runs on every protected request.
type Verifier struct {
	users  UserFinder
	issuer *Issuer
}

// NewVerifier constructs a Verifier over the given store and issuer.
func NewVerifier(users UserFinder, issuer *Issuer) *Verifier {
	return &Verifier{users: users, issuer: issuer}
}

// Authenticate extracts the bearer access token from the request, verifies
// it, and loads the matching user. Any failure collapses to ErrUnauthorized.
// The returned user has its sensitive fields cleared.
func (v *Verifier) Authenticate(r *http.Request) (models.User, error) {
	raw := BearerToken(r)
	if raw == "" {
		return models.User{}, ErrUnauthorized
	}

	claims, err := v.issuer.Verify(raw, TokenKindAccess)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := v.users.FindByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	user.PasswordHash = ""
	user.RefreshToken = nil
	return user, nil
}

// BearerToken returns the access token carried by the request: the
// accessToken cookie when present, otherwise the Authorization bearer header.
func BearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
