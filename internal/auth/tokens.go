package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cliptide/backend/internal/config"
	"github.com/cliptide/backend/internal/models"
)

// TokenKind discriminates the two credential types issued by the service.
type TokenKind string

const (
	// TokenKindAccess is the short-lived per-request credential.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the long-lived credential exchanged for new pairs.
	TokenKindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenMalformed indicates the credential is not a parseable token.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature indicates the signature does not verify against the
	// secret for the expected kind.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired indicates the token's validity window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongKind indicates a structurally valid token of the other kind.
	ErrTokenWrongKind = errors.New("token kind mismatch")
)

// Claims are the assertions embedded in every issued token. Subject carries
// the user id.
type Claims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer creates and verifies signed session tokens. Access and refresh
// tokens use distinct HMAC secrets so a stolen access token cannot be
// presented as a refresh token.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewIssuer constructs an Issuer from the auth configuration.
func NewIssuer(cfg config.AuthConfig) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the clock. Used by tests to mint expired tokens.
func (i *Issuer) WithNowFunc(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// IssuePair mints a fresh access and refresh token pair for the user.
func (i *Issuer) IssuePair(userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	access, accessExp, err := i.issue(userID, TokenKindAccess)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refresh, refreshExp, err := i.issue(userID, TokenKindRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) issue(userID string, kind TokenKind) (string, time.Time, error) {
	now := i.now()

	ttl := i.accessTTL
	secret := i.accessSecret
	if kind == TokenKindRefresh {
		ttl = i.refreshTTL
		secret = i.refreshSecret
	}

	expiresAt := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, expiresAt, nil
}

// Verify validates the raw token against the secret for the expected kind and
// returns its claims. Failures are distinguishable via the package sentinels.
func (i *Issuer) Verify(raw string, kind TokenKind) (Claims, error) {
	secret := i.accessSecret
	if kind == TokenKindRefresh {
		secret = i.refreshSecret
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenSignature
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		}
	}

	if claims.Kind != kind {
		return Claims{}, ErrTokenWrongKind
	}

	return claims, nil
}
