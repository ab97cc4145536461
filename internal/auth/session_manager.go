package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

var (
	// ErrUserNotFound indicates no account matches the supplied identifier.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers every refresh failure mode: malformed or
	// expired tokens, unknown users, and tokens already rotated away. Callers
	// cannot distinguish these on purpose.
	ErrInvalidRefreshToken = errors.New("refresh token expired or used")
)

// CredentialStore is the slice of user persistence the session manager needs.
type CredentialStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error
	ReplaceRefreshToken(ctx context.Context, userID, old, new string) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// Manager orchestrates the session lifecycle: registration, login, token
// rotation, logout, and password changes. It is the only component that
// mutates stored session state. Each user holds at most one valid refresh
// token; issuing a new one permanently invalidates the previous value.
type Manager struct {
	users  CredentialStore
	issuer *Issuer

	now func() time.Time
}

// NewManager constructs a session manager over the given store and issuer.
func NewManager(users CredentialStore, issuer *Issuer) *Manager {
	if users == nil || issuer == nil {
		panic("auth: credential store and issuer must not be nil")
	}
	return &Manager{
		users:  users,
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterParams carries the fields required to create an account.
type RegisterParams struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates a new account with a hashed password. Username and email
// collisions surface as repositories.ErrConflict; a pre-insert lookup catches
// most duplicates and the store's unique constraints catch the rest.
func (m *Manager) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	username := normalize(params.Username)
	email := normalize(params.Email)

	if _, err := m.users.FindByUsernameOrEmail(ctx, username, email); err == nil {
		return models.User{}, repositories.ErrConflict
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := m.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     params.FullName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login verifies the password for the account matching username or email and,
// on success, issues a token pair and stores the refresh token as the single
// valid one for the user.
func (m *Manager) Login(ctx context.Context, username, email, password string) (models.User, models.SessionTokens, error) {
	user, err := m.users.FindByUsernameOrEmail(ctx, normalize(username), normalize(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, models.SessionTokens{}, ErrUserNotFound
		}
		return models.User{}, models.SessionTokens{}, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	tokens, err := m.issuer.IssuePair(user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if err := m.users.UpdateRefreshToken(ctx, user.ID, &tokens.RefreshToken); err != nil {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}

	user.RefreshToken = &tokens.RefreshToken
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The incoming token must
// byte-for-byte equal the stored one: a structurally valid token that has
// already been rotated away is replay and is rejected. The swap to the new
// token is conditional on the old value so two concurrent refreshes cannot
// both succeed.
func (m *Manager) Refresh(ctx context.Context, raw string) (models.SessionTokens, error) {
	claims, err := m.issuer.Verify(raw, TokenKindRefresh)
	if err != nil {
		return models.SessionTokens{}, ErrInvalidRefreshToken
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, ErrInvalidRefreshToken
		}
		return models.SessionTokens{}, fmt.Errorf("find user: %w", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != raw {
		return models.SessionTokens{}, ErrInvalidRefreshToken
	}

	tokens, err := m.issuer.IssuePair(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.ReplaceRefreshToken(ctx, user.ID, raw, tokens.RefreshToken); err != nil {
		if errors.Is(err, repositories.ErrStaleToken) {
			return models.SessionTokens{}, ErrInvalidRefreshToken
		}
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return tokens, nil
}

// Logout clears the stored refresh token, returning the session to the
// anonymous state. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if err := m.users.UpdateRefreshToken(ctx, userID, nil); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password and persists a hash of the new
// one. The stored refresh token is cleared as well so other sessions must
// re-authenticate with the new password.
func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := m.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}

	return m.Logout(ctx, userID)
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
