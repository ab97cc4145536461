package repositories

import (
	"context"

	"github.com/cliptide/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)

	// UpdateRefreshToken overwrites the stored refresh token. A nil token
	// clears it (logout).
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error
	// ReplaceRefreshToken swaps the stored refresh token for a new one only if
	// the stored value still equals old. Returns ErrStaleToken when it does
	// not, so concurrent rotations cannot both succeed.
	ReplaceRefreshToken(ctx context.Context, userID, old, new string) error

	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	UpdateDetails(ctx context.Context, userID, fullName, email string) error
	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error
	UpdateCoverImageURL(ctx context.Context, userID, coverImageURL string) error
}
