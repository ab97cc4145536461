package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/cliptide/backend/internal/auth"
	"github.com/cliptide/backend/internal/models"
)

// SessionService orchestrates the credential and session lifecycle.
type SessionService interface {
	Register(ctx context.Context, params auth.RegisterParams) (models.User, error)
	Login(ctx context.Context, username, email, password string) (models.User, models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// Authenticator resolves a request to the authenticated user.
type Authenticator interface {
	Authenticate(r *http.Request) (models.User, error)
}

// UserStore captures the account mutations exposed over HTTP.
type UserStore interface {
	UpdateDetails(ctx context.Context, userID, fullName, email string) error
	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error
	UpdateCoverImageURL(ctx context.Context, userID, coverImageURL string) error
}

// GraphService builds read-only social graph projections.
type GraphService interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error)
}

// SubscriptionStore captures edge mutations for the subscribe endpoints.
type SubscriptionStore interface {
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
}

// WatchHistoryStore records watch events.
type WatchHistoryStore interface {
	Append(ctx context.Context, event models.WatchEvent) error
}

// ImageStore persists uploaded avatar and cover images.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}
