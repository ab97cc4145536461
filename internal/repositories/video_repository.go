package repositories

import (
	"context"

	"github.com/cliptide/backend/internal/models"
)

// VideoRepository provides read access to activity records referenced from
// watch histories. The identity layer never mutates videos.
type VideoRepository interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
	// FindByIDs returns the subset of requested videos that exist, keyed by
	// id. Missing ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error)
}

// WatchHistoryRepository persists the per-user ordered sequence of watched
// videos.
type WatchHistoryRepository interface {
	Append(ctx context.Context, event models.WatchEvent) error
	// ListForUser returns the user's watch events in stored order,
	// most recent first.
	ListForUser(ctx context.Context, userID string) ([]models.WatchEvent, error)
}
