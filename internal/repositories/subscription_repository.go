package repositories

import (
	"context"

	"github.com/cliptide/backend/internal/models"
)

// SubscriptionRepository defines data access for directed subscription edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	// CountSubscribers counts edges pointing at the channel.
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	// CountSubscribedTo counts edges originating from the subscriber.
	CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error)
}
