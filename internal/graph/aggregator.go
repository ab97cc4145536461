// Package graph assembles read-only projections over users, subscription
// edges, and watch history. Nothing in this package mutates state.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

// ErrChannelNotFound indicates no user matches the requested channel name.
var ErrChannelNotFound = errors.New("channel not found")

// UserFinder is the user lookup slice the aggregator needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// SubscriptionCounter answers edge queries over the subscription graph.
type SubscriptionCounter interface {
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error)
}

// VideoFinder resolves activity records referenced from watch histories.
type VideoFinder interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error)
}

// WatchHistoryLister returns a user's watch events in stored order.
type WatchHistoryLister interface {
	ListForUser(ctx context.Context, userID string) ([]models.WatchEvent, error)
}

// Aggregator joins users, subscriptions, and watch history into
// response-ready projections.
type Aggregator struct {
	users   UserFinder
	subs    SubscriptionCounter
	videos  VideoFinder
	history WatchHistoryLister
}

// NewAggregator constructs an Aggregator over the given stores.
func NewAggregator(users UserFinder, subs SubscriptionCounter, videos VideoFinder, history WatchHistoryLister) *Aggregator {
	return &Aggregator{users: users, subs: subs, videos: videos, history: history}
}

// ChannelProfile builds the personalized channel page projection. viewerID
// may be empty for anonymous viewers, in which case IsSubscribedByViewer is
// always false.
func (a *Aggregator) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, ErrChannelNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("find channel: %w", err)
	}

	subscribers, err := a.subs.CountSubscribers(ctx, user.ID)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("count subscribers: %w", err)
	}

	subscribedTo, err := a.subs.CountSubscribedTo(ctx, user.ID)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("count subscriptions: %w", err)
	}

	var isSubscribed bool
	if viewerID != "" {
		isSubscribed, err = a.subs.Exists(ctx, viewerID, user.ID)
		if err != nil {
			return models.ChannelProfile{}, fmt.Errorf("check viewer subscription: %w", err)
		}
	}

	return models.ChannelProfile{
		PublicUser:           user.Public(),
		SubscriberCount:      subscribers,
		SubscribedToCount:    subscribedTo,
		IsSubscribedByViewer: isSubscribed,
	}, nil
}

// WatchHistory returns the user's watched videos in stored order, each joined
// with its owner's public summary. Entries whose video or owner no longer
// resolves are dropped rather than failing the whole projection.
func (a *Aggregator) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	events, err := a.history.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	if len(events) == 0 {
		return []models.WatchHistoryEntry{}, nil
	}

	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.VideoID)
	}

	videos, err := a.videos.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve videos: %w", err)
	}

	logger := logging.FromContext(ctx)
	owners := make(map[string]models.OwnerSummary)

	entries := make([]models.WatchHistoryEntry, 0, len(events))
	for _, event := range events {
		video, ok := videos[event.VideoID]
		if !ok {
			logger.Warn("dropping dangling watch history entry", "videoId", event.VideoID, "userId", userID)
			continue
		}

		owner, ok := owners[video.OwnerID]
		if !ok {
			user, err := a.users.FindByID(ctx, video.OwnerID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					logger.Warn("dropping watch history entry with missing owner", "videoId", video.ID, "ownerId", video.OwnerID)
					continue
				}
				return nil, fmt.Errorf("resolve video owner: %w", err)
			}
			owner = user.OwnerSummary()
			owners[video.OwnerID] = owner
		}

		entries = append(entries, models.WatchHistoryEntry{
			VideoID:   video.ID,
			Title:     video.Title,
			Thumbnail: video.Thumbnail,
			WatchedAt: event.WatchedAt,
			Owner:     owner,
		})
	}

	return entries, nil
}
