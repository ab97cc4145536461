package app

import (
	"context"
	"fmt"

	"github.com/cliptide/backend/internal/auth"
	"github.com/cliptide/backend/internal/config"
	"github.com/cliptide/backend/internal/db"
	"github.com/cliptide/backend/internal/graph"
	"github.com/cliptide/backend/internal/handlers"
	"github.com/cliptide/backend/internal/middleware"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
	"github.com/cliptide/backend/internal/storage"
)

// graphService combines the cached profile path with the uncached watch
// history path behind the single interface the handlers expect.
type graphService struct {
	profiles graph.ProfileSource
	history  *graph.Aggregator
}

func (g graphService) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	return g.profiles.ChannelProfile(ctx, username, viewerID)
}

func (g graphService) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	return g.history.WatchHistory(ctx, userID)
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	history := repositories.NewPostgresWatchHistoryRepository(pool)

	issuer := auth.NewIssuer(cfg.Auth)
	aggregator := graph.NewAggregator(users, subscriptions, videos, history)

	var profiles graph.ProfileSource = aggregator
	if cfg.Graph.ProfileCacheTTL > 0 {
		profiles = graph.NewCachingProfiles(aggregator, cfg.Graph.ProfileCacheTTL)
	}

	deps := handlers.Dependencies{
		Sessions:      auth.NewManager(users, issuer),
		Users:         users,
		Graph:         graphService{profiles: profiles, history: aggregator},
		Subscriptions: subscriptions,
		History:       history,
		Auth:          auth.NewVerifier(users, issuer),
		LoginLimiter: middleware.NewIPRateLimiter(
			cfg.RateLimit.LoginRequests,
			cfg.RateLimit.LoginWindow,
			cfg.RateLimit.Burst,
			cfg.RateLimit.VisitorTTL,
		),
	}

	if cfg.ObjectStore.Bucket != "" {
		images, err := storage.NewS3ImageStore(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("configure image store: %w", err)
		}
		deps.Images = images
	}

	return deps, nil
}
