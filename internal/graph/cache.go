package graph

import (
	"context"
	"sync"
	"time"

	"github.com/cliptide/backend/internal/models"
)

// ProfileSource is anything that can build a channel profile projection.
type ProfileSource interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

type profileEntry struct {
	profile models.ChannelProfile
	expires time.Time
}

// CachingProfiles wraps a ProfileSource with a TTL-based in-memory cache.
// Entries are keyed per viewer since the projection is personalized, so the
// TTL should stay short.
type CachingProfiles struct {
	base ProfileSource
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]profileEntry
}

// NewCachingProfiles returns a ProfileSource that caches projections for the
// provided TTL.
func NewCachingProfiles(base ProfileSource, ttl time.Duration) *CachingProfiles {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachingProfiles{
		base:  base,
		ttl:   ttl,
		items: make(map[string]profileEntry),
	}
}

// ChannelProfile returns a cached projection when fresh, otherwise it
// delegates to the underlying source and stores the result.
func (c *CachingProfiles) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	key := username + "\x00" + viewerID
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	profile, err := c.base.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	c.mu.Lock()
	c.items[key] = profileEntry{profile: profile, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return profile, nil
}
