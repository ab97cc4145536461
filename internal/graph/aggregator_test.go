package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

type fakeUsers struct {
	byID       map[string]models.User
	byUsername map[string]models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type fakeSubs struct {
	edges []models.Subscription
}

func (f *fakeSubs) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	for _, edge := range f.edges {
		if edge.SubscriberID == subscriberID && edge.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubs) CountSubscribers(_ context.Context, channelID string) (int64, error) {
	var n int64
	for _, edge := range f.edges {
		if edge.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) CountSubscribedTo(_ context.Context, subscriberID string) (int64, error) {
	var n int64
	for _, edge := range f.edges {
		if edge.SubscriberID == subscriberID {
			n++
		}
	}
	return n, nil
}

type fakeVideos struct {
	videos map[string]models.Video
}

func (f *fakeVideos) FindByIDs(_ context.Context, ids []string) (map[string]models.Video, error) {
	out := make(map[string]models.Video)
	for _, id := range ids {
		if video, ok := f.videos[id]; ok {
			out[id] = video
		}
	}
	return out, nil
}

type fakeHistory struct {
	events []models.WatchEvent
}

func (f *fakeHistory) ListForUser(_ context.Context, userID string) ([]models.WatchEvent, error) {
	var out []models.WatchEvent
	for _, event := range f.events {
		if event.UserID == userID {
			out = append(out, event)
		}
	}
	return out, nil
}

func graphFixture() *Aggregator {
	users := &fakeUsers{
		byID: map[string]models.User{
			"u1": {ID: "u1", Username: "alice", FullName: "Alice"},
			"u2": {ID: "u2", Username: "bob", FullName: "Bob"},
			"u3": {ID: "u3", Username: "carol", FullName: "Carol"},
		},
	}
	users.byUsername = map[string]models.User{
		"alice": users.byID["u1"],
		"bob":   users.byID["u2"],
		"carol": users.byID["u3"],
	}

	subs := &fakeSubs{edges: []models.Subscription{
		{SubscriberID: "u2", ChannelID: "u1"},
		{SubscriberID: "u3", ChannelID: "u1"},
		{SubscriberID: "u1", ChannelID: "u2"},
	}}

	videos := &fakeVideos{videos: map[string]models.Video{
		"v1": {ID: "v1", OwnerID: "u1", Title: "First", Thumbnail: "t1.jpg"},
		"v2": {ID: "v2", OwnerID: "u2", Title: "Second", Thumbnail: "t2.jpg"},
		"v3": {ID: "v3", OwnerID: "missing", Title: "Orphan"},
	}}

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{events: []models.WatchEvent{
		{UserID: "u2", VideoID: "v2", WatchedAt: base.Add(3 * time.Hour)},
		{UserID: "u2", VideoID: "gone", WatchedAt: base.Add(2 * time.Hour)},
		{UserID: "u2", VideoID: "v3", WatchedAt: base.Add(time.Hour)},
		{UserID: "u2", VideoID: "v1", WatchedAt: base},
	}}

	return NewAggregator(users, subs, videos, history)
}

func TestChannelProfileCounts(t *testing.T) {
	agg := graphFixture()

	profile, err := agg.ChannelProfile(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.Username != "alice" {
		t.Fatalf("unexpected username %q", profile.Username)
	}
	if profile.SubscriberCount != 2 {
		t.Fatalf("expected 2 subscribers got %d", profile.SubscriberCount)
	}
	if profile.SubscribedToCount != 1 {
		t.Fatalf("expected 1 subscription got %d", profile.SubscribedToCount)
	}
	if profile.IsSubscribedByViewer {
		t.Fatal("anonymous viewer cannot be subscribed")
	}
}

func TestChannelProfileViewerSubscription(t *testing.T) {
	agg := graphFixture()

	profile, err := agg.ChannelProfile(context.Background(), "alice", "u2")
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if !profile.IsSubscribedByViewer {
		t.Fatal("expected subscribed viewer")
	}

	profile, err = agg.ChannelProfile(context.Background(), "bob", "u3")
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.IsSubscribedByViewer {
		t.Fatal("expected unsubscribed viewer")
	}
}

func TestChannelProfileUnknown(t *testing.T) {
	agg := graphFixture()

	if _, err := agg.ChannelProfile(context.Background(), "nobody", ""); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound got %v", err)
	}
}

func TestWatchHistoryJoinsAndOrder(t *testing.T) {
	agg := graphFixture()

	entries, err := agg.WatchHistory(context.Background(), "u2")
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}

	// The dangling video and the orphaned owner drop; order is preserved.
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries got %d", len(entries))
	}
	if entries[0].VideoID != "v2" || entries[1].VideoID != "v1" {
		t.Fatalf("unexpected order: %q then %q", entries[0].VideoID, entries[1].VideoID)
	}
	if entries[0].Owner.Username != "bob" {
		t.Fatalf("unexpected owner %q", entries[0].Owner.Username)
	}
	if entries[1].Owner.Username != "alice" {
		t.Fatalf("unexpected owner %q", entries[1].Owner.Username)
	}
	if !entries[0].WatchedAt.After(entries[1].WatchedAt) {
		t.Fatal("expected most recent entry first")
	}
}

func TestWatchHistoryEmpty(t *testing.T) {
	agg := graphFixture()

	entries, err := agg.WatchHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice got %#v", entries)
	}
}
