package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptide/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Email = "other@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate username, got %v", err)
	}

	dup.Username = "someone-else"
	dup.Email = user.Email
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.Username != user.Username || fetched.PasswordHash != user.PasswordHash {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}
	if fetched.RefreshToken != nil {
		t.Fatalf("expected nil refresh token on fresh user, got %v", *fetched.RefreshToken)
	}

	if _, err := repo.FindByUsername(ctx, "ALICE"); err != nil {
		t.Fatalf("find by uppercase username: %v", err)
	}

	if _, err := repo.FindByUsernameOrEmail(ctx, "", "alice@example.com"); err != nil {
		t.Fatalf("find by email: %v", err)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	first := "refresh-token-1"
	if err := repo.UpdateRefreshToken(ctx, user.ID, &first); err != nil {
		t.Fatalf("store refresh token: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.RefreshToken == nil || *fetched.RefreshToken != first {
		t.Fatalf("expected stored refresh token, got %+v", fetched.RefreshToken)
	}

	if err := repo.ReplaceRefreshToken(ctx, user.ID, first, "refresh-token-2"); err != nil {
		t.Fatalf("rotate refresh token: %v", err)
	}

	// Rotating from the already replaced value must fail.
	if err := repo.ReplaceRefreshToken(ctx, user.ID, first, "refresh-token-3"); !errors.Is(err, ErrStaleToken) {
		t.Fatalf("expected ErrStaleToken on stale rotation, got %v", err)
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user after rotation: %v", err)
	}
	if fetched.RefreshToken == nil || *fetched.RefreshToken != "refresh-token-2" {
		t.Fatalf("expected winning token to persist, got %+v", fetched.RefreshToken)
	}

	if err := repo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user after clear: %v", err)
	}
	if fetched.RefreshToken != nil {
		t.Fatalf("expected cleared refresh token, got %v", *fetched.RefreshToken)
	}

	if err := repo.ReplaceRefreshToken(ctx, user.ID, "refresh-token-2", "refresh-token-4"); !errors.Is(err, ErrStaleToken) {
		t.Fatalf("expected ErrStaleToken when no token stored, got %v", err)
	}
}

func TestPostgresUserRepository_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, repo, "alice")
	createTestUser(t, repo, "bob")

	if err := repo.UpdateDetails(ctx, alice.ID, "Alice Renamed", "Alice.New@Example.com"); err != nil {
		t.Fatalf("update details: %v", err)
	}

	fetched, err := repo.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.FullName != "Alice Renamed" || fetched.Email != "alice.new@example.com" {
		t.Fatalf("unexpected details: %+v", fetched)
	}

	if err := repo.UpdateDetails(ctx, alice.ID, "Alice", "bob@example.com"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on taken email, got %v", err)
	}

	if err := repo.UpdateDetails(ctx, uuid.NewString(), "Ghost", "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	if err := repo.UpdateAvatarURL(ctx, alice.ID, "https://media.example.com/avatars/a"); err != nil {
		t.Fatalf("update avatar url: %v", err)
	}
	if err := repo.UpdateCoverImageURL(ctx, alice.ID, "https://media.example.com/covers/a"); err != nil {
		t.Fatalf("update cover url: %v", err)
	}

	fetched, err = repo.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find user after image updates: %v", err)
	}
	if fetched.AvatarURL == "" || fetched.CoverImageURL == "" {
		t.Fatalf("expected image urls to persist, got %+v", fetched)
	}
}

func TestPostgresSubscriptionRepository_EdgesAndCounts(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, userRepo, "alice")
	bob := createTestUser(t, userRepo, "bob")
	carol := createTestUser(t, userRepo, "carol")

	repo := NewPostgresSubscriptionRepository(testPool)
	now := time.Now().UTC()

	edges := []models.Subscription{
		{SubscriberID: bob.ID, ChannelID: alice.ID, CreatedAt: now},
		{SubscriberID: carol.ID, ChannelID: alice.ID, CreatedAt: now},
		{SubscriberID: alice.ID, ChannelID: bob.ID, CreatedAt: now},
	}
	for _, edge := range edges {
		if err := repo.Create(ctx, edge); err != nil {
			t.Fatalf("create edge %s -> %s: %v", edge.SubscriberID, edge.ChannelID, err)
		}
	}

	if err := repo.Create(ctx, edges[0]); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate edge, got %v", err)
	}

	unknown := models.Subscription{SubscriberID: bob.ID, ChannelID: uuid.NewString(), CreatedAt: now}
	if err := repo.Create(ctx, unknown); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}

	subscribers, err := repo.CountSubscribers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("count subscribers: %v", err)
	}
	if subscribers != 2 {
		t.Fatalf("expected 2 subscribers got %d", subscribers)
	}

	subscribedTo, err := repo.CountSubscribedTo(ctx, alice.ID)
	if err != nil {
		t.Fatalf("count subscribed to: %v", err)
	}
	if subscribedTo != 1 {
		t.Fatalf("expected 1 subscription got %d", subscribedTo)
	}

	exists, err := repo.Exists(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("check edge: %v", err)
	}
	if !exists {
		t.Fatal("expected edge to exist")
	}

	exists, err = repo.Exists(ctx, alice.ID, carol.ID)
	if err != nil {
		t.Fatalf("check missing edge: %v", err)
	}
	if exists {
		t.Fatal("expected edge to be absent")
	}

	if err := repo.Delete(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("delete edge: %v", err)
	}
	if err := repo.Delete(ctx, bob.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	subscribers, err = repo.CountSubscribers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("count subscribers after delete: %v", err)
	}
	if subscribers != 1 {
		t.Fatalf("expected 1 subscriber after delete got %d", subscribers)
	}
}

func TestPostgresVideoRepository_FindByIDs(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")

	first := createTestVideo(t, owner.ID, "First")
	second := createTestVideo(t, owner.ID, "Second")

	repo := NewPostgresVideoRepository(testPool)

	videos, err := repo.FindByIDs(ctx, []string{first, second, uuid.NewString()})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos got %d", len(videos))
	}
	if videos[first].Title != "First" || videos[second].Title != "Second" {
		t.Fatalf("unexpected videos %+v", videos)
	}

	videos, err = repo.FindByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("find with no ids: %v", err)
	}
	if len(videos) != 0 {
		t.Fatalf("expected empty result got %d", len(videos))
	}

	video, err := repo.FindByID(ctx, first)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if video.OwnerID != owner.ID {
		t.Fatalf("unexpected owner %q", video.OwnerID)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
}

func TestPostgresWatchHistoryRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	viewer := createTestUser(t, userRepo, "viewer")
	owner := createTestUser(t, userRepo, "owner")

	first := createTestVideo(t, owner.ID, "First")
	second := createTestVideo(t, owner.ID, "Second")

	repo := NewPostgresWatchHistoryRepository(testPool)
	base := time.Now().UTC().Truncate(time.Millisecond)

	events := []models.WatchEvent{
		{UserID: viewer.ID, VideoID: first, WatchedAt: base.Add(-time.Hour)},
		{UserID: viewer.ID, VideoID: second, WatchedAt: base},
		// Watch events may reference videos that no longer exist.
		{UserID: viewer.ID, VideoID: uuid.NewString(), WatchedAt: base.Add(-2 * time.Hour)},
	}
	for _, event := range events {
		if err := repo.Append(ctx, event); err != nil {
			t.Fatalf("append event %s: %v", event.VideoID, err)
		}
	}

	if err := repo.Append(ctx, models.WatchEvent{UserID: uuid.NewString(), VideoID: first, WatchedAt: base}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	// Re-appending an identical event is a no-op, not an error.
	if err := repo.Append(ctx, events[1]); err != nil {
		t.Fatalf("append duplicate event: %v", err)
	}

	listed, err := repo.ListForUser(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list watch history: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 events got %d", len(listed))
	}
	if listed[0].VideoID != second || listed[1].VideoID != first {
		t.Fatalf("expected most recent first, got %+v", listed)
	}

	listed, err = repo.ListForUser(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list empty history: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no events got %d", len(listed))
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_history, subscriptions, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: "password-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user %s: %v", username, err)
	}
	return user
}

func createTestVideo(t *testing.T, ownerID, title string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(context.Background(), `
        INSERT INTO videos (id, owner_id, title, description, thumbnail_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, id, ownerID, title, "", "", time.Now().UTC())
	if err != nil {
		t.Fatalf("create test video %s: %v", title, err)
	}
	return id
}
