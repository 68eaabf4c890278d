//go:build integration

package repositories

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// mongoTestDatabase connects to VIDTUBE_TEST_MONGO_URI and returns a fresh
// database that is dropped when the test ends.
func mongoTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("VIDTUBE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VIDTUBE_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	name := "vidtube_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	client, database, err := db.ConnectMongo(ctx, uri, name)
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	if err := EnsureMongoIndexes(ctx, database); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return database
}

func createMongoUser(t *testing.T, repo *MongoUserRepository, username string) models.User {
	t.Helper()
	user := newTestUser(username)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create mongo user: %v", err)
	}
	return user
}

func TestMongoUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoUserRepository(mongoTestDatabase(t))

	user := createMongoUser(t, repo, "alice")

	dup := newTestUser("alice")
	dup.Email = "other@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	fetched, err := repo.FindByUsernameOrEmail(ctx, "", user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	name := "Alice Renamed"
	updatedAt := time.Now().UTC()
	updated, err := repo.UpdateProfile(ctx, user.ID, models.UserPatch{FullName: &name}, updatedAt)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.FullName != name || updated.Email != user.Email || updated.Avatar != user.Avatar {
		t.Fatalf("expected only full name to change, got %+v", updated)
	}
	if updated.UpdatedAt.Sub(updatedAt).Abs() > time.Millisecond {
		t.Fatalf("expected updatedAt %v, got %v", updatedAt, updated.UpdatedAt)
	}

	bob := createMongoUser(t, repo, "bob")
	taken := user.Email
	if _, err := repo.UpdateProfile(ctx, bob.ID, models.UserPatch{Email: &taken}, updatedAt); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for a taken email, got %v", err)
	}
	if _, err := repo.UpdateProfile(ctx, uuid.NewString(), models.UserPatch{FullName: &name}, updatedAt); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestMongoUserRepository_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoUserRepository(mongoTestDatabase(t))
	user := createMongoUser(t, repo, "owner")

	token, err := repo.GetRefreshToken(ctx, user.ID)
	if err != nil || token != "" {
		t.Fatalf("expected no token for a new user, got %q, %v", token, err)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, "initial"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}
	if err := repo.SwapRefreshToken(ctx, user.ID, "initial", "rotated"); err != nil {
		t.Fatalf("swap refresh token: %v", err)
	}
	if err := repo.SwapRefreshToken(ctx, user.ID, "initial", "replayed"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for a stale swap, got %v", err)
	}

	token, err = repo.GetRefreshToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("get refresh token: %v", err)
	}
	if token != "rotated" {
		t.Fatalf("expected rotated token, got %q", token)
	}

	if err := repo.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	if token, _ := repo.GetRefreshToken(ctx, user.ID); token != "" {
		t.Fatalf("expected cleared token, got %q", token)
	}

	if _, err := repo.GetRefreshToken(ctx, uuid.NewString()); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown user, got %v", err)
	}
	if err := repo.SetRefreshToken(ctx, uuid.NewString(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestMongoUserRepository_ChannelProfileAndHistory(t *testing.T) {
	ctx := context.Background()
	database := mongoTestDatabase(t)
	users := NewMongoUserRepository(database)
	subs := NewMongoSubscriptionRepository(database)
	videos := NewMongoVideoRepository(database)

	follow := func(subscriber, channel string) error {
		return subs.Subscribe(ctx, models.Subscription{ID: uuid.NewString(), Subscriber: subscriber, Channel: channel, CreatedAt: time.Now().UTC()})
	}

	channel := createMongoUser(t, users, "channel")
	viewer := createMongoUser(t, users, "viewer")
	for _, name := range []string{"fan1", "fan2"} {
		fan := createMongoUser(t, users, name)
		if err := follow(fan.ID, channel.ID); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	if err := follow(viewer.ID, channel.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := follow(channel.ID, viewer.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := follow(viewer.ID, channel.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate subscription, got %v", err)
	}

	profile, err := users.ChannelProfile(ctx, "channel", viewer.ID)
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.ID != channel.ID || profile.Email != channel.Email {
		t.Fatalf("unexpected channel identity: %+v", profile)
	}
	if profile.SubscriberCount != 3 || profile.SubscribedToCount != 1 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	stranger, err := users.ChannelProfile(ctx, "channel", uuid.NewString())
	if err != nil {
		t.Fatalf("channel profile for stranger: %v", err)
	}
	if stranger.IsSubscribed {
		t.Fatalf("expected stranger not to be subscribed")
	}

	if _, err := users.ChannelProfile(ctx, "nobody", viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}

	first := newTestVideo(channel.ID, "first")
	second := newTestVideo(channel.ID, "second")
	for _, v := range []models.Video{first, second} {
		if err := videos.Create(ctx, v); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}
	if err := videos.Create(ctx, first); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate video, got %v", err)
	}
	stored, err := videos.FindByID(ctx, first.ID)
	if err != nil || stored.Title != "first" {
		t.Fatalf("find video: %+v, %v", stored, err)
	}

	for _, id := range []string{second.ID, first.ID} {
		if err := users.AddToWatchHistory(ctx, viewer.ID, id, time.Now().UTC()); err != nil {
			t.Fatalf("add to history: %v", err)
		}
	}
	if err := users.AddToWatchHistory(ctx, viewer.ID, uuid.NewString(), time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	history, err := users.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID || history[1].ID != first.ID {
		t.Fatalf("unexpected history order: %+v", history)
	}
	if history[0].Owner == nil || history[0].Owner.Username != "channel" {
		t.Fatalf("expected owner projection, got %+v", history[0].Owner)
	}
}

func TestMongoPlaylistRepository(t *testing.T) {
	ctx := context.Background()
	database := mongoTestDatabase(t)
	users := NewMongoUserRepository(database)
	playlists := NewMongoPlaylistRepository(database)
	owner := createMongoUser(t, users, "curator")

	base := time.Now().UTC().Truncate(time.Millisecond)
	older := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "Older", CreatedAt: base, UpdatedAt: base}
	newer := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "Newer", Videos: []string{"v1"}, CreatedAt: base.Add(time.Minute), UpdatedAt: base}
	for _, p := range []models.Playlist{older, newer} {
		if err := playlists.Create(ctx, p); err != nil {
			t.Fatalf("create playlist: %v", err)
		}
	}

	dup := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "Older", CreatedAt: base}
	if err := playlists.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}

	listed, err := playlists.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != newer.ID || listed[1].ID != older.ID {
		t.Fatalf("unexpected playlist order: %+v", listed)
	}
	if len(listed[0].Videos) != 1 || listed[1].Videos == nil {
		t.Fatalf("unexpected playlist videos: %+v", listed)
	}

	empty, err := playlists.ListByOwner(ctx, uuid.NewString())
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no playlists, got %+v, %v", empty, err)
	}
}
