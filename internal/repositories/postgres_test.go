package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleUser() models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.User{
		ID:        "u-1",
		Username:  "alice",
		Email:     "alice@example.com",
		FullName:  "Alice Example",
		Avatar:    "https://cdn.example.com/alice.png",
		Password:  "hash-abc",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func userRow(u models.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "email", "full_name", "avatar", "cover_image",
		"password_hash", "refresh_token", "created_at", "updated_at",
	}).AddRow(
		u.ID, u.Username, u.Email, u.FullName, u.Avatar, u.CoverImage,
		u.Password, u.RefreshToken, u.CreatedAt, u.UpdatedAt,
	)
}

func TestPostgresUserRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.Email, u.FullName, u.Avatar, u.CoverImage, u.Password, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.Email, u.FullName, u.Avatar, u.CoverImage, u.Password, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByUsernameOrEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	u := sampleUser()
	u.RefreshToken = "stored-refresh"

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("", u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.FindByUsernameOrEmail(context.Background(), "", u.Email)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_UpdateProfilePartial(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	u := sampleUser()
	avatar := "https://cdn.example.com/new.png"
	u.Avatar = avatar
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE users").
		WithArgs(u.ID, (*string)(nil), (*string)(nil), &avatar, (*string)(nil), now).
		WillReturnRows(userRow(u))

	got, err := repo.UpdateProfile(context.Background(), u.ID, models.UserPatch{Avatar: &avatar}, now)
	require.NoError(t, err)
	assert.Equal(t, avatar, got.Avatar)
	assert.Equal(t, u.FullName, got.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_UpdateProfileEmailTaken(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	email := "taken@example.com"

	mock.ExpectQuery("UPDATE users").
		WithArgs("u-1", (*string)(nil), &email, (*string)(nil), (*string)(nil), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	_, err := repo.UpdateProfile(context.Background(), "u-1", models.UserPatch{Email: &email}, time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPostgresUserRepository_UpdatePasswordMissing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectExec("UPDATE users").
		WithArgs("ghost", "new-hash", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePassword(context.Background(), "ghost", "new-hash", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUserRepository_ChannelProfile(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM users u").
		WithArgs("alice", "viewer-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "full_name", "email", "avatar", "cover_image",
			"subscriber_count", "subscribed_to_count", "is_subscribed",
		}).AddRow("u-1", "alice", "Alice Example", "alice@example.com", "a.png", "", int64(3), int64(1), true))

	profile, err := repo.ChannelProfile(context.Background(), "alice", "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), profile.SubscriberCount)
	assert.Equal(t, int64(1), profile.SubscribedToCount)
	assert.True(t, profile.IsSubscribed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_ChannelProfileNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM users u").
		WithArgs("nobody", "viewer-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.ChannelProfile(context.Background(), "nobody", "viewer-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUserRepository_WatchHistory(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM watch_history h").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "owner_id", "video_file", "thumbnail", "title", "description",
			"duration", "views", "is_published", "created_at", "updated_at",
			"full_name", "username", "avatar",
		}).
			AddRow("v-1", "u-2", "v1.mp4", "v1.jpg", "First", "", 12.5, int64(4), true, now, now, "Bob B", "bob", "bob.png").
			AddRow("v-2", "u-9", "v2.mp4", "v2.jpg", "Orphan", "", 3.0, int64(0), true, now, now, nil, nil, nil))

	history, err := repo.WatchHistory(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "v-1", history[0].ID)
	require.NotNil(t, history[0].Owner)
	assert.Equal(t, models.VideoOwner{FullName: "Bob B", Username: "bob", Avatar: "bob.png"}, *history[0].Owner)

	assert.Equal(t, "v-2", history[1].ID)
	assert.Nil(t, history[1].Owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_AddToWatchHistoryUnknownVideo(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectExec("INSERT INTO watch_history").
		WithArgs("u-1", "missing", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	err := repo.AddToWatchHistory(context.Background(), "u-1", "missing", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUserRepository_RefreshTokenSlot(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users").
		WithArgs("u-1", "first").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"refresh_token"}).AddRow("first"))
	mock.ExpectExec("UPDATE users").
		WithArgs("u-1", "first", "second").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users").
		WithArgs("u-1", "first", "third").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE users").
		WithArgs("u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetRefreshToken(ctx, "u-1", "first"))

	token, err := repo.GetRefreshToken(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	require.NoError(t, repo.SwapRefreshToken(ctx, "u-1", "first", "second"))

	err = repo.SwapRefreshToken(ctx, "u-1", "first", "third")
	assert.True(t, errors.Is(err, auth.ErrSessionNotFound), "expected ErrSessionNotFound, got %v", err)

	require.NoError(t, repo.ClearRefreshToken(ctx, "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_GetRefreshTokenUnknownUser(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresUserRepository(mock)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"refresh_token"}))

	_, err := repo.GetRefreshToken(context.Background(), "ghost")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestPostgresSubscriptionRepository(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresSubscriptionRepository(mock)
	ctx := context.Background()
	sub := models.Subscription{ID: "s-1", Subscriber: "u-1", Channel: "u-2", CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(sub.ID, sub.Subscriber, sub.Channel, sub.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(sub.ID, sub.Subscriber, sub.Channel, sub.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectExec("DELETE FROM subscriptions").
		WithArgs(sub.Subscriber, sub.Channel).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM subscriptions").
		WithArgs(sub.Subscriber, sub.Channel).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Subscribe(ctx, sub))
	assert.ErrorIs(t, repo.Subscribe(ctx, sub), ErrConflict)
	require.NoError(t, repo.Unsubscribe(ctx, sub.Subscriber, sub.Channel))
	assert.ErrorIs(t, repo.Unsubscribe(ctx, sub.Subscriber, sub.Channel), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaylistRepository(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresPlaylistRepository(mock)
	ctx := context.Background()
	now := time.Now().UTC()
	playlist := models.Playlist{ID: "p-1", OwnerID: "u-1", Name: "Favourites", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO playlists").
		WithArgs(playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, []string{}, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO playlists").
		WithArgs(playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, []string{}, now, now).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectExec("INSERT INTO playlists").
		WithArgs(playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, []string{}, now, now).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
	mock.ExpectQuery("SELECT (.+) FROM playlists").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "name", "description", "video_ids", "created_at", "updated_at"}).
			AddRow("p-2", "u-1", "Newer", "", []string{"v1"}, now.Add(time.Minute), now).
			AddRow("p-1", "u-1", "Favourites", "", []string{}, now, now))

	require.NoError(t, repo.Create(ctx, playlist))
	assert.ErrorIs(t, repo.Create(ctx, playlist), ErrConflict)
	assert.ErrorIs(t, repo.Create(ctx, playlist), ErrNotFound)

	listed, err := repo.ListByOwner(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "p-2", listed[0].ID)
	assert.Equal(t, []string{"v1"}, listed[0].Videos)
	assert.Empty(t, listed[1].Videos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaylistRepository_ListError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPostgresPlaylistRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM playlists").WithArgs("u-1").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByOwner(context.Background(), "u-1")
	assert.ErrorContains(t, err, "select playlists")
	assert.NoError(t, mock.ExpectationsWereMet())
}
