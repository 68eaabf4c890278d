package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users. Implementations
// return ErrNotFound for unknown users and ErrConflict when a username or
// email is already taken.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindByUsernameOrEmail matches either non-empty argument.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	// UpdateProfile applies the non-nil patch fields and returns the updated record.
	UpdateProfile(ctx context.Context, id string, patch models.UserPatch, updatedAt time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error

	// ChannelProfile aggregates subscription figures for the channel named
	// username, relative to viewerID.
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	// WatchHistory returns the user's watched videos in watch order, each with
	// its owner projected.
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string, watchedAt time.Time) error

	auth.RefreshTokenStore
}
