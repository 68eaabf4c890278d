package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/users"
)

// UserService captures the user operations exposed over HTTP.
type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (models.User, error)
	Login(ctx context.Context, in users.LoginInput) (users.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (models.User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
	Subscribe(ctx context.Context, subscriberID, username string) (models.ChannelProfile, error)
	Unsubscribe(ctx context.Context, subscriberID, username string) (models.ChannelProfile, error)
	ChannelPlaylists(ctx context.Context, username string) ([]models.Playlist, error)
	CreatePlaylist(ctx context.Context, ownerID, name, description string) (models.Playlist, error)
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ UserService = (*users.Service)(nil)
