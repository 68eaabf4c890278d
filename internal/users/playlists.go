package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// CreatePlaylist starts an empty playlist owned by ownerID. Names are unique
// per owner.
func (s *Service) CreatePlaylist(ctx context.Context, ownerID, name, description string) (models.Playlist, error) {
	ctx, span := logging.StartSpan(ctx, "users.create_playlist")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, apierror.Validation("Playlist name is required")
	}

	now := s.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Videos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.playlists.Create(ctx, playlist)
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return models.Playlist{}, apierror.Conflict("Playlist with this name already exists")
	case errors.Is(err, repositories.ErrNotFound):
		return models.Playlist{}, apierror.NotFound(msgUserNotFound)
	case err != nil:
		return models.Playlist{}, apierror.Internal("Something went wrong while creating the playlist", err)
	}

	logging.FromContext(ctx).Info("playlist created", "playlistId", playlist.ID, "ownerId", ownerID)
	return playlist, nil
}

// ChannelPlaylists lists the playlists of the channel named username, newest first.
func (s *Service) ChannelPlaylists(ctx context.Context, username string) ([]models.Playlist, error) {
	ctx, span := logging.StartSpan(ctx, "users.channel_playlists")
	defer span.End()

	username = normalizeIdentity(username)
	if username == "" {
		return nil, apierror.Validation("username is missing")
	}

	channel, err := s.creds.FindByCredential(ctx, username, "")
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apierror.NotFound("channel does not exist")
		}
		return nil, apierror.Internal("Something went wrong while loading playlists", err)
	}

	playlists, err := s.playlists.ListByOwner(ctx, channel.ID)
	if err != nil {
		return nil, apierror.Internal("Something went wrong while loading playlists", err)
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return playlists, nil
}
