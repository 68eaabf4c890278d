package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// PlaylistRepository stores channel playlists. Names are unique per owner.
type PlaylistRepository interface {
	// Create returns ErrConflict when the owner already has a playlist with
	// the same name.
	Create(ctx context.Context, playlist models.Playlist) error
	// ListByOwner returns the owner's playlists, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
}
