package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// MemoryStore keeps users, subscriptions and videos in process memory. It
// backs the "memory" database driver and the service and HTTP tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	subscriptions map[subscriptionKey]models.Subscription
	videos        map[string]models.Video
	history       map[string][]string
	playlists     map[string]models.Playlist

	sessions *auth.InMemorySessionStore
}

type subscriptionKey struct {
	subscriber string
	channel    string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		subscriptions: make(map[subscriptionKey]models.Subscription),
		videos:        make(map[string]models.Video),
		history:       make(map[string][]string),
		playlists:     make(map[string]models.Playlist),
		sessions:      auth.NewInMemorySessionStore(),
	}
}

// Create persists a new user record.
func (s *MemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrConflict
		}
	}

	user.RefreshToken = ""
	s.users[user.ID] = user
	return nil
}

// FindByID fetches a user by id.
func (s *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// FindByUsernameOrEmail fetches the user matching either non-empty argument.
func (s *MemoryStore) FindByUsernameOrEmail(_ context.Context, username, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// UpdateProfile applies the non-nil patch fields.
func (s *MemoryStore) UpdateProfile(_ context.Context, id string, patch models.UserPatch, updatedAt time.Time) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	if patch.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && other.Email == *patch.Email {
				return models.User{}, ErrConflict
			}
		}
		user.Email = *patch.Email
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.CoverImage != nil {
		user.CoverImage = *patch.CoverImage
	}
	user.UpdatedAt = updatedAt

	s.users[id] = user
	return user, nil
}

// UpdatePassword stores a new password hash.
func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Password = passwordHash
	user.UpdatedAt = updatedAt
	s.users[id] = user
	return nil
}

// ChannelProfile counts subscriptions for the channel named username.
func (s *MemoryStore) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		channel models.User
		found   bool
	)
	for _, user := range s.users {
		if user.Username == username {
			channel, found = user, true
			break
		}
	}
	if !found {
		return models.ChannelProfile{}, ErrNotFound
	}

	profile := models.ChannelProfile{
		ID:         channel.ID,
		Username:   channel.Username,
		FullName:   channel.FullName,
		Email:      channel.Email,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for key := range s.subscriptions {
		if key.channel == channel.ID {
			profile.SubscriberCount++
			if key.subscriber == viewerID {
				profile.IsSubscribed = true
			}
		}
		if key.subscriber == channel.ID {
			profile.SubscribedToCount++
		}
	}

	return profile, nil
}

// WatchHistory returns the user's watched videos in watch order.
func (s *MemoryStore) WatchHistory(_ context.Context, userID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]models.Video, 0, len(s.history[userID]))
	for _, videoID := range s.history[userID] {
		video, ok := s.videos[videoID]
		if !ok {
			continue
		}
		if owner, ok := s.users[video.OwnerID]; ok {
			video.Owner = &models.VideoOwner{FullName: owner.FullName, Username: owner.Username, Avatar: owner.Avatar}
		}
		history = append(history, video)
	}
	return history, nil
}

// AddToWatchHistory appends videoID to the user's history.
func (s *MemoryStore) AddToWatchHistory(_ context.Context, userID, videoID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.videos[videoID]; !ok {
		return ErrNotFound
	}
	s.history[userID] = append(s.history[userID], videoID)
	return nil
}

// GetRefreshToken returns the stored refresh token.
func (s *MemoryStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	if !s.exists(userID) {
		return "", auth.ErrSessionNotFound
	}
	return s.sessions.GetRefreshToken(ctx, userID)
}

// SetRefreshToken overwrites the stored refresh token.
func (s *MemoryStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	if !s.exists(userID) {
		return ErrNotFound
	}
	return s.sessions.SetRefreshToken(ctx, userID, token)
}

// SwapRefreshToken replaces current with next if current is still stored.
func (s *MemoryStore) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	return s.sessions.SwapRefreshToken(ctx, userID, current, next)
}

// ClearRefreshToken empties the refresh token slot.
func (s *MemoryStore) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.sessions.ClearRefreshToken(ctx, userID)
}

// Subscribe records a subscription.
func (s *MemoryStore) Subscribe(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[sub.Subscriber]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[sub.Channel]; !ok {
		return ErrNotFound
	}
	key := subscriptionKey{subscriber: sub.Subscriber, channel: sub.Channel}
	if _, ok := s.subscriptions[key]; ok {
		return ErrConflict
	}
	s.subscriptions[key] = sub
	return nil
}

// Unsubscribe removes a subscription.
func (s *MemoryStore) Unsubscribe(_ context.Context, subscriberID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subscriptionKey{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subscriptions[key]; !ok {
		return ErrNotFound
	}
	delete(s.subscriptions, key)
	return nil
}

// Videos exposes the store's video collection as a VideoRepository.
func (s *MemoryStore) Videos() VideoRepository {
	return memoryVideos{store: s}
}

func (s *MemoryStore) exists(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

type memoryVideos struct {
	store *MemoryStore
}

func (v memoryVideos) Create(_ context.Context, video models.Video) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if _, ok := v.store.videos[video.ID]; ok {
		return ErrConflict
	}
	if _, ok := v.store.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	video.Owner = nil
	v.store.videos[video.ID] = video
	return nil
}

func (v memoryVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	video, ok := v.store.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// Playlists exposes the store's playlists as a PlaylistRepository.
func (s *MemoryStore) Playlists() PlaylistRepository {
	return memoryPlaylists{store: s}
}

type memoryPlaylists struct {
	store *MemoryStore
}

func (p memoryPlaylists) Create(_ context.Context, playlist models.Playlist) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if _, ok := p.store.users[playlist.OwnerID]; !ok {
		return ErrNotFound
	}
	if _, ok := p.store.playlists[playlist.ID]; ok {
		return ErrConflict
	}
	for _, existing := range p.store.playlists {
		if existing.OwnerID == playlist.OwnerID && existing.Name == playlist.Name {
			return ErrConflict
		}
	}
	playlist.Videos = append([]string{}, playlist.Videos...)
	p.store.playlists[playlist.ID] = playlist
	return nil
}

func (p memoryPlaylists) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	playlists := []models.Playlist{}
	for _, playlist := range p.store.playlists {
		if playlist.OwnerID == ownerID {
			playlist.Videos = append([]string{}, playlist.Videos...)
			playlists = append(playlists, playlist)
		}
	}
	sort.Slice(playlists, func(i, j int) bool {
		if !playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
		}
		return playlists[i].ID < playlists[j].ID
	})
	return playlists, nil
}

var _ UserRepository = (*MemoryStore)(nil)
var _ SubscriptionRepository = (*MemoryStore)(nil)
