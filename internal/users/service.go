package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// RegisterInput is a validated registration request. AvatarPath and
// CoverImagePath point at temporary local files.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput identifies an account by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User   models.User          `json:"user"`
	Tokens models.SessionTokens `json:"-"`
}

// Service implements the user operations. It is safe for concurrent use.
type Service struct {
	creds     *CredentialStore
	repo      repositories.UserRepository
	subs      repositories.SubscriptionRepository
	playlists repositories.PlaylistRepository
	sessions  *auth.Manager
	uploader  media.Uploader
	now       func() time.Time
}

// NewService wires the user operations to their collaborators.
func NewService(repo repositories.UserRepository, subs repositories.SubscriptionRepository, playlists repositories.PlaylistRepository, sessions *auth.Manager, uploader media.Uploader) *Service {
	return &Service{
		creds:     NewCredentialStore(repo),
		repo:      repo,
		subs:      subs,
		playlists: playlists,
		sessions:  sessions,
		uploader:  uploader,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account after hosting the avatar and optional cover.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.register")
	defer span.End()
	logger := logging.FromContext(ctx)

	for _, v := range []string{in.FullName, in.Email, in.Username, in.Password} {
		if strings.TrimSpace(v) == "" {
			return models.User{}, apierror.Validation(msgFieldsRequired)
		}
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return models.User{}, err
	}

	_, err := s.creds.FindByCredential(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return models.User{}, apierror.Conflict(msgUserExists)
	case !errors.Is(err, repositories.ErrNotFound):
		return models.User{}, apierror.Internal(msgRegisterFailed, err)
	}

	if strings.TrimSpace(in.AvatarPath) == "" {
		return models.User{}, apierror.Validation("Avatar file is required")
	}

	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil || avatar.URL == "" {
		logger.Warn("avatar upload failed", "error", err)
		return models.User{}, apierror.Validation("Avatar file is required")
	}

	var cover media.Asset
	if strings.TrimSpace(in.CoverImagePath) != "" {
		hosted, err := s.uploader.Upload(ctx, in.CoverImagePath)
		if err != nil {
			logger.Warn("cover image upload failed, continuing without it", "error", err)
		} else {
			cover = hosted
		}
	}

	user, err := s.creds.Create(ctx, NewUser{
		Username:   in.Username,
		Email:      in.Email,
		FullName:   in.FullName,
		Password:   in.Password,
		Avatar:     avatar.URL,
		CoverImage: cover.URL,
	})
	if err != nil {
		s.releaseAssets(ctx, avatar, cover)
		return models.User{}, err
	}

	logger.Info("user registered", "userId", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and starts a session, overwriting any previous one.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	logger := logging.FromContext(ctx)

	if strings.TrimSpace(in.Username) == "" && strings.TrimSpace(in.Email) == "" {
		return LoginResult{}, apierror.Validation("username or email is required")
	}

	user, err := s.creds.FindByCredential(ctx, in.Username, in.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return LoginResult{}, apierror.UnknownAccount("User does not exist")
		}
		return LoginResult{}, apierror.Internal("Something went wrong while logging in", err)
	}

	if !auth.VerifyPassword(in.Password, user.Password) {
		logger.Warn("login password mismatch", "userId", user.ID)
		return LoginResult{}, apierror.Unauthorized("Invalid user credentials")
	}

	tokens, err := s.sessions.Rotate(ctx, user, "")
	if err != nil {
		return LoginResult{}, apierror.Internal("Something went wrong while generating refresh and access token", err)
	}

	logger.Info("user logged in", "userId", user.ID)
	return LoginResult{User: Sanitize(user), Tokens: tokens}, nil
}

// Logout clears the stored refresh token, ending every session of the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apierror.Internal("Something went wrong while logging out", err)
	}
	logging.FromContext(ctx).Info("user logged out", "userId", userID)
	return nil
}

// Refresh exchanges a refresh token for a new token pair. The presented token
// must be the one currently stored; it is superseded on success.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	logger := logging.FromContext(ctx)

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.SessionTokens{}, apierror.Unauthorized("Unauthorized request")
	}

	claims, err := s.sessions.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		logger.Warn("refresh token rejected", "error", err)
		return models.SessionTokens{}, refreshRejection(err)
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, apierror.Unauthorized("Invalid refresh token")
		}
		return models.SessionTokens{}, apierror.Internal("Something went wrong while refreshing the session", err)
	}

	tokens, err := s.sessions.Rotate(ctx, user, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			logger.Warn("refresh token superseded concurrently", "userId", user.ID)
			return models.SessionTokens{}, refreshRejection(err)
		}
		return models.SessionTokens{}, apierror.Internal("Something went wrong while generating refresh and access token", err)
	}
	return tokens, nil
}

func refreshRejection(err error) *apierror.Error {
	var msg string
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		msg = "Refresh token is expired"
	case errors.Is(err, auth.ErrSessionNotFound):
		msg = "Refresh token is expired or used"
	default:
		msg = "Invalid refresh token"
	}
	rejection := apierror.Unauthorized(msg)
	rejection.Err = err
	return rejection
}

// ChangePassword replaces the password after checking the old one. Sessions
// are left untouched.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apierror.NotFound(msgUserNotFound)
		}
		return apierror.Internal(msgUpdateFailed, err)
	}

	if !auth.VerifyPassword(oldPassword, user.Password) {
		return apierror.Validation("Invalid old password")
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}
	if err := s.creds.SetPassword(ctx, userID, newPassword); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("password changed", "userId", userID)
	return nil
}

// CurrentUser returns the sanitized record of userID.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apierror.NotFound(msgUserNotFound)
		}
		return models.User{}, apierror.Internal("Something went wrong while loading the user", err)
	}
	return user, nil
}

// UpdateAccount changes the full name and email.
func (s *Service) UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" {
		return models.User{}, apierror.Validation(msgFieldsRequired)
	}
	return s.creds.UpdateProfile(ctx, userID, models.UserPatch{FullName: &fullName, Email: &email})
}

// UpdateAvatar hosts the file at localPath and points the avatar at it.
func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error) {
	asset, err := s.hostImage(ctx, localPath, "Avatar file is missing", "Error while uploading avatar")
	if err != nil {
		return models.User{}, err
	}
	user, err := s.creds.UpdateProfile(ctx, userID, models.UserPatch{Avatar: &asset.URL})
	if err != nil {
		s.releaseAssets(ctx, asset)
	}
	return user, err
}

// UpdateCoverImage hosts the file at localPath and points the cover at it.
func (s *Service) UpdateCoverImage(ctx context.Context, userID, localPath string) (models.User, error) {
	asset, err := s.hostImage(ctx, localPath, "Cover image file is missing", "Error while uploading cover image")
	if err != nil {
		return models.User{}, err
	}
	user, err := s.creds.UpdateProfile(ctx, userID, models.UserPatch{CoverImage: &asset.URL})
	if err != nil {
		s.releaseAssets(ctx, asset)
	}
	return user, err
}

func (s *Service) hostImage(ctx context.Context, localPath, missingMsg, failedMsg string) (media.Asset, error) {
	if strings.TrimSpace(localPath) == "" {
		return media.Asset{}, apierror.Validation(missingMsg)
	}
	asset, err := s.uploader.Upload(ctx, localPath)
	if err != nil || asset.URL == "" {
		logging.FromContext(ctx).Warn("image upload failed", "error", err)
		return media.Asset{}, apierror.Validation(failedMsg)
	}
	return asset, nil
}

// releaseAssets drops hosted files no account ended up referencing. Uploaders
// that cannot delete leave the keys in the log for cleanup.
func (s *Service) releaseAssets(ctx context.Context, assets ...media.Asset) {
	logger := logging.FromContext(ctx)
	remover, canRemove := s.uploader.(media.Remover)
	for _, asset := range assets {
		if asset.Key == "" {
			continue
		}
		if !canRemove {
			logger.Warn("orphaned media asset", "key", asset.Key, "url", asset.URL)
			continue
		}
		if err := remover.Remove(ctx, asset.Key); err != nil {
			logger.Warn("remove orphaned media asset", "key", asset.Key, "error", err)
		}
	}
}

// ChannelProfile aggregates the channel named username as seen by viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "users.channel_profile")
	defer span.End()

	username = normalizeIdentity(username)
	if username == "" {
		return models.ChannelProfile{}, apierror.Validation("username is missing")
	}

	profile, err := s.repo.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, apierror.NotFound("channel does not exist")
		}
		return models.ChannelProfile{}, apierror.Internal("Something went wrong while loading the channel", err)
	}
	return profile, nil
}

// WatchHistory lists the videos userID watched, oldest first.
func (s *Service) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "users.watch_history")
	defer span.End()

	history, err := s.repo.WatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apierror.NotFound(msgUserNotFound)
		}
		return nil, apierror.Internal("Something went wrong while loading the watch history", err)
	}
	return history, nil
}

// AddToWatchHistory appends videoID to the user's history.
func (s *Service) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return apierror.Validation("video id is missing")
	}
	if err := s.repo.AddToWatchHistory(ctx, userID, videoID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apierror.NotFound("Video not found")
		}
		return apierror.Internal("Something went wrong while updating the watch history", err)
	}
	return nil
}

// Subscribe makes subscriberID follow the channel named username and returns
// the channel's updated profile.
func (s *Service) Subscribe(ctx context.Context, subscriberID, username string) (models.ChannelProfile, error) {
	channel, err := s.ChannelProfile(ctx, username, subscriberID)
	if err != nil {
		return models.ChannelProfile{}, err
	}
	if channel.ID == subscriberID {
		return models.ChannelProfile{}, apierror.Validation("You cannot subscribe to your own channel")
	}

	err = s.subs.Subscribe(ctx, models.Subscription{
		ID:         uuid.NewString(),
		Subscriber: subscriberID,
		Channel:    channel.ID,
		CreatedAt:  s.now(),
	})
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return models.ChannelProfile{}, apierror.Conflict("Already subscribed to this channel")
	case errors.Is(err, repositories.ErrNotFound):
		return models.ChannelProfile{}, apierror.NotFound("channel does not exist")
	case err != nil:
		return models.ChannelProfile{}, apierror.Internal("Something went wrong while subscribing", err)
	}

	logging.FromContext(ctx).Info("subscribed", "subscriberId", subscriberID, "channelId", channel.ID)
	return s.ChannelProfile(ctx, username, subscriberID)
}

// Unsubscribe removes subscriberID from the channel named username.
func (s *Service) Unsubscribe(ctx context.Context, subscriberID, username string) (models.ChannelProfile, error) {
	channel, err := s.ChannelProfile(ctx, username, subscriberID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	if err := s.subs.Unsubscribe(ctx, subscriberID, channel.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, apierror.NotFound("Not subscribed to this channel")
		}
		return models.ChannelProfile{}, apierror.Internal("Something went wrong while unsubscribing", err)
	}

	logging.FromContext(ctx).Info("unsubscribed", "subscriberId", subscriberID, "channelId", channel.ID)
	return s.ChannelProfile(ctx, username, subscriberID)
}

// Authenticate resolves an access token to its sanitized user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return models.User{}, apierror.Unauthorized("Unauthorized request")
	}

	claims, err := s.sessions.VerifyAccessToken(accessToken)
	if err != nil {
		msg := "Invalid access token"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "Access token expired"
		}
		rejection := apierror.Unauthorized(msg)
		rejection.Err = err
		return models.User{}, rejection
	}

	user, err := s.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apierror.Unauthorized("Invalid access token")
		}
		return models.User{}, apierror.Internal("Something went wrong while authenticating", err)
	}
	return user, nil
}
