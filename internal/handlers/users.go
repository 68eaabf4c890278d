package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/users"
	"github.com/vidtube/backend/internal/validation"
)

const (
	fieldAvatar     = "avatar"
	fieldCoverImage = "coverImage"
)

// UserHandler implements the /api/v1/users endpoints.
type UserHandler struct {
	Users UserService
}

type registerForm struct {
	FullName string `form:"fullName" validate:"notblank"`
	Email    string `form:"email" validate:"notblank"`
	Username string `form:"username" validate:"notblank"`
	Password string `form:"password" validate:"notblank,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"notblank"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"notblank"`
	NewPassword string `json:"newPassword" validate:"notblank,max=72"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
}

type createPlaylistRequest struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	form := registerForm{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := validation.Struct(form, "All fields are required"); err != nil {
		return err
	}

	user, err := h.Users.Register(ctx, users.RegisterInput{
		Username:       form.Username,
		Email:          form.Email,
		FullName:       form.FullName,
		Password:       form.Password,
		AvatarPath:     middleware.UploadedFile(ctx, fieldAvatar),
		CoverImagePath: middleware.UploadedFile(ctx, fieldCoverImage),
	})
	if err != nil {
		return err
	}

	return respondJSON(ctx, w, http.StatusCreated, user, "User registered Successfully")
}

// Login handles POST /login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req loginRequest
	if err := validation.DecodeJSON(r, &req, "username or email is required"); err != nil {
		return err
	}

	result, err := h.Users.Login(ctx, users.LoginInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	auth.SetSessionCookies(w, result.Tokens)
	return respondJSON(ctx, w, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged In Successfully")
}

// Logout handles POST /logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := h.Users.Logout(r.Context(), user.ID); err != nil {
		return err
	}

	auth.ClearSessionCookies(w)
	return respondJSON(r.Context(), w, http.StatusOK, nil, "User logged Out")
}

// RefreshToken handles POST /refresh-token. The token comes from the
// refreshToken cookie or the JSON body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	token := auth.RefreshTokenFromCookie(r)
	if token == "" && r.Body != nil {
		var req refreshRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			logging.FromContext(ctx).Warn("invalid refresh payload", "error", err)
		}
		token = strings.TrimSpace(req.RefreshToken)
	}

	tokens, err := h.Users.Refresh(ctx, token)
	if err != nil {
		auth.ClearSessionCookies(w)
		return err
	}

	auth.SetSessionCookies(w, tokens)
	return respondJSON(ctx, w, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles POST /change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := validation.DecodeJSON(r, &req, "Old and new passwords are required"); err != nil {
		return err
	}
	if err := h.Users.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser handles GET|POST /current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	fresh, err := h.Users.CurrentUser(r.Context(), user.ID)
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, fresh, "User fetched successfully")
}

// UpdateAccount handles PATCH /update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := validation.DecodeJSON(r, &req, "All fields are required"); err != nil {
		return err
	}
	updated, err := h.Users.UpdateAccount(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	updated, err := h.Users.UpdateAvatar(r.Context(), user.ID, middleware.UploadedFile(r.Context(), fieldAvatar))
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, updated, "Avatar image updated successfully")
}

// UpdateCoverImage handles PATCH /cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	updated, err := h.Users.UpdateCoverImage(r.Context(), user.ID, middleware.UploadedFile(r.Context(), fieldCoverImage))
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, updated, "Cover image updated successfully")
}

// ChannelProfile handles GET /c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	profile, err := h.Users.ChannelProfile(r.Context(), chi.URLParam(r, "username"), user.ID)
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, profile, "User channel fetched successfully")
}

// ChannelPlaylists handles GET /c/{username}/playlists.
func (h UserHandler) ChannelPlaylists(w http.ResponseWriter, r *http.Request) error {
	playlists, err := h.Users.ChannelPlaylists(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, playlists, "Playlists fetched successfully")
}

// CreatePlaylist handles POST /playlists.
func (h UserHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req createPlaylistRequest
	if err := validation.DecodeJSON(r, &req, "Playlist name is required"); err != nil {
		return err
	}
	playlist, err := h.Users.CreatePlaylist(r.Context(), user.ID, req.Name, req.Description)
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusCreated, playlist, "Playlist created successfully")
}

// Subscribe handles POST /c/{username}/subscription.
func (h UserHandler) Subscribe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	profile, err := h.Users.Subscribe(r.Context(), user.ID, chi.URLParam(r, "username"))
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, profile, "Subscribed successfully")
}

// Unsubscribe handles DELETE /c/{username}/subscription.
func (h UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	profile, err := h.Users.Unsubscribe(r.Context(), user.ID, chi.URLParam(r, "username"))
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, profile, "Unsubscribed successfully")
}

// WatchHistory handles GET /history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	history, err := h.Users.WatchHistory(r.Context(), user.ID)
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, history, "Watch history fetched successfully")
}

// AddToWatchHistory handles POST /history/{videoID}.
func (h UserHandler) AddToWatchHistory(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := h.Users.AddToWatchHistory(r.Context(), user.ID, chi.URLParam(r, "videoID")); err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, nil, "Added to watch history")
}
