// Package users implements account registration, sessions, profile updates
// and the channel and watch-history views.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

const (
	msgFieldsRequired = "All fields are required"
	msgUserExists     = "User with email or username already exists"
	msgRegisterFailed = "Something went wrong while registering the user"
	msgUserNotFound   = "User not found"
	msgUpdateFailed   = "Something went wrong while updating the user"
	msgEmailTaken     = "Email is already in use"
	msgPasswordLong   = "Password must be at most 72 bytes"
)

// NewUser carries the fields required to create an account.
type NewUser struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

// CredentialStore owns user records and their password hashes. Only Create
// and SetPassword hash; every other update leaves the stored hash alone.
type CredentialStore struct {
	repo repositories.UserRepository
	now  func() time.Time
}

// NewCredentialStore wraps repo.
func NewCredentialStore(repo repositories.UserRepository) *CredentialStore {
	return &CredentialStore{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create normalizes and validates fields, hashes the password and persists a
// new user. The returned record is sanitized.
func (c *CredentialStore) Create(ctx context.Context, in NewUser) (models.User, error) {
	in.Username = normalizeIdentity(in.Username)
	in.Email = normalizeIdentity(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Avatar = strings.TrimSpace(in.Avatar)

	required := []struct{ name, value string }{
		{"username", in.Username},
		{"email", in.Email},
		{"fullName", in.FullName},
		{"password", strings.TrimSpace(in.Password)},
		{"avatar", in.Avatar},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return models.User{}, apierror.Validation(msgFieldsRequired, missing...)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, passwordError(err, msgRegisterFailed)
	}

	now := c.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   in.Username,
		Email:      in.Email,
		FullName:   in.FullName,
		Avatar:     in.Avatar,
		CoverImage: strings.TrimSpace(in.CoverImage),
		Password:   hash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := c.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, apierror.Conflict(msgUserExists)
		}
		return models.User{}, apierror.Internal(msgRegisterFailed, err)
	}

	created, err := c.repo.FindByID(ctx, user.ID)
	if err != nil {
		return models.User{}, apierror.Internal(msgRegisterFailed, fmt.Errorf("fetch created user: %w", err))
	}
	return Sanitize(created), nil
}

// FindByCredential looks a user up by username or email. The returned record
// includes the password hash and is for internal use only.
func (c *CredentialStore) FindByCredential(ctx context.Context, username, email string) (models.User, error) {
	return c.repo.FindByUsernameOrEmail(ctx, normalizeIdentity(username), normalizeIdentity(email))
}

// FindByID returns the sanitized user.
func (c *CredentialStore) FindByID(ctx context.Context, id string) (models.User, error) {
	user, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return Sanitize(user), nil
}

// UpdateProfile applies a partial update and returns the sanitized record.
func (c *CredentialStore) UpdateProfile(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	if patch.Email != nil {
		email := normalizeIdentity(*patch.Email)
		patch.Email = &email
	}
	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		patch.FullName = &name
	}

	user, err := c.repo.UpdateProfile(ctx, id, patch, c.now())
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.User{}, apierror.NotFound(msgUserNotFound)
	case errors.Is(err, repositories.ErrConflict):
		return models.User{}, apierror.Conflict(msgEmailTaken)
	case err != nil:
		return models.User{}, apierror.Internal(msgUpdateFailed, err)
	}
	return Sanitize(user), nil
}

// SetPassword hashes plain and stores it for the user.
func (c *CredentialStore) SetPassword(ctx context.Context, id, plain string) error {
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return passwordError(err, msgUpdateFailed)
	}
	if err := c.repo.UpdatePassword(ctx, id, hash, c.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apierror.NotFound(msgUserNotFound)
		}
		return apierror.Internal(msgUpdateFailed, err)
	}
	return nil
}

// Sanitize strips credential material from user.
func Sanitize(user models.User) models.User {
	return user.Sanitized()
}

// passwordError maps hashing failures caused by the input to 400s.
func passwordError(err error, internalMsg string) error {
	switch {
	case errors.Is(err, auth.ErrEmptyPassword):
		return apierror.Validation("New password is required")
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apierror.Validation(msgPasswordLong)
	default:
		return apierror.Internal(internalMsg, err)
	}
}

// checkPasswordLength rejects input bcrypt cannot hash.
func checkPasswordLength(plain string) error {
	if len(plain) > auth.MaxPasswordBytes {
		return apierror.Validation(msgPasswordLong)
	}
	return nil
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
