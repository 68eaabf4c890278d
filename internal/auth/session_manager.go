package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the user has no stored refresh token, or the
	// stored token differs from the one presented.
	ErrSessionNotFound = errors.New("session not found")
)

// RefreshTokenStore persists the single valid refresh token held by each user.
type RefreshTokenStore interface {
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	// SwapRefreshToken replaces current with next atomically and returns
	// ErrSessionNotFound when the stored value is not current.
	SwapRefreshToken(ctx context.Context, userID, current, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager manages the lifecycle of issued session tokens backed by a persistent store.
type Manager struct {
	tokens *TokenIssuer
	store  RefreshTokenStore
}

// NewManager constructs a Manager that signs with tokens and persists refresh
// tokens in store.
func NewManager(tokens *TokenIssuer, store RefreshTokenStore) *Manager {
	if tokens == nil {
		panic("auth: token issuer must not be nil")
	}
	if store == nil {
		panic("auth: refresh token store must not be nil")
	}
	return &Manager{tokens: tokens, store: store}
}

// Rotate issues a new token pair for user and persists the refresh token.
// With an empty previous token the stored slot is overwritten; otherwise
// previous must still be the stored value or ErrSessionNotFound is returned.
func (m *Manager) Rotate(ctx context.Context, user models.User, previous string) (models.SessionTokens, error) {
	if user.ID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	accessToken, accessExpires, err := m.tokens.IssueAccessToken(user)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refreshToken, refreshExpires, err := m.tokens.IssueRefreshToken(user)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if previous == "" {
		err = m.store.SetRefreshToken(ctx, user.ID, refreshToken)
	} else {
		err = m.store.SwapRefreshToken(ctx, user.ID, previous, refreshToken)
	}
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return models.SessionTokens{}, err
		}
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// VerifyAccessToken validates an access token.
func (m *Manager) VerifyAccessToken(token string) (AccessClaims, error) {
	return m.tokens.ParseAccessToken(token)
}

// VerifyRefreshToken validates a refresh token and checks it is exactly the
// value currently stored for its user. Superseded tokens are rejected.
func (m *Manager) VerifyRefreshToken(ctx context.Context, token string) (RefreshClaims, error) {
	claims, err := m.tokens.ParseRefreshToken(token)
	if err != nil {
		return RefreshClaims{}, err
	}

	stored, err := m.store.GetRefreshToken(ctx, claims.UserID)
	if err != nil {
		return RefreshClaims{}, err
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return RefreshClaims{}, ErrSessionNotFound
	}

	return claims, nil
}

// Revoke clears the stored refresh token, invalidating every outstanding one.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.ClearRefreshToken(ctx, userID)
}
