package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
)

// The refresh token lives on the users row; a user holds at most one.

// GetRefreshToken returns the stored refresh token, or "" when the slot is empty.
func (r *PostgresUserRepository) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := r.pool.QueryRow(ctx, `
        SELECT COALESCE(refresh_token, '')
        FROM users
        WHERE id = $1
    `, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrSessionNotFound
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}
	return token, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2
        WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapRefreshToken replaces current with next in a single conditional update,
// so only one of several concurrent callers presenting current can succeed.
func (r *PostgresUserRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, userID, current, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}

	return nil
}

// ClearRefreshToken empties the refresh token slot.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULL
        WHERE id = $1
    `, userID)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
