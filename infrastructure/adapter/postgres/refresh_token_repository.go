package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
)

type RefreshTokenRepositoryAdapter struct {
	db   *sql.DB
	salt string
}

func NewRefreshTokenRepositoryAdapter(db *sql.DB, salt string) outbound.RefreshTokenRepository {
	return &RefreshTokenRepositoryAdapter{
		db:   db,
		salt: salt,
	}
}

func validateRefreshToken(token *entity.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("refresh token cannot be nil")
	}
	if token.UserID == "" || token.Token == "" {
		return fmt.Errorf("refresh token user ID and token are required")
	}
	return nil
}

// Save upserts on user_id so a user never holds more than one refresh token.
func (r *RefreshTokenRepositoryAdapter) Save(ctx context.Context, token *entity.RefreshToken) error {
	if err := validateRefreshToken(token); err != nil {
		return err
	}

	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`

	hash := hashToken(token.Token, r.salt)
	_, err := r.db.ExecContext(ctx, query, token.UserID, hash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		if uniqueConstraint(err) == "refresh_tokens_token_hash_key" {
			return outbound.ErrRefreshTokenAlreadyExists
		}
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	token.TokenHash = hash
	return nil
}

// Replace is a compare-and-swap on the stored hash: only the rotation that
// still sees previous in the row wins.
func (r *RefreshTokenRepositoryAdapter) Replace(ctx context.Context, previous, next *entity.RefreshToken) error {
	if previous == nil || previous.TokenHash == "" {
		return fmt.Errorf("previous refresh token hash is required")
	}
	if err := validateRefreshToken(next); err != nil {
		return err
	}

	query := `
		UPDATE refresh_tokens
		SET token_hash = $1, expires_at = $2, created_at = $3
		WHERE user_id = $4 AND token_hash = $5
	`

	hash := hashToken(next.Token, r.salt)
	result, err := r.db.ExecContext(ctx, query, hash, next.ExpiresAt, next.CreatedAt, next.UserID, previous.TokenHash)
	if err != nil {
		if uniqueConstraint(err) == "refresh_tokens_token_hash_key" {
			return outbound.ErrRefreshTokenAlreadyExists
		}
		return fmt.Errorf("failed to replace refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return outbound.ErrRefreshTokenNotFound
	}

	next.TokenHash = hash
	return nil
}

func (r *RefreshTokenRepositoryAdapter) FindByUserID(ctx context.Context, userID string) (*entity.RefreshToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := `
		SELECT user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1
	`

	var token entity.RefreshToken
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	return &token, nil
}

func (r *RefreshTokenRepositoryAdapter) ExistsByToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token cannot be empty")
	}

	query := `SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token_hash = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, hashToken(token, r.salt)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return exists, nil
}

func (r *RefreshTokenRepositoryAdapter) Matches(stored *entity.RefreshToken, token string) bool {
	if stored == nil {
		return false
	}
	return tokenMatches(stored.TokenHash, token, r.salt)
}
