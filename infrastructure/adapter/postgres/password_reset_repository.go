package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
)

type PasswordResetRepositoryAdapter struct {
	db   *sql.DB
	salt string
}

func NewPasswordResetRepositoryAdapter(db *sql.DB, salt string) outbound.PasswordResetRepository {
	return &PasswordResetRepositoryAdapter{
		db:   db,
		salt: salt,
	}
}

// Save replaces any outstanding reset for the same user.
func (r *PasswordResetRepositoryAdapter) Save(ctx context.Context, reset *entity.PasswordReset) error {
	if reset == nil {
		return fmt.Errorf("password reset cannot be nil")
	}
	if reset.UserID == "" || reset.Token == "" {
		return fmt.Errorf("password reset user ID and token are required")
	}

	query := `
		INSERT INTO password_resets (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`

	hash := hashToken(reset.Token, r.salt)
	if _, err := r.db.ExecContext(ctx, query, reset.UserID, hash, reset.ExpiresAt, reset.CreatedAt); err != nil {
		return fmt.Errorf("failed to save password reset: %w", err)
	}

	reset.TokenHash = hash
	return nil
}

func (r *PasswordResetRepositoryAdapter) FindByUserID(ctx context.Context, userID string) (*entity.PasswordReset, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := `
		SELECT user_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE user_id = $1
	`

	var reset entity.PasswordReset
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&reset.UserID,
		&reset.TokenHash,
		&reset.ExpiresAt,
		&reset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrPasswordResetNotFound
		}
		return nil, fmt.Errorf("failed to find password reset: %w", err)
	}

	return &reset, nil
}

func (r *PasswordResetRepositoryAdapter) DeleteByUserID(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete password reset: %w", err)
	}
	return nil
}

func (r *PasswordResetRepositoryAdapter) Matches(stored *entity.PasswordReset, token string) bool {
	if stored == nil {
		return false
	}
	return tokenMatches(stored.TokenHash, token, r.salt)
}
