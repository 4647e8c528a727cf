package outbound

import (
	"context"
	"errors"

	"github.com/fixora/authapi/domain/entity"
)

var (
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")
	ErrRefreshTokenAlreadyExists = errors.New("refresh token already exists")
)

// RefreshTokenRepository stores at most one refresh token per user.
type RefreshTokenRepository interface {
	// Save replaces whatever token the user had. Returns
	// ErrRefreshTokenAlreadyExists when the token collides with another user's.
	Save(ctx context.Context, token *entity.RefreshToken) error
	// Replace swaps previous for next only if previous is still the stored
	// token. Returns ErrRefreshTokenNotFound when another rotation won.
	Replace(ctx context.Context, previous, next *entity.RefreshToken) error
	FindByUserID(ctx context.Context, userID string) (*entity.RefreshToken, error)
	ExistsByToken(ctx context.Context, token string) (bool, error)
	// Matches reports whether token is the user's stored token.
	Matches(stored *entity.RefreshToken, token string) bool
}
