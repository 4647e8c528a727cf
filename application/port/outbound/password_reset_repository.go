package outbound

import (
	"context"
	"errors"

	"github.com/fixora/authapi/domain/entity"
)

var ErrPasswordResetNotFound = errors.New("password reset not found")

// PasswordResetRepository keeps one outstanding reset per user.
type PasswordResetRepository interface {
	Save(ctx context.Context, reset *entity.PasswordReset) error
	FindByUserID(ctx context.Context, userID string) (*entity.PasswordReset, error)
	DeleteByUserID(ctx context.Context, userID string) error
	Matches(stored *entity.PasswordReset, token string) bool
}
