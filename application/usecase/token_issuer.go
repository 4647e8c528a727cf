package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/domain/valueobject"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

var errRefreshTokenCollision = errors.New("generated refresh token collides with a stored one")

type TokenIssuerConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// MaxAttempts bounds how many refresh tokens are generated before giving
	// up on finding an unused one.
	MaxAttempts int
}

// TokenIssuer mints access/refresh pairs and persists the refresh half.
type TokenIssuer struct {
	tokenService     outbound.TokenService
	refreshTokenRepo outbound.RefreshTokenRepository
	logger           logger.Logger
	config           TokenIssuerConfig
	now              func() time.Time
}

func NewTokenIssuer(
	tokenService outbound.TokenService,
	refreshTokenRepo outbound.RefreshTokenRepository,
	log logger.Logger,
	config TokenIssuerConfig,
) *TokenIssuer {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &TokenIssuer{
		tokenService:     tokenService,
		refreshTokenRepo: refreshTokenRepo,
		logger:           log,
		config:           config,
		now:              time.Now,
	}
}

// Issue mints a new pair for user and stores the refresh token, replacing any
// token the user held.
func (i *TokenIssuer) Issue(ctx context.Context, user *entity.User) (*valueobject.TokenPair, error) {
	return i.issue(ctx, user, func(ctx context.Context, next *entity.RefreshToken) error {
		return i.refreshTokenRepo.Save(ctx, next)
	})
}

// Reissue is Issue for a rotation: the new refresh token only lands if
// previous is still the stored one.
func (i *TokenIssuer) Reissue(ctx context.Context, user *entity.User, previous *entity.RefreshToken) (*valueobject.TokenPair, error) {
	return i.issue(ctx, user, func(ctx context.Context, next *entity.RefreshToken) error {
		return i.refreshTokenRepo.Replace(ctx, previous, next)
	})
}

func (i *TokenIssuer) issue(ctx context.Context, user *entity.User, store func(context.Context, *entity.RefreshToken) error) (*valueobject.TokenPair, error) {
	now := i.now()

	accessToken, err := i.tokenService.GenerateAccessToken(outbound.TokenClaims{
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Role:        user.Role,
		ExpiresAt:   now.Add(i.config.AccessTokenTTL),
	})
	if err != nil {
		return nil, domainerror.ErrInternalServerError("sign access token", err)
	}

	attempts := 0
	backoff := retry.WithMaxRetries(uint64(i.config.MaxAttempts-1), retry.NewConstant(time.Millisecond))

	refreshToken, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		attempts++

		candidate, err := i.tokenService.GenerateRefreshToken()
		if err != nil {
			return "", fmt.Errorf("generate refresh token: %w", err)
		}

		exists, err := i.refreshTokenRepo.ExistsByToken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if exists {
			return "", retry.RetryableError(errRefreshTokenCollision)
		}

		next := entity.NewRefreshToken(user.ID, candidate, now.Add(i.config.RefreshTokenTTL))
		if err := store(ctx, next); err != nil {
			if errors.Is(err, outbound.ErrRefreshTokenAlreadyExists) {
				return "", retry.RetryableError(errRefreshTokenCollision)
			}
			return "", err
		}

		return candidate, nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errRefreshTokenCollision):
		logger.LogSecurityEvent(ctx, i.logger, "refresh_token_uniqueness_exhausted", "HIGH", map[string]interface{}{
			"user_id":  user.ID,
			"attempts": attempts,
		})
		return nil, domainerror.ErrInternalServerError(
			fmt.Sprintf("no unique refresh token after %d attempts", attempts), err)
	case errors.Is(err, outbound.ErrRefreshTokenNotFound):
		return nil, err
	default:
		return nil, domainerror.ErrDatabaseError("store refresh token", err)
	}

	if attempts > 1 {
		i.logger.Warn(ctx, "Refresh token re-rolled after collision", map[string]interface{}{
			"user_id":  user.ID,
			"attempts": attempts,
		})
	}

	return valueobject.NewTokenPair(accessToken, refreshToken), nil
}
