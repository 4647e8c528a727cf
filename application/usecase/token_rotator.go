package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fixora/authapi/application/port/outbound"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/domain/valueobject"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

// Rejection reasons. They are logged and counted, never returned to callers.
const (
	ReasonMissingTokens   = "missing_tokens"
	ReasonBadSignature    = "bad_signature"
	ReasonUnknownIdentity = "unknown_identity"
	ReasonNoRefreshToken  = "no_refresh_token"
	ReasonRefreshMismatch = "refresh_mismatch"
	ReasonRefreshExpired  = "refresh_expired"
	ReasonConcurrentSwap  = "concurrent_rotation"
)

// TokenRotator exchanges an access token (expired or not) and its refresh
// token for a new pair.
type TokenRotator struct {
	userRepo         outbound.UserRepository
	refreshTokenRepo outbound.RefreshTokenRepository
	tokenService     outbound.TokenService
	issuer           *TokenIssuer
	metrics          outbound.AuthMetrics
	logger           logger.Logger
	now              func() time.Time
}

func NewTokenRotator(
	userRepo outbound.UserRepository,
	refreshTokenRepo outbound.RefreshTokenRepository,
	tokenService outbound.TokenService,
	issuer *TokenIssuer,
	metrics outbound.AuthMetrics,
	log logger.Logger,
) *TokenRotator {
	return &TokenRotator{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokenService:     tokenService,
		issuer:           issuer,
		metrics:          metrics,
		logger:           log,
		now:              time.Now,
	}
}

func (r *TokenRotator) Rotate(ctx context.Context, accessToken, refreshToken, ip string) (*valueobject.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, r.reject(ctx, ReasonMissingTokens, "", ip, nil)
	}

	claims, err := r.tokenService.ParseExpiredAccessToken(accessToken)
	if err != nil {
		return nil, r.reject(ctx, ReasonBadSignature, "", ip, err)
	}

	user, err := r.userRepo.FindByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, r.reject(ctx, ReasonUnknownIdentity, claims.Username, ip, nil)
		}
		r.metrics.ObserveRefresh("error")
		return nil, domainerror.ErrDatabaseError("find user by username", err)
	}

	stored, err := r.refreshTokenRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			return nil, r.reject(ctx, ReasonNoRefreshToken, user.Username, ip, nil)
		}
		r.metrics.ObserveRefresh("error")
		return nil, domainerror.ErrDatabaseError("find refresh token", err)
	}
	if !r.refreshTokenRepo.Matches(stored, refreshToken) {
		return nil, r.reject(ctx, ReasonRefreshMismatch, user.Username, ip, nil)
	}
	if stored.IsExpiredAt(r.now()) {
		return nil, r.reject(ctx, ReasonRefreshExpired, user.Username, ip, nil)
	}

	pair, err := r.issuer.Reissue(ctx, user, stored)
	if err != nil {
		if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			return nil, r.reject(ctx, ReasonConcurrentSwap, user.Username, ip, nil)
		}
		r.metrics.ObserveRefresh("error")
		return nil, err
	}

	r.metrics.ObserveRefresh("success")
	logger.LogAuthEvent(ctx, r.logger, "token_refreshed", user.ID, ip, true, map[string]interface{}{
		"username": user.Username,
	})
	return pair, nil
}

func (r *TokenRotator) reject(ctx context.Context, reason, username, ip string, cause error) error {
	r.metrics.ObserveRefresh(reason)

	fields := map[string]interface{}{
		"reason":        reason,
		"username":      username,
		"ip":            ip,
		"refresh_token": logger.Redacted,
	}
	if cause != nil {
		fields["cause"] = cause.Error()
	}
	logger.LogSecurityEvent(ctx, r.logger, "refresh_rejected", "MEDIUM", fields)

	return domainerror.ErrInvalidRequest(reason)
}
