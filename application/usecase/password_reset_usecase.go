package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/domain/valueobject"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type PasswordResetUseCase struct {
	userRepo        outbound.UserRepository
	resetRepo       outbound.PasswordResetRepository
	tokenService    outbound.TokenService
	passwordService outbound.PasswordService
	composer        outbound.ResetEmailComposer
	sender          outbound.EmailSender
	metrics         outbound.AuthMetrics
	logger          logger.Logger
	resetTTL        time.Duration
	now             func() time.Time
}

func NewPasswordResetUseCase(
	userRepo outbound.UserRepository,
	resetRepo outbound.PasswordResetRepository,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	composer outbound.ResetEmailComposer,
	sender outbound.EmailSender,
	metrics outbound.AuthMetrics,
	log logger.Logger,
	resetTTL time.Duration,
) *PasswordResetUseCase {
	return &PasswordResetUseCase{
		userRepo:        userRepo,
		resetRepo:       resetRepo,
		tokenService:    tokenService,
		passwordService: passwordService,
		composer:        composer,
		sender:          sender,
		metrics:         metrics,
		logger:          log,
		resetTTL:        resetTTL,
		now:             time.Now,
	}
}

var _ inbound.PasswordResetUseCase = (*PasswordResetUseCase)(nil)

func (uc *PasswordResetUseCase) SendResetEmail(ctx context.Context, email string) error {
	user, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			uc.metrics.ObservePasswordReset("request", "unknown_email")
			return domainerror.ErrEmailNotFound(email)
		}
		return domainerror.ErrDatabaseError("find user by email", err)
	}

	// Reset tokens share the refresh token format: 64 random bytes, base64.
	token, err := uc.tokenService.GenerateRefreshToken()
	if err != nil {
		return domainerror.ErrInternalServerError("generate reset token", err)
	}

	reset := entity.NewPasswordReset(user.ID, token, uc.now().Add(uc.resetTTL))
	if err := uc.resetRepo.Save(ctx, reset); err != nil {
		return domainerror.ErrDatabaseError("save password reset", err)
	}

	msg, err := uc.composer.ComposePasswordReset(user, token)
	if err != nil {
		return domainerror.ErrInternalServerError("compose reset email", err)
	}
	if err := uc.sender.Send(ctx, msg); err != nil {
		uc.metrics.ObservePasswordReset("request", "dispatch_failed")
		uc.logger.Error(ctx, "Failed to dispatch reset email", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return domainerror.ErrInternalServerError("send reset email", err)
	}

	uc.metrics.ObservePasswordReset("request", "success")
	uc.logger.Info(ctx, "Password reset email dispatched", map[string]interface{}{
		"user_id":    user.ID,
		"expires_at": reset.ExpiresAt,
	})
	return nil
}

func (uc *PasswordResetUseCase) ResetPassword(ctx context.Context, req inbound.ResetPasswordRequest) error {
	user, err := uc.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			uc.metrics.ObservePasswordReset("confirm", "unknown_email")
			return domainerror.ErrResetUserNotFound(req.Email)
		}
		return domainerror.ErrDatabaseError("find user by email", err)
	}

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword {
		uc.metrics.ObservePasswordReset("confirm", "password_mismatch")
		return domainerror.ErrPasswordMismatch()
	}

	stored, err := uc.resetRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, outbound.ErrPasswordResetNotFound) {
			return uc.rejectLink(ctx, user.ID, "no_reset_token")
		}
		return domainerror.ErrDatabaseError("find password reset", err)
	}
	if req.EmailToken == "" || !uc.resetRepo.Matches(stored, req.EmailToken) {
		return uc.rejectLink(ctx, user.ID, "token_mismatch")
	}
	if stored.IsExpiredAt(uc.now()) {
		return uc.rejectLink(ctx, user.ID, "token_expired")
	}

	if msg := valueobject.CheckPasswordStrength(req.NewPassword); msg != "" {
		uc.metrics.ObservePasswordReset("confirm", "weak_password")
		return domainerror.ErrWeakPassword(msg)
	}

	hash, err := uc.passwordService.HashPassword(req.NewPassword)
	if err != nil {
		return domainerror.ErrInternalServerError("hash password", err)
	}
	if err := uc.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return domainerror.ErrDatabaseError("update password", err)
	}
	if err := uc.resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
		// the password already changed; the token still dies at expiry
		uc.logger.Error(ctx, "Failed to clear reset token", err, map[string]interface{}{
			"user_id": user.ID,
		})
	}

	uc.metrics.ObservePasswordReset("confirm", "success")
	logger.LogAuthEvent(ctx, uc.logger, "password_reset", user.ID, "", true, nil)
	return nil
}

func (uc *PasswordResetUseCase) rejectLink(ctx context.Context, userID, reason string) error {
	uc.metrics.ObservePasswordReset("confirm", reason)
	logger.LogSecurityEvent(ctx, uc.logger, "password_reset_rejected", "MEDIUM", map[string]interface{}{
		"user_id": userID,
		"reason":  reason,
		"token":   logger.Redacted,
	})
	return domainerror.ErrInvalidResetLink(reason)
}
