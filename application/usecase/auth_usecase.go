package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/domain/valueobject"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type AuthUseCase struct {
	userRepository  outbound.UserRepository
	passwordService outbound.PasswordService
	issuer          *TokenIssuer
	rotator         *TokenRotator
	metrics         outbound.AuthMetrics
	logger          logger.Logger
}

func NewAuthUseCase(
	userRepo outbound.UserRepository,
	passwordService outbound.PasswordService,
	issuer *TokenIssuer,
	rotator *TokenRotator,
	metrics outbound.AuthMetrics,
	log logger.Logger,
) inbound.AuthUseCase {
	return &AuthUseCase{
		userRepository:  userRepo,
		passwordService: passwordService,
		issuer:          issuer,
		rotator:         rotator,
		metrics:         metrics,
		logger:          log,
	}
}

// Register creates an identity with role User. Duplicate checks run before the
// new record's own fields are validated.
func (uc *AuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) error {
	exists, err := uc.userRepository.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return domainerror.ErrDatabaseError("check username", err)
	}
	if exists {
		uc.metrics.ObserveRegistration("duplicate_username")
		return domainerror.ErrDuplicateUsername(req.Username)
	}

	exists, err = uc.userRepository.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return domainerror.ErrDatabaseError("check email", err)
	}
	if exists {
		uc.metrics.ObserveRegistration("duplicate_email")
		return domainerror.ErrDuplicateEmail(req.Email)
	}

	if msg := valueobject.CheckPasswordStrength(req.Password); msg != "" {
		uc.metrics.ObserveRegistration("weak_password")
		return domainerror.ErrWeakPassword(msg)
	}

	if !valueobject.IsValidEmail(req.Email) {
		uc.metrics.ObserveRegistration("invalid_email")
		return domainerror.ErrInvalidEmail(req.Email)
	}

	start := time.Now()
	hash, err := uc.passwordService.HashPassword(req.Password)
	if err != nil {
		return domainerror.ErrInternalServerError("hash password", err)
	}
	logger.LogPerformance(ctx, uc.logger, "password_hash", time.Since(start), nil)

	user := entity.NewUser(uuid.NewString(), req.Username, req.Email, hash, req.FirstName, req.LastName)
	if err := uc.userRepository.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, outbound.ErrUsernameAlreadyExists):
			uc.metrics.ObserveRegistration("duplicate_username")
			return domainerror.ErrDuplicateUsername(req.Username)
		case errors.Is(err, outbound.ErrEmailAlreadyExists):
			uc.metrics.ObserveRegistration("duplicate_email")
			return domainerror.ErrDuplicateEmail(req.Email)
		}
		return domainerror.ErrDatabaseError("create user", err)
	}

	uc.metrics.ObserveRegistration("success")
	uc.logger.Info(ctx, "User registered", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return nil
}

func (uc *AuthUseCase) Authenticate(ctx context.Context, req inbound.AuthenticateRequest, meta inbound.RequestMeta) (*valueobject.TokenPair, error) {
	user, err := uc.userRepository.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			uc.metrics.ObserveLogin("unknown_username")
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_user_not_found", "", meta.IP, false, map[string]interface{}{
				"username": req.Username,
			})
			return nil, domainerror.ErrUnknownUsername(req.Username)
		}
		return nil, domainerror.ErrDatabaseError("find user by username", err)
	}

	if err := uc.passwordService.ComparePassword(user.Password, req.Password); err != nil {
		uc.metrics.ObserveLogin("invalid_password")
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_invalid_password", user.ID, meta.IP, false, map[string]interface{}{
			"username": req.Username,
		})
		return nil, domainerror.ErrInvalidCredentials("password mismatch")
	}

	pair, err := uc.issuer.Issue(ctx, user)
	if err != nil {
		uc.metrics.ObserveLogin("error")
		return nil, err
	}

	uc.metrics.ObserveLogin("success")
	logger.LogAuthEvent(ctx, uc.logger, "login_success", user.ID, meta.IP, true, map[string]interface{}{
		"username":   user.Username,
		"user_agent": meta.UserAgent,
	})
	return pair, nil
}

func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest, meta inbound.RequestMeta) (*valueobject.TokenPair, error) {
	return uc.rotator.Rotate(ctx, req.AccessToken, req.RefreshToken, meta.IP)
}
