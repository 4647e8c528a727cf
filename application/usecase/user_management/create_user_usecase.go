package user_management

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
	"github.com/fixora/authapi/domain/valueobject"
)

var (
	ErrInvalidUsername    = errors.New("username is required")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserAlreadyExists  = errors.New("username or email already exists")
	ErrWeakPasswordPolicy = errors.New("password does not meet policy")
)

type CreateUserRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// CreateUserUseCase provisions an identity with an explicit role. Used by
// operator tooling; public sign-up goes through AuthUseCase.Register.
type CreateUserUseCase struct {
	userRepo    outbound.UserRepository
	passwordSvc outbound.PasswordService
}

func NewCreateUserUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
) *CreateUserUseCase {
	return &CreateUserUseCase{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
	}
}

func (uc *CreateUserUseCase) Execute(ctx context.Context, req CreateUserRequest) (*entity.User, error) {
	if err := validateCreateUserRequest(req); err != nil {
		return nil, err
	}

	exists, err := uc.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if !exists {
		exists, err = uc.userRepo.ExistsByEmail(ctx, req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email existence: %w", err)
		}
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := uc.passwordSvc.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entity.NewUser(uuid.NewString(), req.Username, req.Email, hashedPassword, req.FirstName, req.LastName)
	user.Role = req.Role

	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, outbound.ErrUsernameAlreadyExists) || errors.Is(err, outbound.ErrEmailAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func validateCreateUserRequest(req CreateUserRequest) error {
	if req.Username == "" {
		return ErrInvalidUsername
	}
	if !valueobject.IsValidEmail(req.Email) {
		return ErrInvalidEmail
	}
	if msg := valueobject.CheckPasswordStrength(req.Password); msg != "" {
		return fmt.Errorf("%w: %s", ErrWeakPasswordPolicy, msg)
	}
	if req.Role != entity.RoleUser && req.Role != entity.RoleAdmin {
		return ErrInvalidRole
	}
	return nil
}
