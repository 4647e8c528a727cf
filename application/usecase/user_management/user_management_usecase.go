package user_management

import (
	"context"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/application/port/outbound"
)

type UserManagementUseCaseImpl struct {
	listUsersUseCase *ListUsersUseCase
}

func NewUserManagementUseCase(userRepo outbound.UserRepository) inbound.UserManagementUseCase {
	return &UserManagementUseCaseImpl{
		listUsersUseCase: NewListUsersUseCase(userRepo),
	}
}

func (uc *UserManagementUseCaseImpl) ListUsers(ctx context.Context) ([]inbound.UserListItem, error) {
	return uc.listUsersUseCase.Execute(ctx)
}
