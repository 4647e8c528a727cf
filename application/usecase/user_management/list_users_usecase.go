package user_management

import (
	"context"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/application/port/outbound"
	domainerror "github.com/fixora/authapi/domain/error"
)

type ListUsersUseCase struct {
	userRepo outbound.UserRepository
}

func NewListUsersUseCase(userRepo outbound.UserRepository) *ListUsersUseCase {
	return &ListUsersUseCase{
		userRepo: userRepo,
	}
}

// Execute returns every identity. Password digests never leave this layer.
func (uc *ListUsersUseCase) Execute(ctx context.Context) ([]inbound.UserListItem, error) {
	users, err := uc.userRepo.FindAll(ctx)
	if err != nil {
		return nil, domainerror.ErrDatabaseError("list users", err)
	}

	items := make([]inbound.UserListItem, len(users))
	for i, user := range users {
		items[i] = inbound.UserListItem{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		}
	}

	return items, nil
}
