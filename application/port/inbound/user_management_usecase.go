package inbound

import (
	"context"
)

type UserListItem struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type UserManagementUseCase interface {
	ListUsers(ctx context.Context) ([]UserListItem, error)
}
