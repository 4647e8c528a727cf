package handler

import (
	"net/http"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/infrastructure/http/middleware"
	"github.com/fixora/authapi/infrastructure/http/response"
)

type UserHandler struct {
	userManagementUseCase inbound.UserManagementUseCase
}

func NewUserHandler(userManagementUseCase inbound.UserManagementUseCase) *UserHandler {
	return &UserHandler{
		userManagementUseCase: userManagementUseCase,
	}
}

// ListUsers returns every identity. Mounted behind RequireAuth.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserClaims(r.Context()) == nil {
		response.Unauthorized(w, "Authorization header required")
		return
	}

	users, err := h.userManagementUseCase.ListUsers(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, users)
}
