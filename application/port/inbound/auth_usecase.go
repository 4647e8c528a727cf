package inbound

import (
	"context"

	"github.com/fixora/authapi/domain/valueobject"
)

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RequestMeta carries caller details used for logging and auditing.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type AuthUseCase interface {
	Register(ctx context.Context, req RegisterRequest) error
	Authenticate(ctx context.Context, req AuthenticateRequest, meta RequestMeta) (*valueobject.TokenPair, error)
	Refresh(ctx context.Context, req RefreshRequest, meta RequestMeta) (*valueobject.TokenPair, error)
}
