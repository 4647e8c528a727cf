package outbound

import "time"

type TokenClaims struct {
	Username    string    `json:"sub"`
	DisplayName string    `json:"name"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"exp"`
}

type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	GenerateRefreshToken() (string, error)
	// ValidateAccessToken checks signature and lifetime.
	ValidateAccessToken(token string) (*TokenClaims, error)
	// ParseExpiredAccessToken checks the signature only; an expired token is
	// accepted.
	ParseExpiredAccessToken(token string) (*TokenClaims, error)
}
