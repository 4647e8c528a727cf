package entity

import (
	"time"
)

// RefreshToken is the single live refresh credential of a user. Token is the
// plaintext value and is only populated right after issuance; the store keeps
// TokenHash.
type RefreshToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRefreshToken(userID, token string, expiresAt time.Time) *RefreshToken {
	return &RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func (rt *RefreshToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(rt.ExpiresAt)
}
