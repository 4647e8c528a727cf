package entity

import "time"

// PasswordReset is an outstanding reset request. At most one exists per user;
// requesting a new one replaces the previous token.
type PasswordReset struct {
	UserID    string
	Token     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func NewPasswordReset(userID, token string, expiresAt time.Time) *PasswordReset {
	return &PasswordReset{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func (r *PasswordReset) IsExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
