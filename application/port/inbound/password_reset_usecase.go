package inbound

import "context"

type ResetPasswordRequest struct {
	Email           string `json:"email"`
	EmailToken      string `json:"emailToken"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type PasswordResetUseCase interface {
	SendResetEmail(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}
