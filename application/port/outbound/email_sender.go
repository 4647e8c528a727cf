package outbound

import (
	"context"

	"github.com/fixora/authapi/domain/entity"
)

// EmailMessage is a rendered message ready for delivery.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ResetEmailComposer renders the password reset message for user, embedding
// token in the reset link.
type ResetEmailComposer interface {
	ComposePasswordReset(user *entity.User, token string) (EmailMessage, error)
}
