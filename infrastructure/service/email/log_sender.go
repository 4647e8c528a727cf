package email

import (
	"context"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

// LogSender writes messages to the log instead of delivering them. Meant for
// local development.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(ctx context.Context, msg outbound.EmailMessage) error {
	s.logger.Info(ctx, "Email not delivered (log transport)", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	s.logger.Debug(ctx, "Email body", map[string]interface{}{
		"html": msg.HTML,
	})
	return nil
}
