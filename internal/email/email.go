// Package email sends transactional mail. The only sender today writes
// messages to the log.
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender is the placeholder sender: it logs instead of delivering.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, body string) error {
	s.Log.Info("email (placeholder)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// SendPasswordReset mails the reset link for a seller account.
func SendPasswordReset(ctx context.Context, s Sender, to, link string) error {
	subject := "Reset your seller account password"
	body := fmt.Sprintf(
		"We received a request to reset your password.\n\nOpen this link to choose a new one: %s\n\nIf you did not ask for this, ignore this email.",
		link,
	)
	return s.Send(ctx, to, subject, body)
}
