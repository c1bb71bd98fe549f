package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers account mails. The demo ships a console implementation;
// a real deployment would plug in an SMTP or transactional-email client.
type Sender interface {
	SendVerification(ctx context.Context, email, username, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// ConsoleSender writes mails to the application log instead of sending them.
type ConsoleSender struct {
	log *zap.SugaredLogger
}

func NewConsoleSender(log *zap.SugaredLogger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) SendVerification(ctx context.Context, email, username, token string) error {
	s.log.Infow("verification email",
		"to", email,
		"username", username,
		"token", token,
	)
	return nil
}

func (s *ConsoleSender) SendPasswordReset(ctx context.Context, email, token string) error {
	s.log.Infow("password reset email",
		"to", email,
		"token", token,
	)
	return nil
}
