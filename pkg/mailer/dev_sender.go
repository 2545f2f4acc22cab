package mailer

import (
	"context"

	"go.uber.org/zap"
)

// DevSender logs outbound email instead of delivering it. Used when no
// Postmark token is configured.
type DevSender struct {
	logger *zap.Logger
}

// NewDevSender returns a log-only sender.
func NewDevSender(logger *zap.Logger) *DevSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DevSender{logger: logger}
}

// Send logs the message and reports success.
func (s *DevSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (dev sender, not delivered)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
		zap.String("body", msg.BodyText),
	)
	return nil
}
