package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	"github.com/mkravets/contacts-api/pkg/jobs"
	"github.com/mkravets/contacts-api/pkg/mailer"
)

const jobTypeConfirmationEmail = "confirmation_email"

// MailConfig configures outbound confirmation email.
type MailConfig struct {
	PublicBaseURL string
	QueueConfig   jobs.QueueConfig
}

type confirmationEmailPayload struct {
	To        string
	FirstName string
	Token     string
}

// MailService delivers transactional email through a background queue so
// auth flows never block on a provider round trip.
type MailService struct {
	sender mailer.Sender
	queue  *jobs.Queue
	logger *zap.Logger
	config MailConfig
}

// NewMailService constructs a MailService. Start must be called before
// anything is enqueued.
func NewMailService(sender mailer.Sender, logger *zap.Logger, cfg MailConfig) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MailService{sender: sender, logger: logger, config: cfg}
	s.queue = jobs.NewQueue("mail", s.handle, cfg.QueueConfig)
	return s
}

// Start launches the delivery workers.
func (s *MailService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *MailService) Stop() {
	s.queue.Stop()
}

// SendConfirmation queues a confirmation email for the user. The signed
// token value is embedded in the confirmation link.
func (s *MailService) SendConfirmation(_ context.Context, user *models.User, tokenValue string) error {
	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeConfirmationEmail,
		Payload: confirmationEmailPayload{
			To:        user.Email,
			FirstName: user.FirstName,
			Token:     tokenValue,
		},
	})
	if err != nil {
		return fmt.Errorf("enqueue confirmation email: %w", err)
	}
	return nil
}

func (s *MailService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(confirmationEmailPayload)
	if !ok {
		s.logger.Error("unexpected mail job payload", zap.String("type", job.Type))
		return nil
	}

	link := s.confirmationLink(payload.Token)
	msg := mailer.Message{
		To:      payload.To,
		Subject: "Confirm your email address",
		Tag:     jobTypeConfirmationEmail,
		BodyText: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nIf you did not create an account, ignore this message.\n",
			payload.FirstName, link),
		BodyHTML: fmt.Sprintf(`<p>Hi %s,</p><p>Please confirm your email address by clicking the link below:</p><p><a href=%q>Confirm email</a></p><p>If you did not create an account, ignore this message.</p>`,
			payload.FirstName, link),
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver confirmation email: %w", err)
	}
	return nil
}

func (s *MailService) confirmationLink(tokenValue string) string {
	base := strings.TrimRight(s.config.PublicBaseURL, "/")
	return fmt.Sprintf("%s/api/v1/auth/confirm/%s", base, tokenValue)
}
