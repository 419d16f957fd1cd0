package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/pkg/jobs"
	"github.com/account-academy/backoffice-api/pkg/mail"
)

const jobTypePasswordEmail = "password_email"

type passwordEmailPayload struct {
	Recipient string
	Name      string
	Password  string
}

// NotificationService delivers account emails through the background job
// queue so entity creation never blocks on, or rolls back for, the mail
// provider.
type NotificationService struct {
	queue  *jobs.Queue
	mailer mail.Mailer
	logger *zap.Logger
}

// NewNotificationService constructs the notification service and its queue.
func NewNotificationService(mailer mail.Mailer, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = mail.NopMailer{}
	}
	s := &NotificationService{mailer: mailer, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains and stops the queue.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnqueuePasswordEmail schedules the welcome email carrying the generated
// password. Delivery failures are retried by the queue and never surface to
// the caller.
func (s *NotificationService) EnqueuePasswordEmail(recipient, name, password string) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypePasswordEmail,
		Payload: passwordEmailPayload{
			Recipient: recipient,
			Name:      name,
			Password:  password,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue password email", zap.String("recipient", recipient), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypePasswordEmail:
		payload, ok := job.Payload.(passwordEmailPayload)
		if !ok {
			return fmt.Errorf("unexpected payload for %s job", job.Type)
		}
		subject := "Welcome to Account Academy"
		body := fmt.Sprintf("Hi %s, your account has been created. Use the password below to sign in.", payload.Name)
		return s.mailer.SendPasswordEmail(ctx, payload.Recipient, subject, body, payload.Password)
	default:
		return fmt.Errorf("unknown job type %s", job.Type)
	}
}
