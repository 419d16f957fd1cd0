package mail

import "context"

// Mailer delivers transactional email. Delivery failures surface as errors but
// callers never roll back the entity writes that preceded the send.
type Mailer interface {
	SendPasswordEmail(ctx context.Context, recipient, subject, body, password string) error
}

// NopMailer discards every message. Used in tests and when no provider key is
// configured.
type NopMailer struct{}

// SendPasswordEmail implements Mailer.
func (NopMailer) SendPasswordEmail(ctx context.Context, recipient, subject, body, password string) error {
	return nil
}
