package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

// SendGridMailer delivers email through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	from      *sgmail.Email
	brandLink string
}

var _ Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer builds a mailer for the given API key and sender identity.
func NewSendGridMailer(apiKey, fromName, fromEmail, brandLink string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		from:      sgmail.NewEmail(fromName, fromEmail),
		brandLink: brandLink,
	}
}

// SendPasswordEmail sends the account-created email carrying a generated
// password.
func (m *SendGridMailer) SendPasswordEmail(ctx context.Context, recipient, subject, body, password string) error {
	html := passwordTemplate(subject, body, password, m.brandLink)
	message := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail("", recipient), body, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Error sending email")
	}
	if resp.StatusCode >= 400 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Error sending email: status %d", resp.StatusCode))
	}
	return nil
}

func passwordTemplate(title, text, password, brandLink string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="background-color:#F5F5F5;color:#333;font-family:Arial,sans-serif;margin:0;padding:0;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="100%%" style="max-width:600px;margin:20px auto;background:#FFF;border:1px solid #ddd;">
    <tr>
      <td style="padding:20px;text-align:center;">
        <h1 style="color:#17a2b8;">%s</h1>
        <p style="color:#333;">%s</p>
        <p style="font-size:25px;background:#F5F5F5;padding:8px;font-weight:bold;color:#17a2b8;margin:20px 0;">%s</p>
        <p style="color:#333;">You can sign in at <a href="%s" style="color:#17a2b8;text-decoration:none;">%s</a>.</p>
      </td>
    </tr>
    <tr>
      <td style="background-color:#F5F5F5;color:#333;padding:10px;font-size:12px;text-align:center;">
        &copy; Account Academy. All rights reserved.
      </td>
    </tr>
  </table>
</body>
</html>`, title, title, text, password, brandLink, brandLink)
}
