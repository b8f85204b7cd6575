// Package mail delivers account emails through an SMTP collaborator.
package mail

import (
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Mailer sends a plain-text email. Implementations report delivery
// failure through the error; callers decide whether that is fatal.
type Mailer interface {
	Send(recipient, subject, body string) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer for the given relay and sender address.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send delivers one message, dialing per call.
func (m *SMTPMailer) Send(recipient, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// DevMailer logs messages instead of sending them. Used when no SMTP
// relay is configured so verification codes stay recoverable from logs.
type DevMailer struct{}

// Send logs the message and always succeeds.
func (DevMailer) Send(recipient, subject, body string) error {
	slog.Info("dev mailer delivery", "to", recipient, "subject", subject, "body", body)
	return nil
}

// VerificationCodeBody renders the OTP email body sent to users.
func VerificationCodeBody(code string) string {
	return fmt.Sprintf(`Your verification code is: %s

This code will expire in 10 minutes.

If you didn't request this code, please ignore this email.

Best regards,
ClauseEase AI Team`, code)
}

// PasswordResetBody renders the password-reset email body.
func PasswordResetBody(token string) string {
	return fmt.Sprintf(`We received a request to reset the password for your account.

Use the following token to reset your password: %s

If you did not request this change, you can ignore this email.`, token)
}
