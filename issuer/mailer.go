package issuer

import (
	"context"
	"fmt"
	"net/smtp"
)

// Mailer delivers a verification code to an address. Implementations must
// treat the code as sensitive and never log it.
type Mailer interface {
	SendCode(ctx context.Context, to, code string, purpose Purpose) error
}

// SMTPMailer sends codes through a plain-auth SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SendCode describes the sendcode operation and its observable behavior.
func (m *SMTPMailer) SendCode(_ context.Context, to, code string, purpose Purpose) error {
	subject := "Your TripWell verification code"
	intro := "Use this code to finish setting up two-step verification:"
	if purpose == PurposeLogin {
		subject = "Your TripWell sign-in code"
		intro = "Use this code to finish signing in:"
	}

	msg := []byte("From: " + m.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		intro + "\r\n\r\n" +
		"    " + code + "\r\n\r\n" +
		"If you did not request this code, you can ignore this email.\r\n")

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
