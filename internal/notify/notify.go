// Package notify sends transactional mail to account holders.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Notifier delivers account-related messages. Implementations must be safe
// for concurrent use.
type Notifier interface {
	// SendWelcome greets a newly created account.
	SendWelcome(ctx context.Context, email, name string) error

	// SendPasswordReset delivers the recovery link built from the raw
	// reset token. The token is the only copy in existence; it is never
	// logged or stored here.
	SendPasswordReset(ctx context.Context, email, name, resetURL string) error
}

// SMTPMailer sends plain-text mail over an authenticated SMTP connection.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

var _ Notifier = (*SMTPMailer)(nil)

// NewSMTPMailer configures a mailer. host and port address the relay, from
// is both the envelope sender and the auth identity.
func NewSMTPMailer(host, port, from, password string) *SMTPMailer {
	return &SMTPMailer{
		addr: host + ":" + port,
		from: from,
		auth: smtp.PlainAuth("", from, password, host),
	}
}

func (m *SMTPMailer) SendWelcome(_ context.Context, email, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"Welcome to Game1pro! Your account is ready and your signup bonus "+
			"has been credited.\r\n\r\n"+
			"Happy gaming,\r\nThe Game1pro Team\r\n",
		name)
	return m.send(email, "Welcome to Game1pro", body)
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, email, name, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"We received a request to reset your password. Open the link below "+
			"to choose a new one. The link works once and expires in 15 minutes.\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not ask for this, you can ignore this message; your "+
			"password is unchanged.\r\n\r\n"+
			"The Game1pro Team\r\n",
		name, resetURL)
	return m.send(email, "Reset your Game1pro password", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: sending mail to %s: %w", to, err)
	}
	return nil
}
