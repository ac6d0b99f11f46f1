package auth

import (
	"context"
	"fmt"
	"net/smtp"

	goerrors "github.com/goliatone/go-errors"
)

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg *Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

// Send delivers a single message. Errors are for the caller to log; the
// operations issuing codes never fail because a send failed.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.host == "" {
		return goerrors.New("smtp is not configured", goerrors.CategoryInternal)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		m.from, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to deliver email")
	}

	return nil
}

// LogMailer records messages to the logger instead of sending them. Used in
// development and tests.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer builds a mailer that only logs.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and succeeds.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Info("mail to=%s subject=%q body=%q", to, subject, body)
	return nil
}
