package services

import (
	"context"
	"fmt"

	"github.com/fileapp/backend/internal/config"
	"github.com/fileapp/backend/pkg/logger"
	gomail "github.com/wneessen/go-mail"
)

// Mailer is the outbound-mail collaborator. Handlers treat delivery as
// best-effort: failures are logged, never surfaced to the client.
type Mailer interface {
	SendShareNotification(ctx context.Context, recipient, senderName, filename, shareURL, message string) error
	SendPasswordReset(ctx context.Context, recipient, resetURL string) error
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) send(ctx context.Context, recipient, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(recipient); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	tlsPolicy := gomail.TLSOpportunistic
	if m.cfg.UseTLS {
		tlsPolicy = gomail.TLSMandatory
	}

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(tlsPolicy),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		logger.Error("mail_send_failed", err, map[string]interface{}{
			"recipient": recipient,
			"subject":   subject,
		})
		return err
	}
	return nil
}

func (m *SMTPMailer) SendShareNotification(ctx context.Context, recipient, senderName, filename, shareURL, message string) error {
	body := fmt.Sprintf("%s shared %q with you.\n\nDownload it here: %s\n", senderName, filename, shareURL)
	if message != "" {
		body += fmt.Sprintf("\nMessage from %s:\n%s\n", senderName, message)
	}
	body += "\nThe link expires; download the file before then.\n"
	return m.send(ctx, recipient, fmt.Sprintf("%s shared a file with you", senderName), body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, recipient, resetURL string) error {
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset it here: %s\n\nIf you did not request this, ignore this email.\n", resetURL)
	return m.send(ctx, recipient, "Reset your password", body)
}
