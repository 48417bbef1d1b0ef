// Package notification delivers alert summaries.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"

	log "github.com/sirupsen/logrus"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier implements the Notifier interface for sending emails.
type EmailNotifier struct {
	cfg      config.SMTPConfig
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth, sendMail: smtp.SendMail}
}

// Send sends an HTML email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var recipients []string
	for _, r := range strings.Split(n.cfg.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	msg := []byte("To: " + strings.Join(recipients, ", ") + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body)

	if err := n.sendMail(addr, n.auth, n.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogNotifier writes alert summaries to the logger. It is the fallback when
// no mail relay is configured.
type LogNotifier struct{}

// Send implements model.Notifier.
func (LogNotifier) Send(subject, body string) error {
	log.WithField("subject", subject).Warn(body)
	return nil
}

// New picks the email notifier when an SMTP host is configured.
func New(cfg config.SMTPConfig) model.Notifier {
	if cfg.Host != "" {
		return NewEmailNotifier(cfg)
	}
	return LogNotifier{}
}
