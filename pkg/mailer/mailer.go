package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/reportdesk/report-desk-api/pkg/config"
)

// Message is a rendered outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds a sender from mailer configuration.
func NewSMTPSender(cfg config.MailerConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers the message synchronously.
func (s *SMTPSender) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// NopSender discards messages; used when the mailer is disabled.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(Message) error { return nil }
