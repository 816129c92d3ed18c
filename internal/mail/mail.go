// Package mail sends transactional email: contact form relays, password reset links
// and order confirmations.
package mail

import (
	"context"
	"fmt"
	"log"
	"sync"

	"gopkg.in/gomail.v2"
)

// Message is a single outgoing email.
type Message struct {
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	Text     string
	HTML     string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	// Inbox is the shop address that receives contact form submissions.
	Inbox() string
}

// SMTPConfig holds SMTP account settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer sends mail through an authenticated SMTP server.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns a mailer that sends as cfg.Username.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.Username,
	}
}

func (m *SMTPMailer) Inbox() string {
	return m.from
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	name := msg.FromName
	if name == "" {
		name = "ÆTHER"
	}
	gm.SetAddressHeader("From", m.from, name)
	gm.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		gm.SetHeader("Reply-To", msg.ReplyTo)
	}
	gm.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		gm.SetBody("text/plain", msg.Text)
		gm.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		gm.SetBody("text/html", msg.HTML)
	default:
		gm.SetBody("text/plain", msg.Text)
	}
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used when no
// SMTP account is configured and keeps the last messages for inspection in tests.
type LogMailer struct {
	InboxAddr string

	mu   sync.Mutex
	sent []Message
}

func (m *LogMailer) Inbox() string {
	if m.InboxAddr == "" {
		return "shop@localhost"
	}
	return m.InboxAddr
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	log.Printf("mail: to=%s subject=%q", msg.To, msg.Subject)
	return nil
}

// Sent returns a copy of every message passed to Send.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
