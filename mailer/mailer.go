package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is a single outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Configured reports whether enough settings are present to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("email recipient is empty")
	}
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(net.JoinHostPort(m.cfg.Host, m.cfg.Port), auth, m.cfg.From, []string{msg.To}, m.build(msg))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email could not be sent: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SMTPMailer) build(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// NoopMailer logs messages instead of sending them. Used when SMTP is not
// configured.
type NoopMailer struct {
	log zerolog.Logger
}

func NewNoopMailer(log zerolog.Logger) *NoopMailer {
	return &NoopMailer{log: log}
}

func (m *NoopMailer) Send(_ context.Context, msg Message) error {
	m.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email skipped, smtp not configured")
	return nil
}

// New picks the SMTP mailer when cfg is usable and the no-op mailer otherwise.
func New(cfg SMTPConfig, log zerolog.Logger) Mailer {
	if cfg.Configured() {
		return NewSMTPMailer(cfg)
	}
	return NewNoopMailer(log)
}
