package mail

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

// Message is a rendered HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	cfg  config.MailConfig
	log  *logger.Logger
	send sendFunc
}

func NewSMTPMailer(cfg config.MailConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.cfg.Host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	err := m.send(addr, auth, m.cfg.Sender, []string{msg.To}, m.build(msg))
	if err != nil {
		m.log.Error().Err(err).Str("to", msg.To).Msg("SMTP send error")
		return err
	}
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func (m *SMTPMailer) build(msg Message) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.cfg.Sender, msg.To, mime.BEncoding.Encode("UTF-8", msg.Subject)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			msg.HTML,
	)
}

// SendBestEffort delivers msg and only logs failures.
func SendBestEffort(ctx context.Context, m Mailer, log *logger.Logger, msg Message, renderErr error) {
	if renderErr != nil {
		log.Error().Err(renderErr).Str("to", msg.To).Msg("failed to render email")
		return
	}
	if m == nil {
		return
	}
	if err := m.Send(ctx, msg); err != nil {
		log.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("failed to send email")
	}
}
