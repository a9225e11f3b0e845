// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"github.com/wneessen/go-mail"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("email: no recipients")

// Message is an outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string // optional plain-text alternative
}

// Service sends email via SMTP. Without a configured host it only logs
// messages and reports success.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host != "" && cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &Service{cfg: cfg}, nil
}

// Simulated reports whether messages are only logged.
func (s *Service) Simulated() bool {
	return s.cfg.Host == ""
}

// Send delivers msg to all of its recipients in one SMTP transaction.
func (s *Service) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}

	if s.Simulated() {
		slog.Info("email_simulated", "to", m.To, "subject", m.Subject)
		return nil
	}

	msg, err := s.buildMessage(m)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	slog.Info("email_sent", "to", m.To, "subject", m.Subject)
	return nil
}

func (s *Service) buildMessage(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	if m.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, m.Text)
	}

	return msg, nil
}

func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}
