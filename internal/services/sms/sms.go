// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sms sends text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("sms: no recipients")

// MessageCreator is the part of the Twilio API used to send messages.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Service sends SMS. Without credentials it only logs messages and
// reports success.
type Service struct {
	api            MessageCreator
	from           string
	countryCode    string
	nationalPrefix string
}

// NewService creates an SMS service from configuration.
func NewService(cfg *config.SMSConfig) (*Service, error) {
	s := &Service{
		from:           cfg.From,
		countryCode:    cfg.CountryCode,
		nationalPrefix: cfg.NationalPrefix,
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return s, nil
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMS from number is required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	s.api = client.Api
	return s, nil
}

// NewServiceWithAPI creates a service that sends through api.
func NewServiceWithAPI(api MessageCreator, cfg *config.SMSConfig) *Service {
	return &Service{
		api:            api,
		from:           cfg.From,
		countryCode:    cfg.CountryCode,
		nationalPrefix: cfg.NationalPrefix,
	}
}

// Simulated reports whether messages are only logged.
func (s *Service) Simulated() bool {
	return s.api == nil
}

// Send delivers body to every recipient. Numbers are normalised to
// international form first. A failure for one recipient does not stop the
// others; all failures are returned together.
func (s *Service) Send(ctx context.Context, recipients []string, body string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	var errs []error
	for _, raw := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		to := FormatPhone(raw, s.countryCode, s.nationalPrefix)
		if to == "" {
			errs = append(errs, fmt.Errorf("invalid phone number %q", raw))
			continue
		}

		if s.Simulated() {
			slog.Info("sms_simulated", "to", to, "length", len(body))
			continue
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(s.from)
		params.SetBody(body)

		resp, err := s.api.CreateMessage(params)
		if err != nil {
			errs = append(errs, fmt.Errorf("sending sms to %s: %w", to, err))
			continue
		}

		sid := ""
		if resp != nil && resp.Sid != nil {
			sid = *resp.Sid
		}
		slog.Info("sms_sent", "to", to, "sid", sid)
	}

	return errors.Join(errs...)
}

// FormatPhone normalises a phone number to international form: separators
// are stripped, a leading "00" becomes "+", and a leading national prefix
// is replaced by the country code. It returns "" when no digits remain.
func FormatPhone(raw, countryCode, nationalPrefix string) string {
	raw = strings.TrimSpace(raw)
	plus := strings.HasPrefix(raw, "+")

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return ""
	}

	switch {
	case plus:
		return "+" + digits
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:]
	case nationalPrefix != "" && strings.HasPrefix(digits, nationalPrefix):
		return "+" + countryCode + digits[len(nationalPrefix):]
	case countryCode != "" && strings.HasPrefix(digits, countryCode):
		return "+" + digits
	default:
		return "+" + countryCode + digits
	}
}

// IsPhone reports whether identifier looks like a phone number rather
// than an email address.
func IsPhone(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || strings.Contains(identifier, "@") {
		return false
	}
	digits := 0
	for _, r := range identifier {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-. ()", r):
		default:
			return false
		}
	}
	return digits >= 7
}
