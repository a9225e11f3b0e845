// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify fans notifications out to email, SMS and in-app channels.
// Delivery is best effort: every channel is attempted independently and
// failures are logged, never returned to the caller.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/services/sms"
	"codeberg.org/oliverandrich/microloan/internal/templates"
)

// Kind names a delivery channel.
type Kind string

const (
	KindEmail Kind = "email"
	KindSMS   Kind = "sms"
	KindInApp Kind = "in_app"
)

// In-app event names.
const (
	EventApplicationSubmitted = "application_submitted"
)

// ErrNoChannel is reported for events whose channel is not configured.
var ErrNoChannel = errors.New("notify: channel not configured")

// DefaultTimeout bounds one dispatch across all channels.
const DefaultTimeout = 15 * time.Second

// Event is one message for one channel. It is built per dispatch and
// never persisted.
type Event struct {
	Metadata   map[string]any
	Channel    Kind
	Subject    string
	Body       string // plain text, or JSON for in-app events
	HTML       string // optional HTML body for email
	Recipients []string
}

// Channel delivers events of one kind.
type Channel interface {
	Kind() Kind
	Send(ctx context.Context, ev Event) error
}

// Result is the outcome of one event.
type Result struct {
	Err     error
	Channel Kind
}

// Dispatcher routes events to their channels.
type Dispatcher struct {
	channels map[Kind]Channel
	cfg      config.NotifyConfig
	timeout  time.Duration
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each dispatch.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithChannel registers a channel, replacing any of the same kind.
func WithChannel(ch Channel) Option {
	return func(disp *Dispatcher) { disp.channels[ch.Kind()] = ch }
}

// NewDispatcher creates a dispatcher for the configured admin contacts.
func NewDispatcher(cfg config.NotifyConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels: make(map[Kind]Channel),
		cfg:      cfg,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NotifyNewApplication tells the back office about a submitted application
// by email, SMS and to connected dashboards. It always returns normally.
func (d *Dispatcher) NotifyNewApplication(ctx context.Context, s models.ApplicationSummary) {
	ctx = i18n.WithLocale(ctx, i18n.MatchLanguage(d.cfg.Locale))

	events, err := d.newApplicationEvents(ctx, s)
	if err != nil {
		slog.Error("notify_build_failed", "reference", s.Reference, "error", err)
	}
	d.Dispatch(ctx, events...)
}

func (d *Dispatcher) newApplicationEvents(ctx context.Context, s models.ApplicationSummary) ([]Event, error) {
	text := templates.NewApplicationText(ctx, s)
	meta := map[string]any{"reference": s.Reference}
	var events []Event
	var errs []error

	if len(d.cfg.AdminEmails) > 0 {
		html, err := templates.Render(ctx, templates.NewApplicationEmail(s))
		if err != nil {
			errs = append(errs, fmt.Errorf("render email: %w", err))
		}
		events = append(events, Event{
			Channel:    KindEmail,
			Recipients: d.cfg.AdminEmails,
			Subject:    templates.NewApplicationSubject(ctx, s),
			Body:       text,
			HTML:       html,
			Metadata:   meta,
		})
	}

	if len(d.cfg.AdminPhones) > 0 {
		events = append(events, Event{
			Channel:    KindSMS,
			Recipients: d.cfg.AdminPhones,
			Body:       text,
			Metadata:   meta,
		})
	}

	payload, err := json.Marshal(struct {
		models.ApplicationSummary
		Message string `json:"message"`
	}{s, text})
	if err != nil {
		errs = append(errs, fmt.Errorf("encode in-app event: %w", err))
	} else {
		events = append(events, Event{
			Channel:  KindInApp,
			Subject:  EventApplicationSubmitted,
			Body:     string(payload),
			Metadata: meta,
		})
	}

	return events, errors.Join(errs...)
}

// NotifyOTPIssued delivers a verification code to its identifier: by SMS
// for phone numbers and by email otherwise. It always returns normally.
func (d *Dispatcher) NotifyOTPIssued(ctx context.Context, identifier, code string, expiresIn int) {
	ev := Event{
		Recipients: []string{identifier},
		Body:       templates.OTPText(ctx, code, expiresIn),
		Metadata:   map[string]any{"purpose": "otp"},
	}

	if sms.IsPhone(identifier) {
		ev.Channel = KindSMS
	} else {
		ev.Channel = KindEmail
		ev.Subject = i18n.T(ctx, "otp_email_subject")
		html, err := templates.Render(ctx, templates.OTPEmail(code, expiresIn))
		if err != nil {
			slog.Error("notify_build_failed", "purpose", "otp", "error", err)
		}
		ev.HTML = html
	}

	d.Dispatch(ctx, ev)
}

// Dispatch sends every event concurrently and waits for all of them.
// Panicking channels are recovered and reported like errors. Failures are
// logged; the results are returned for callers that want them.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...Event) []Result {
	if len(events) == 0 {
		return nil
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	results := make([]Result, len(events))
	var wg sync.WaitGroup
	for i, ev := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Result{Channel: ev.Channel, Err: d.send(ctx, ev)}
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			slog.Warn("notify_channel_failed", "channel", r.Channel, "error", r.Err)
		} else {
			slog.Debug("notify_channel_sent", "channel", r.Channel)
		}
	}
	return results
}

func (d *Dispatcher) send(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notify: %s channel panicked: %v", ev.Channel, r)
		}
	}()

	ch, ok := d.channels[ev.Channel]
	if !ok {
		return ErrNoChannel
	}
	return ch.Send(ctx, ev)
}
