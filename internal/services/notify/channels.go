// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"html"
	"strings"

	"codeberg.org/oliverandrich/microloan/internal/services/email"
	"codeberg.org/oliverandrich/microloan/internal/sse"
)

// EmailSender is implemented by *email.Service.
type EmailSender interface {
	Send(ctx context.Context, m email.Message) error
}

// SMSSender is implemented by *sms.Service.
type SMSSender interface {
	Send(ctx context.Context, recipients []string, body string) error
}

// Broadcaster is implemented by *sse.Hub.
type Broadcaster interface {
	Broadcast(msg sse.Message) int
}

// EmailChannel sends events as one email to all recipients.
type EmailChannel struct {
	sender EmailSender
}

// NewEmailChannel wraps an email sender.
func NewEmailChannel(sender EmailSender) *EmailChannel {
	return &EmailChannel{sender: sender}
}

func (c *EmailChannel) Kind() Kind { return KindEmail }

func (c *EmailChannel) Send(ctx context.Context, ev Event) error {
	body := ev.HTML
	if body == "" {
		body = "<p>" + strings.ReplaceAll(html.EscapeString(ev.Body), "\n", "<br>") + "</p>"
	}
	return c.sender.Send(ctx, email.Message{
		To:      ev.Recipients,
		Subject: ev.Subject,
		HTML:    body,
		Text:    ev.Body,
	})
}

// SMSChannel sends the event body as a text message to every recipient.
type SMSChannel struct {
	sender SMSSender
}

// NewSMSChannel wraps an SMS sender.
func NewSMSChannel(sender SMSSender) *SMSChannel {
	return &SMSChannel{sender: sender}
}

func (c *SMSChannel) Kind() Kind { return KindSMS }

func (c *SMSChannel) Send(ctx context.Context, ev Event) error {
	return c.sender.Send(ctx, ev.Recipients, ev.Body)
}

// InAppChannel pushes events to connected dashboard observers. Observers
// that are not connected never see the event.
type InAppChannel struct {
	hub Broadcaster
}

// NewInAppChannel wraps a hub.
func NewInAppChannel(hub Broadcaster) *InAppChannel {
	return &InAppChannel{hub: hub}
}

func (c *InAppChannel) Kind() Kind { return KindInApp }

func (c *InAppChannel) Send(_ context.Context, ev Event) error {
	c.hub.Broadcast(sse.Message{Event: ev.Subject, Data: ev.Body})
	return nil
}
