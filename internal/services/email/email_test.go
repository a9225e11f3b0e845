// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"context"
	"testing"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Microloan",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	svc, err := NewService(validSMTPConfig())

	require.NoError(t, err)
	assert.False(t, svc.Simulated())
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := NewService(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestNewService_Simulated(t *testing.T) {
	svc, err := NewService(&config.SMTPConfig{})

	require.NoError(t, err)
	assert.True(t, svc.Simulated())
}

func TestSend_Simulated(t *testing.T) {
	svc, err := NewService(&config.SMTPConfig{})
	require.NoError(t, err)

	err = svc.Send(context.Background(), Message{
		To:      []string{"ops@example.com"},
		Subject: "Hello",
		HTML:    "<p>Hello</p>",
	})

	assert.NoError(t, err)
}

func TestSend_NoRecipients(t *testing.T) {
	svc, err := NewService(&config.SMTPConfig{})
	require.NoError(t, err)

	err = svc.Send(context.Background(), Message{Subject: "Hello"})

	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestSend_InvalidRecipient(t *testing.T) {
	svc, err := NewService(validSMTPConfig())
	require.NoError(t, err)

	err = svc.Send(context.Background(), Message{To: []string{"not an address"}, Subject: "x", HTML: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting to address")
}

func TestBuildMessage(t *testing.T) {
	svc, err := NewService(validSMTPConfig())
	require.NoError(t, err)

	msg, err := svc.buildMessage(Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "New loan application",
		HTML:    "<p>body</p>",
		Text:    "body",
	})
	require.NoError(t, err)

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, rcpts)
	assert.Equal(t, []string{"New loan application"}, msg.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "text/plain")
	assert.Contains(t, buf.String(), "noreply@example.com")
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.SMTPConfig
	}{
		{"starttls with auth", validSMTPConfig()},
		{"implicit tls", &config.SMTPConfig{Host: "smtp.example.com", Port: 465, From: "a@example.com", TLS: true}},
		{"plain", &config.SMTPConfig{Host: "localhost", Port: 1025, From: "a@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg)
			require.NoError(t, err)

			client, err := mail.NewClient(tt.cfg.Host, svc.clientOptions()...)

			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}
