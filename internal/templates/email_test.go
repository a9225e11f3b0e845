// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/templates"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func summary() models.ApplicationSummary {
	return models.ApplicationSummary{
		Reference:   "APP-1",
		FullName:    "Nguyen Van A",
		Phone:       "+84912345678",
		Amount:      5_000_000,
		TermMonths:  6,
		SubmittedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func english() context.Context {
	return i18n.WithLocale(context.Background(), language.English)
}

func vietnamese() context.Context {
	return i18n.WithLocale(context.Background(), language.Vietnamese)
}

func TestNewApplicationEmail(t *testing.T) {
	html, err := templates.Render(english(), templates.NewApplicationEmail(summary()))
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "new_application_en", []byte(html))
}

func TestNewApplicationEmail_Escapes(t *testing.T) {
	s := summary()
	s.FullName = `<script>alert("x")</script>`

	html, err := templates.Render(english(), templates.NewApplicationEmail(s))

	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestNewApplicationEmail_Vietnamese(t *testing.T) {
	html, err := templates.Render(vietnamese(), templates.NewApplicationEmail(summary()))

	require.NoError(t, err)
	assert.Contains(t, html, "Có hồ sơ vay mới được gửi")
	assert.Contains(t, html, "6 tháng")
}

func TestOTPEmail(t *testing.T) {
	html, err := templates.Render(english(), templates.OTPEmail("4821", 60))
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "otp_en", []byte(html))
}

func TestOTPText(t *testing.T) {
	assert.Equal(t,
		"Your Microloan verification code is 4821. It expires in 60 seconds.",
		templates.OTPText(english(), "4821", 60))
}

func TestNewApplicationText(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "new_application_sms_en", []byte(templates.NewApplicationText(english(), summary())))
}

func TestNewApplicationSubject(t *testing.T) {
	assert.Equal(t, "New loan application APP-1", templates.NewApplicationSubject(english(), summary()))
	assert.Equal(t, "Hồ sơ vay mới APP-1", templates.NewApplicationSubject(vietnamese(), summary()))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "5,000,000", templates.FormatAmount(english(), 5_000_000))
	assert.Equal(t, "999", templates.FormatAmount(context.Background(), 999))
}
