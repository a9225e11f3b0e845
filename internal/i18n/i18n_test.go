// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	require.NoError(t, i18n.Init())
	require.NoError(t, i18n.Init())
}

func TestT(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "Invalid email or password.", i18n.T(ctx, "error_invalid_credentials"))
}

func TestT_Vietnamese(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.Vietnamese)

	assert.Equal(t, "Email hoặc mật khẩu không đúng.", i18n.T(ctx, "error_invalid_credentials"))
}

func TestT_UnknownKey(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.T(ctx, "unknown_key_that_does_not_exist")

	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	result := i18n.T(context.Background(), "error_not_found")

	assert.Equal(t, "Not found.", result)
}

func TestTData(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.TData(ctx, "error_rate_limited", map[string]any{"Seconds": 42})

	assert.Equal(t, "Please wait 42 seconds before requesting a new code.", result)
}

func TestTData_Vietnamese(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.Vietnamese)

	result := i18n.TData(ctx, "otp_sms_body", map[string]any{"Code": "4821", "Seconds": 60})

	assert.Equal(t, "Ma xac minh Microloan cua ban la 4821. Ma het han sau 60 giay.", result)
}

func TestTPlural(t *testing.T) {
	en := i18n.WithLocale(context.Background(), language.English)
	vi := i18n.WithLocale(context.Background(), language.Vietnamese)

	assert.Equal(t, "1 month", i18n.TPlural(en, "months", 1))
	assert.Equal(t, "6 months", i18n.TPlural(en, "months", 6))
	assert.Equal(t, "6 tháng", i18n.TPlural(vi, "months", 6))
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		expected       language.Tag
		acceptLanguage string
	}{
		{language.English, "en"},
		{language.English, "en-US"},
		{language.Vietnamese, "vi"},
		{language.Vietnamese, "vi-VN"},
		{language.English, "fr"}, // fallback to English
		{language.English, ""},   // empty defaults to English
		{language.Vietnamese, "vi, en;q=0.9"},
		{language.English, "en, vi;q=0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			assert.Equal(t, tt.expected, i18n.MatchLanguage(tt.acceptLanguage))
		})
	}
}

func TestWithLocale(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.Vietnamese)

	assert.Equal(t, "vi", i18n.GetLocale(ctx))
}

func TestGetLocale_Default(t *testing.T) {
	assert.Equal(t, "en", i18n.GetLocale(context.Background()))
}
