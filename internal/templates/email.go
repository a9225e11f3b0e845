// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders notification bodies.
package templates

import (
	"context"
	"fmt"
	"io"

	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Render renders a component to a string.
func Render(ctx context.Context, component templ.Component) (string, error) {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(ctx, buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatAmount formats a VND amount with the digit grouping of the
// context locale.
func FormatAmount(ctx context.Context, amount int64) string {
	tag, err := language.Parse(i18n.GetLocale(ctx))
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprintf("%d", amount)
}

// OTPEmail is the HTML body carrying a verification code.
func OTPEmail(code string, seconds int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data := map[string]any{"Seconds": seconds}
		_, err := fmt.Fprintf(w,
			"<p>%s</p>\n<p style=\"font-size:24px;font-weight:bold;letter-spacing:4px\">%s</p>\n<p>%s</p>\n",
			templ.EscapeString(i18n.T(ctx, "otp_email_intro")),
			templ.EscapeString(code),
			templ.EscapeString(i18n.TData(ctx, "otp_email_expiry", data)),
		)
		return err
	})
}

// NewApplicationEmail is the HTML body sent to admins for a new application.
func NewApplicationEmail(s models.ApplicationSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rows := [][2]string{
			{i18n.T(ctx, "label_reference"), s.Reference},
			{i18n.T(ctx, "label_name"), s.FullName},
			{i18n.T(ctx, "label_phone"), s.Phone},
			{i18n.T(ctx, "label_amount"), FormatAmount(ctx, s.Amount) + " VND"},
			{i18n.T(ctx, "label_term"), i18n.TPlural(ctx, "months", s.TermMonths)},
			{i18n.T(ctx, "label_submitted"), s.SubmittedAt.UTC().Format("2006-01-02 15:04 UTC")},
		}

		if _, err := fmt.Fprintf(w, "<h2>%s</h2>\n<table>\n",
			templ.EscapeString(i18n.T(ctx, "new_application_heading"))); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "<tr><th align=\"left\">%s</th><td>%s</td></tr>\n",
				templ.EscapeString(row[0]), templ.EscapeString(row[1])); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table>\n")
		return err
	})
}

// OTPText is the plain-text message carrying a verification code.
func OTPText(ctx context.Context, code string, seconds int) string {
	return i18n.TData(ctx, "otp_sms_body", map[string]any{"Code": code, "Seconds": seconds})
}

// NewApplicationSubject is the email subject for a new application.
func NewApplicationSubject(ctx context.Context, s models.ApplicationSummary) string {
	return i18n.TData(ctx, "new_application_subject", map[string]any{"Reference": s.Reference})
}

// NewApplicationText is the SMS and in-app text for a new application.
func NewApplicationText(ctx context.Context, s models.ApplicationSummary) string {
	return i18n.TData(ctx, "new_application_sms", map[string]any{
		"Reference": s.Reference,
		"Name":      s.FullName,
		"Amount":    FormatAmount(ctx, s.Amount),
		"Term":      s.TermMonths,
	})
}
