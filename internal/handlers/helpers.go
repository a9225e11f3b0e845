// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/services/sms"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// normalizeIdentifier maps the different spellings of one phone number or
// email address onto the key under which codes are stored.
func (h *Handlers) normalizeIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if sms.IsPhone(raw) {
		return sms.FormatPhone(raw, h.sms.CountryCode, h.sms.NationalPrefix)
	}
	return strings.ToLower(raw)
}

// parseFilter reads the application listing filter from the query string.
// ok is false when a parameter is present but malformed.
func parseFilter(c echo.Context) (models.ApplicationFilter, bool) {
	var f models.ApplicationFilter

	if s := c.QueryParam("status"); s != "" {
		f.Status = models.ApplicationStatus(s)
		if !f.Status.Valid() {
			return f, false
		}
	}
	f.Query = strings.TrimSpace(c.QueryParam("q"))

	if s := c.QueryParam("from"); s != "" {
		from, ok := parseTime(s, false)
		if !ok {
			return f, false
		}
		f.CreatedFrom = &from
	}
	if s := c.QueryParam("to"); s != "" {
		to, ok := parseTime(s, true)
		if !ok {
			return f, false
		}
		f.CreatedTo = &to
	}

	var ok bool
	if f.Page, ok = parseInt(c.QueryParam("page")); !ok {
		return f, false
	}
	if f.PerPage, ok = parseInt(c.QueryParam("per_page")); !ok {
		return f, false
	}

	f.Normalize()
	return f, true
}

// parseTime accepts a date or an RFC 3339 timestamp. A date used as the
// upper bound covers the whole day.
func parseTime(s string, endOfRange bool) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		if endOfRange {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
