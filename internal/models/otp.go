// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OTPStatus records why a code left the active state.
type OTPStatus string

const (
	OTPStatusIssued      OTPStatus = "issued"
	OTPStatusVerified    OTPStatus = "verified"
	OTPStatusInvalidated OTPStatus = "invalidated" // superseded or a sibling was verified
	OTPStatusExhausted   OTPStatus = "exhausted"   // too many failed attempts
	OTPStatusExpired     OTPStatus = "expired"     // derived, never stored
)

// OTPCode is a one-time code issued for a phone number or email address.
// Several records may exist per identifier; at most one is unconsumed.
type OTPCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	Identifier string    `db:"identifier" json:"identifier"`
	Code       string    `db:"code" json:"-"`
	IssuedAt   time.Time `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
	Consumed   bool      `db:"consumed" json:"consumed"`
	Attempts   int       `db:"attempts" json:"attempts"`
	Status     OTPStatus `db:"status" json:"status"`
}

// Expired reports whether the code is past its expiry at now.
func (o *OTPCode) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Active reports whether the code can still be verified at now.
func (o *OTPCode) Active(now time.Time) bool {
	return !o.Consumed && !o.Expired(now)
}

// StatusAt returns the effective status, deriving expiry from the clock.
func (o *OTPCode) StatusAt(now time.Time) OTPStatus {
	if o.Status == OTPStatusIssued && o.Expired(now) {
		return OTPStatusExpired
	}
	return o.Status
}
