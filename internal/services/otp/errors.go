// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyIdentifier is returned when no phone or email is given.
var ErrEmptyIdentifier = errors.New("otp: identifier is required")

// RateLimitedError is returned by IssueCode when a code was issued for the
// same identifier less than the resend delay ago.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("otp: resend not allowed for another %d seconds", e.Seconds())
}

// Seconds returns RetryAfter rounded up to whole seconds.
func (e *RateLimitedError) Seconds() int {
	s := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		s++
	}
	return s
}

// MaxAttemptsExceededError is returned by VerifyCode once an identifier has
// used up its verification attempts. A new code must be requested.
type MaxAttemptsExceededError struct {
	Attempts int
}

func (e *MaxAttemptsExceededError) Error() string {
	return fmt.Sprintf("otp: maximum verification attempts exceeded (%d)", e.Attempts)
}
