// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and verifies short-lived one-time codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/repository"
)

// Defaults used when the configuration leaves a value unset.
const (
	DefaultTTL         = time.Minute
	DefaultResendDelay = time.Minute
	DefaultMaxAttempts = 3
)

// Store persists OTP records.
type Store interface {
	InsertOTP(ctx context.Context, otp *models.OTPCode) error
	FindLatestOTP(ctx context.Context, identifier string) (*models.OTPCode, error)
	FindLatestUnconsumedOTP(ctx context.Context, identifier string) (*models.OTPCode, error)
	FindActiveOTPByCode(ctx context.Context, identifier, code string, now time.Time) (*models.OTPCode, error)
	ListActiveOTPs(ctx context.Context, identifier string, now time.Time) ([]models.OTPCode, error)
	InvalidateUnconsumedOTPs(ctx context.Context, identifier string, status models.OTPStatus) (int64, error)
	ConsumeOTP(ctx context.Context, id int64, status models.OTPStatus) error
	IncrementOTPAttempts(ctx context.Context, id int64) error
	DeleteExpiredOTPs(ctx context.Context, before time.Time) (int64, error)
}

// Issued is the result of a successful IssueCode.
type Issued struct {
	Code      string
	ExpiresIn int // seconds
}

// Manager implements the OTP lifecycle on top of a Store.
type Manager struct {
	store       Store
	now         func() time.Time
	generate    func() (string, error)
	ttl         time.Duration
	resendDelay time.Duration
	maxAttempts int
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithGenerator replaces the code generator.
func WithGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.generate = gen }
}

// NewManager creates a Manager. Zero config values fall back to the defaults.
func NewManager(store Store, cfg config.OTPConfig, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		now:         time.Now,
		generate:    GenerateCode,
		ttl:         cfg.TTL,
		resendDelay: cfg.ResendDelay,
		maxAttempts: cfg.MaxAttempts,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.resendDelay < 0 {
		m.resendDelay = DefaultResendDelay
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = DefaultMaxAttempts
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime of issued codes.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// IssueCode creates a new code for identifier, invalidating any earlier
// unconsumed codes. It does not deliver the code.
func (m *Manager) IssueCode(ctx context.Context, identifier string) (*Issued, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}
	now := m.now().UTC()

	last, err := m.store.FindLatestUnconsumedOTP(ctx, identifier)
	switch {
	case err == nil:
		if wait := last.IssuedAt.Add(m.resendDelay).Sub(now); wait > 0 {
			return nil, &RateLimitedError{RetryAfter: wait}
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find latest code: %w", err)
	}

	if _, err := m.store.InvalidateUnconsumedOTPs(ctx, identifier, models.OTPStatusInvalidated); err != nil {
		return nil, fmt.Errorf("invalidate codes: %w", err)
	}

	code, err := m.generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	record := &models.OTPCode{
		Identifier: identifier,
		Code:       code,
		IssuedAt:   now,
		ExpiresAt:  now.Add(m.ttl),
		Status:     models.OTPStatusIssued,
	}
	if err := m.store.InsertOTP(ctx, record); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	slog.Info("otp_issued", "identifier", identifier, "expires_at", record.ExpiresAt)

	return &Issued{Code: code, ExpiresIn: int(m.ttl / time.Second)}, nil
}

// VerifyCode checks candidate against the active codes of identifier.
// A match consumes the code and invalidates every other unconsumed code.
// A miss counts as an attempt against every active code; once the limit is
// reached all unconsumed codes are exhausted and *MaxAttemptsExceededError
// is returned, also for any later attempt until a new code is issued.
func (m *Manager) VerifyCode(ctx context.Context, identifier, candidate string) (bool, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false, ErrEmptyIdentifier
	}
	candidate = strings.TrimSpace(candidate)
	now := m.now().UTC()

	match, err := m.store.FindActiveOTPByCode(ctx, identifier, candidate, now)
	if err == nil {
		if err := m.store.ConsumeOTP(ctx, match.ID, models.OTPStatusVerified); err != nil {
			return false, fmt.Errorf("consume code: %w", err)
		}
		if _, err := m.store.InvalidateUnconsumedOTPs(ctx, identifier, models.OTPStatusInvalidated); err != nil {
			return false, fmt.Errorf("invalidate codes: %w", err)
		}
		slog.Info("otp_verified", "identifier", identifier)
		return true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("find code: %w", err)
	}

	active, err := m.store.ListActiveOTPs(ctx, identifier, now)
	if err != nil {
		return false, fmt.Errorf("list codes: %w", err)
	}

	if len(active) == 0 {
		latest, err := m.store.FindLatestOTP(ctx, identifier)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return false, nil
		case err != nil:
			return false, fmt.Errorf("find latest code: %w", err)
		case latest.Status == models.OTPStatusExhausted:
			return false, &MaxAttemptsExceededError{Attempts: latest.Attempts}
		default:
			return false, nil
		}
	}

	for _, code := range active {
		if err := m.store.IncrementOTPAttempts(ctx, code.ID); err != nil {
			return false, fmt.Errorf("count attempt: %w", err)
		}
	}

	// active is newest first; re-read it to pick up the increment.
	latest, err := m.store.FindLatestUnconsumedOTP(ctx, identifier)
	if err != nil {
		return false, fmt.Errorf("find latest code: %w", err)
	}
	if latest.Attempts >= m.maxAttempts {
		if _, err := m.store.InvalidateUnconsumedOTPs(ctx, identifier, models.OTPStatusExhausted); err != nil {
			return false, fmt.Errorf("exhaust codes: %w", err)
		}
		slog.Warn("otp_exhausted", "identifier", identifier, "attempts", latest.Attempts)
		return false, &MaxAttemptsExceededError{Attempts: latest.Attempts}
	}

	return false, nil
}

// Purge deletes codes that expired before the given time.
func (m *Manager) Purge(ctx context.Context, before time.Time) (int64, error) {
	n, err := m.store.DeleteExpiredOTPs(ctx, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge codes: %w", err)
	}
	if n > 0 {
		slog.Info("otp_purged", "count", n)
	}
	return n, nil
}

// GenerateCode returns a uniformly random four-digit code in [1000, 9999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(1000+n.Int64(), 10), nil
}
