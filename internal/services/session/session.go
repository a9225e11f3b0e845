// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues signed cookies for admin sessions and for
// identifiers that passed OTP verification.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"github.com/gorilla/securecookie"
)

const keyLength = 32

// DefaultVerifiedTTL is how long a verified identifier stays valid.
const DefaultVerifiedTTL = 30 * time.Minute

// Data is the content of an admin session cookie.
type Data struct {
	ExpiresAt time.Time
	Email     string
	AdminID   int64
}

// Verified is the content of a verified-identifier cookie.
type Verified struct {
	ExpiresAt  time.Time
	Identifier string
}

// Manager creates and parses session cookies.
type Manager struct {
	session     *securecookie.SecureCookie
	verified    *securecookie.SecureCookie
	cookieName  string
	maxAge      int
	verifiedTTL time.Duration
	secure      bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithVerifiedTTL sets the lifetime of verified-identifier cookies.
func WithVerifiedTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.verifiedTTL = d
		}
	}
}

// NewManager creates a session manager. An empty hash key generates a
// random one, which invalidates all cookies on restart.
func NewManager(cfg *config.SessionConfig, secure bool, opts ...Option) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		slog.Warn("session hash key not set, generating a random key; sessions will not survive restarts")
		hashKey = securecookie.GenerateRandomKey(keyLength)
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cookieName:  cfg.CookieName,
		maxAge:      cfg.MaxAge,
		verifiedTTL: DefaultVerifiedTTL,
		secure:      secure,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.session = securecookie.New(hashKey, blockKey)
	m.session.MaxAge(m.maxAge)
	m.verified = securecookie.New(hashKey, blockKey)
	m.verified.MaxAge(int(m.verifiedTTL / time.Second))

	return m, nil
}

func decodeKey(s, kind string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", kind, err)
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("invalid session %s key: must be %d bytes, got %d", kind, keyLength, len(key))
	}
	return key, nil
}

// VerifiedCookieName is the name of the verified-identifier cookie.
func (m *Manager) VerifiedCookieName() string {
	return m.cookieName + "_verified"
}

// Create returns a signed session cookie for an admin.
func (m *Manager) Create(adminID int64, email string) (*http.Cookie, error) {
	data := Data{
		AdminID:   adminID,
		Email:     email,
		ExpiresAt: time.Now().Add(time.Duration(m.maxAge) * time.Second),
	}
	encoded, err := m.session.Encode(m.cookieName, data)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return m.cookie(m.cookieName, encoded, m.maxAge), nil
}

// Parse returns the session of the request, or nil when there is no valid
// session cookie.
func (m *Manager) Parse(r *http.Request) (*Data, error) {
	c, err := r.Cookie(m.cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data Data
	if err := m.session.Decode(m.cookieName, c.Value, &data); err != nil {
		return nil, nil //nolint:nilerr // invalid cookies are treated as absent
	}
	if time.Now().After(data.ExpiresAt) {
		return nil, nil
	}
	return &data, nil
}

// Clear returns a cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return m.cookie(m.cookieName, "", -1)
}

// CreateVerified returns a cookie proving that identifier passed OTP
// verification.
func (m *Manager) CreateVerified(identifier string) (*http.Cookie, error) {
	v := Verified{
		Identifier: identifier,
		ExpiresAt:  time.Now().Add(m.verifiedTTL),
	}
	name := m.VerifiedCookieName()
	encoded, err := m.verified.Encode(name, v)
	if err != nil {
		return nil, fmt.Errorf("encoding verified identifier: %w", err)
	}
	return m.cookie(name, encoded, int(m.verifiedTTL/time.Second)), nil
}

// ParseVerified returns the verified identifier of the request, if any.
func (m *Manager) ParseVerified(r *http.Request) (string, bool) {
	name := m.VerifiedCookieName()
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}

	var v Verified
	if err := m.verified.Decode(name, c.Value, &v); err != nil {
		return "", false
	}
	if time.Now().After(v.ExpiresAt) {
		return "", false
	}
	return v.Identifier, true
}

// ClearVerified returns a cookie that removes the verified identifier.
func (m *Manager) ClearVerified() *http.Cookie {
	return m.cookie(m.VerifiedCookieName(), "", -1)
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
