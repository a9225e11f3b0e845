// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	authsvc "codeberg.org/oliverandrich/microloan/internal/services/auth"
	"codeberg.org/oliverandrich/microloan/internal/services/otp"
	"codeberg.org/oliverandrich/microloan/internal/services/session"
	"codeberg.org/oliverandrich/microloan/internal/sse"
	"github.com/labstack/echo/v4"
)

// OTPService issues and verifies one-time codes.
type OTPService interface {
	IssueCode(ctx context.Context, identifier string) (*otp.Issued, error)
	VerifyCode(ctx context.Context, identifier, candidate string) (bool, error)
}

// Notifier delivers notifications on a best-effort basis.
type Notifier interface {
	NotifyNewApplication(ctx context.Context, s models.ApplicationSummary)
	NotifyOTPIssued(ctx context.Context, identifier, code string, expiresIn int)
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Repo     *repository.Repository
	OTP      OTPService
	Notifier Notifier
	Sessions *session.Manager
	Auth     *authsvc.Service
	Hub      *sse.Hub
	SMS      config.SMSConfig
	Now      func() time.Time
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo      *repository.Repository
	otp       OTPService
	notifier  Notifier
	sessions  *session.Manager
	auth      *authsvc.Service
	hub       *sse.Hub
	sms       config.SMSConfig
	now       func() time.Time
	heartbeat time.Duration
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	h := &Handlers{
		repo:      d.Repo,
		otp:       d.OTP,
		notifier:  d.Notifier,
		sessions:  d.Sessions,
		auth:      d.Auth,
		hub:       d.Hub,
		sms:       d.SMS,
		now:       d.Now,
		heartbeat: 30 * time.Second,
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
