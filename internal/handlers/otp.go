// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/microloan/internal/services/otp"
	"github.com/labstack/echo/v4"
)

// OTPRequest is the body of POST /api/otp/request.
type OTPRequest struct {
	Identifier string `json:"identifier"`
}

// OTPVerifyRequest is the body of POST /api/otp/verify.
type OTPVerifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

// RequestOTP issues a code for a phone number or email address and sends it.
func (h *Handlers) RequestOTP(c echo.Context) error {
	var req OTPRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}
	identifier := h.normalizeIdentifier(req.Identifier)
	if identifier == "" {
		return fail(c, http.StatusBadRequest, "error_identifier_required")
	}

	ctx := c.Request().Context()
	issued, err := h.otp.IssueCode(ctx, identifier)
	if err != nil {
		var limited *otp.RateLimitedError
		switch {
		case errors.As(err, &limited):
			c.Response().Header().Set("Retry-After", strconv.Itoa(limited.Seconds()))
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:      tData(c, "error_rate_limited", map[string]any{"Seconds": limited.Seconds()}),
				RetryAfter: limited.Seconds(),
			})
		case errors.Is(err, otp.ErrEmptyIdentifier):
			return fail(c, http.StatusBadRequest, "error_identifier_required")
		default:
			return InternalServerError(c, "failed to issue otp", err)
		}
	}

	// Delivery is best effort and must not depend on the client staying connected.
	h.notifier.NotifyOTPIssued(context.WithoutCancel(ctx), identifier, issued.Code, issued.ExpiresIn)

	return c.JSON(http.StatusOK, map[string]int{"expires_in": issued.ExpiresIn})
}

// VerifyOTP checks a code. On success the verified identifier is stored in
// a signed cookie that authorizes one application submission.
func (h *Handlers) VerifyOTP(c echo.Context) error {
	var req OTPVerifyRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}
	identifier := h.normalizeIdentifier(req.Identifier)
	if identifier == "" {
		return fail(c, http.StatusBadRequest, "error_identifier_required")
	}

	ok, err := h.otp.VerifyCode(c.Request().Context(), identifier, req.Code)
	if err != nil {
		var exceeded *otp.MaxAttemptsExceededError
		switch {
		case errors.As(err, &exceeded):
			return c.JSON(http.StatusForbidden, map[string]any{
				"verified": false,
				"error":    tData(c, "error_max_attempts", nil),
			})
		case errors.Is(err, otp.ErrEmptyIdentifier):
			return fail(c, http.StatusBadRequest, "error_identifier_required")
		default:
			return InternalServerError(c, "failed to verify otp", err)
		}
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"verified": false,
			"error":    tData(c, "error_invalid_code", nil),
		})
	}

	cookie, err := h.sessions.CreateVerified(identifier)
	if err != nil {
		return InternalServerError(c, "failed to create verified cookie", err)
	}
	c.SetCookie(cookie)
	slog.Info("otp_verified", "identifier", identifier)

	return c.JSON(http.StatusOK, map[string]bool{"verified": true})
}
