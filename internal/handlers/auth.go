// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/microloan/internal/auth"
	authsvc "codeberg.org/oliverandrich/microloan/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an admin and sets the session cookie.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}

	admin, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, authsvc.ErrInvalidCredentials) {
		slog.Warn("admin login failed", "email", req.Email, "ip", c.RealIP())
		return fail(c, http.StatusUnauthorized, "error_invalid_credentials")
	}
	if err != nil {
		return InternalServerError(c, "failed to log in", err)
	}

	cookie, err := h.sessions.Create(admin.ID, admin.Email)
	if err != nil {
		return InternalServerError(c, "failed to create session", err)
	}
	c.SetCookie(cookie)
	slog.Info("admin logged in", "admin_id", admin.ID)

	return c.JSON(http.StatusOK, admin)
}

// Logout clears the session cookie.
func (h *Handlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.NoContent(http.StatusNoContent)
}

// Me returns the logged-in admin.
func (h *Handlers) Me(c echo.Context) error {
	admin := auth.GetAdmin(c.Request().Context())
	if admin == nil {
		return Unauthorized(c)
	}
	return c.JSON(http.StatusOK, admin)
}
