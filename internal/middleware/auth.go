// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/microloan/internal/auth"
	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"codeberg.org/oliverandrich/microloan/internal/models"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	"codeberg.org/oliverandrich/microloan/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AdminLoader loads admins by ID.
type AdminLoader interface {
	GetAdminByID(ctx context.Context, id int64) (*models.Admin, error)
}

// SessionReader reads the session cookies of a request.
type SessionReader interface {
	Parse(r *http.Request) (*session.Data, error)
	ParseVerified(r *http.Request) (string, bool)
}

// LoadAdmin loads the admin of the session cookie into the request context.
// Sessions of deleted admins are ignored.
func LoadAdmin(sessions SessionReader, admins AdminLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			data, err := sessions.Parse(r)
			if err != nil || data == nil {
				return next(c)
			}

			admin, err := admins.GetAdminByID(r.Context(), data.AdminID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					slog.Error("failed to load session admin", "admin_id", data.AdminID, "error", err)
				}
				return next(c)
			}

			c.SetRequest(r.WithContext(auth.WithAdmin(r.Context(), admin)))
			return next(c)
		}
	}
}

// LoadVerified stores the OTP-verified identifier of the request, if any,
// in the request context.
func LoadVerified(sessions SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if id, ok := sessions.ParseVerified(r); ok {
				c.SetRequest(r.WithContext(auth.WithVerified(r.Context(), id)))
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects requests without an authenticated admin.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if !auth.IsAuthenticated(ctx) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": i18n.T(ctx, "error_unauthorized"),
			})
		}
		return next(c)
	}
}
