// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every failed API request.
type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// fail writes a localized error message.
func fail(c echo.Context, code int, messageID string) error {
	return failData(c, code, messageID, nil)
}

func failData(c echo.Context, code int, messageID string, data map[string]any) error {
	return c.JSON(code, ErrorResponse{Error: tData(c, messageID, data)})
}

func tData(c echo.Context, messageID string, data map[string]any) string {
	return i18n.TData(c.Request().Context(), messageID, data)
}

// BadRequest reports a malformed or invalid request.
func BadRequest(c echo.Context) error {
	return fail(c, http.StatusBadRequest, "error_invalid_request")
}

// NotFound reports a missing resource.
func NotFound(c echo.Context) error {
	return fail(c, http.StatusNotFound, "error_not_found")
}

// Unauthorized reports a missing or invalid session.
func Unauthorized(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "error_unauthorized")
}

// InternalServerError logs err and reports a generic failure.
func InternalServerError(c echo.Context, msg string, err error) error {
	slog.ErrorContext(c.Request().Context(), msg,
		"error", err,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
	)
	return fail(c, http.StatusInternalServerError, "error_internal")
}

// HTTPErrorHandler renders echo errors (unknown routes, oversized bodies,
// recovered panics) as localized JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	messageID := "error_internal"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch {
		case code == http.StatusNotFound || code == http.StatusMethodNotAllowed:
			messageID = "error_not_found"
		case code == http.StatusUnauthorized:
			messageID = "error_unauthorized"
		case code < http.StatusInternalServerError:
			messageID = "error_invalid_request"
		}
	} else {
		slog.Error("unhandled error", "error", err, "path", c.Path())
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = fail(c, code, messageID)
}
