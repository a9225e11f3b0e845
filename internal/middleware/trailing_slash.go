// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripTrailingSlash redirects GET and HEAD requests with a trailing slash
// to the canonical URL without. Other methods are rewritten in place so
// request bodies survive.
func StripTrailingSlash() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			path := r.URL.Path
			if path == "/" || !strings.HasSuffix(path, "/") {
				return next(c)
			}

			trimmed := strings.TrimRight(path, "/")
			if trimmed == "" {
				trimmed = "/"
			}
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				target := trimmed
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				return c.Redirect(http.StatusMovedPermanently, target)
			}

			r.URL.Path = trimmed
			r.URL.RawPath = ""
			return next(c)
		}
	}
}
