// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"strings"

	"codeberg.org/oliverandrich/microloan/internal/config"
	appmw "codeberg.org/oliverandrich/microloan/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config, svc *Services) {
	e.Pre(appmw.StripTrailingSlash())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: isStream,
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(appmw.Locale())
	e.Use(appmw.LoadAdmin(svc.Sessions, svc.Repo))
	e.Use(appmw.LoadVerified(svc.Sessions))
}

// isStream reports whether the request opens a long-lived event stream,
// which must not be buffered by compression.
func isStream(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/admin/events") || strings.HasPrefix(path, "/admin/ws")
}
