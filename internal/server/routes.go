// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/microloan/internal/handlers"
	appmw "codeberg.org/oliverandrich/microloan/internal/middleware"
	"github.com/labstack/echo/v4"
)

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.Health)

	// Public API
	api := e.Group("/api")
	api.GET("/calculator", h.Calculator)
	api.POST("/otp/request", h.RequestOTP)
	api.POST("/otp/verify", h.VerifyOTP)
	api.POST("/applications", h.CreateApplication)

	// Back office
	e.POST("/admin/login", h.Login)
	e.POST("/admin/logout", h.Logout)

	admin := e.Group("/admin", appmw.RequireAdmin)
	admin.GET("/me", h.Me)
	admin.GET("/applications", h.ListApplications)
	admin.GET("/applications/:reference", h.GetApplication)
	admin.PATCH("/applications/:reference/status", h.UpdateApplicationStatus)
	admin.GET("/stats", h.Stats)
	admin.GET("/events", h.Events)
	admin.GET("/ws", h.WebSocket)
}
