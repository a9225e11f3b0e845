// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"io"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/auth"
	"codeberg.org/oliverandrich/microloan/internal/sse"
	"github.com/labstack/echo/v4"
)

// Events streams dashboard events to a logged-in admin as Server-Sent Events.
func (h *Handlers) Events(c echo.Context) error {
	ctx := c.Request().Context()
	admin := auth.GetAdmin(ctx)
	if admin == nil {
		return Unauthorized(c)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Register(admin.ID)
	defer h.hub.Unregister(admin.ID, ch)

	if _, err := io.WriteString(w, sse.FormatEvent("connected", "ok")); err != nil {
		return nil
	}
	w.Flush()

	// Heartbeat keeps the connection alive through proxies
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.WriteString(w, sse.Heartbeat); err != nil {
				return nil // Client disconnected
			}
			w.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := io.WriteString(w, msg.Format()); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
