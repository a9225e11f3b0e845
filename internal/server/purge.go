// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes expired one-time codes.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// runPurge sweeps expired codes every interval until ctx is done.
// A non-positive interval disables the sweep.
func runPurge(ctx context.Context, p Purger, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		slog.Info("otp purge disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx, now())
			if err != nil {
				slog.Error("otp_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("otp_purged", "count", n)
			}
		}
	}
}
