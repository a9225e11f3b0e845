// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"codeberg.org/oliverandrich/microloan/internal/database"
	"codeberg.org/oliverandrich/microloan/internal/handlers"
	"codeberg.org/oliverandrich/microloan/internal/i18n"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	authsvc "codeberg.org/oliverandrich/microloan/internal/services/auth"
	"codeberg.org/oliverandrich/microloan/internal/services/email"
	"codeberg.org/oliverandrich/microloan/internal/services/notify"
	"codeberg.org/oliverandrich/microloan/internal/services/otp"
	"codeberg.org/oliverandrich/microloan/internal/services/session"
	"codeberg.org/oliverandrich/microloan/internal/services/sms"
	"codeberg.org/oliverandrich/microloan/internal/sse"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// Services are the long-lived collaborators built from the configuration.
type Services struct {
	Repo     *repository.Repository
	OTP      *otp.Manager
	Notifier *notify.Dispatcher
	Sessions *session.Manager
	Auth     *authsvc.Service
	Hub      *sse.Hub
}

// NewServices wires the services on top of an open database.
func NewServices(cfg *config.Config, db *sqlx.DB) (*Services, error) {
	repo := repository.New(db)

	hasher, err := authsvc.NewHasher(cfg.Auth.HashScheme)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(&cfg.Session, cfg.SecureCookies(),
		session.WithVerifiedTTL(cfg.OTP.VerifiedTTL))
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return nil, err
	}
	if mailer.Simulated() {
		slog.Warn("smtp host not set, emails are logged instead of sent")
	}

	texter, err := sms.NewService(&cfg.SMS)
	if err != nil {
		return nil, err
	}
	if texter.Simulated() {
		slog.Warn("sms credentials not set, text messages are logged instead of sent")
	}

	hub := sse.NewHub()

	return &Services{
		Repo: repo,
		OTP:  otp.NewManager(repo, cfg.OTP),
		Notifier: notify.NewDispatcher(cfg.Notify,
			notify.WithChannel(notify.NewEmailChannel(mailer)),
			notify.WithChannel(notify.NewSMSChannel(texter)),
			notify.WithChannel(notify.NewInAppChannel(hub)),
		),
		Sessions: sessions,
		Auth:     authsvc.NewService(repo, hasher),
		Hub:      hub,
	}, nil
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (applies pending migrations)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	svc, err := NewServices(cfg, db)
	if err != nil {
		return err
	}

	if err := svc.Auth.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runPurge(ctx, svc.OTP, cfg.OTP.PurgeInterval, time.Now)

	e := New(cfg, svc)
	return startWithGracefulShutdown(ctx, e, cfg, svc.Hub)
}

// New builds the echo instance with middleware and routes.
func New(cfg *config.Config, svc *Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, cfg, svc)

	h := handlers.New(handlers.Deps{
		Repo:     svc.Repo,
		OTP:      svc.OTP,
		Notifier: svc.Notifier,
		Sessions: svc.Sessions,
		Auth:     svc.Auth,
		Hub:      svc.Hub,
		SMS:      cfg.SMS,
	})
	setupRoutes(e, h)

	return e
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config, hub *sse.Hub) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Streaming handlers only return once their hub channel closes.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
