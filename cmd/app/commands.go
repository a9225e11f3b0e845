// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"codeberg.org/oliverandrich/microloan/internal/database"
	"codeberg.org/oliverandrich/microloan/internal/repository"
	authsvc "codeberg.org/oliverandrich/microloan/internal/services/auth"
	"codeberg.org/oliverandrich/microloan/internal/services/otp"
	"codeberg.org/oliverandrich/microloan/internal/server"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// withDB runs fn with the configured database. Migrations are applied
// unless the caller manages them itself.
func withDB(cmd *cli.Command, fn func(*config.Config, *sqlx.DB) error, opts ...database.Option) error {
	cfg := config.NewFromCLI(cmd)
	server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN, opts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	return fn(cfg, db)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(cmd, func(_ *config.Config, db *sqlx.DB) error {
						if err := database.RunMigrations(ctx, db.DB); err != nil {
							return err
						}
						return printVersion(ctx, db)
					}, database.WithoutMigrations())
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the last migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(cmd, func(_ *config.Config, db *sqlx.DB) error {
						if err := database.MigrateDown(ctx, db.DB); err != nil {
							return err
						}
						return printVersion(ctx, db)
					}, database.WithoutMigrations())
				},
			},
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDB(cmd, func(_ *config.Config, db *sqlx.DB) error {
						return printVersion(ctx, db)
					}, database.WithoutMigrations())
				},
			},
		},
	}
}

func printVersion(ctx context.Context, db *sqlx.DB) error {
	version, err := database.MigrationVersion(ctx, db.DB)
	if err != nil {
		return err
	}
	fmt.Printf("schema version: %d\n", version)
	return nil
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge-otp",
		Usage: "Delete one-time codes that have expired",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Only delete codes that expired at least this long ago",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withDB(cmd, func(cfg *config.Config, db *sqlx.DB) error {
				manager := otp.NewManager(repository.New(db), cfg.OTP)
				n, err := manager.Purge(ctx, time.Now().Add(-cmd.Duration("older-than")))
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d expired codes\n", n)
				return nil
			})
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create a back-office account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Email address of the admin",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Usage:    "Password of the admin",
				Sources:  cli.EnvVars("ADMIN_PASSWORD"),
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withDB(cmd, func(cfg *config.Config, db *sqlx.DB) error {
				hasher, err := authsvc.NewHasher(cfg.Auth.HashScheme)
				if err != nil {
					return err
				}
				svc := authsvc.NewService(repository.New(db), hasher)
				admin, err := svc.CreateAdmin(ctx, cmd.String("email"), cmd.String("password"))
				if err != nil {
					return err
				}
				fmt.Printf("created admin %s (id %d, %s)\n", admin.Email, admin.ID, hasher.Scheme())
				return nil
			})
		},
	}
}
