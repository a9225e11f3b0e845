// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"codeberg.org/oliverandrich/microloan/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cmd := &cli.Command{
		Name:   "microloan",
		Usage:  "Micro-loan application backend",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: server.Run,
			},
			migrateCommand(),
			purgeCommand(),
			createAdminCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
