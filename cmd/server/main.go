// Package main is the entry point for the PR Manager server.
//
// main stays minimal: read configuration, build the logger, make sure the
// data directory exists, start the server. Everything else lives under
// internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/pr-manager/internal/config"
	"github.com/sakif/pr-manager/internal/logger"
	"github.com/sakif/pr-manager/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// .env is optional; real environment variables win over it.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	log := logger.New(cfg.IsDevelopment())

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`; 0755 = owner rwx, others r-x.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
