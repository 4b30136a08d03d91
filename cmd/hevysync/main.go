package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/claude/hevysync/internal/app"
	"github.com/claude/hevysync/internal/config"
	"github.com/claude/hevysync/internal/syncer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (optional; env vars suffice)")
	dryRun := flag.Bool("dry-run", false, "fetch and transform without writing to the store")
	target := flag.String("target", "all", "tables to sync: all, workouts or routines")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("reading .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	log.Info("hevysync starting", "version", Version)

	targets, err := syncer.ParseTargets(*target)
	if err != nil {
		log.Error("invalid target", "error", err)
		os.Exit(1)
	}

	if !*dryRun {
		migrated, err := app.Migrate(cfg)
		if err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		if migrated {
			log.Info("migrations applied")
		}
	}
	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	if err := cfg.RequireSource(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend *app.Backend
	if !*dryRun {
		backend, err = app.Open(ctx, cfg, log)
		if err != nil {
			log.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
			os.Exit(1)
		}
		defer backend.Close()
	} else {
		log.Info("DRY RUN mode: nothing will be written to the store")
	}

	s := app.NewSyncer(cfg, app.NewSource(cfg), backend, *dryRun, log)
	stats, err := s.Run(ctx, targets)
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		log.Error("writing stats", "error", err)
		os.Exit(1)
	}
}
