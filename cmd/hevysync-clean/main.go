package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/claude/hevysync/internal/app"
	"github.com/claude/hevysync/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; env vars suffice)")
	table := flag.String("table", "", "table to modify (required)")
	column := flag.String("drop-column", "", "column to drop (required)")
	flag.Parse()

	if *table == "" || *column == "" {
		fmt.Fprintf(os.Stderr, "Usage: hevysync-clean [-config config.yaml] -table workouts -drop-column column_name\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("reading .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	ctx := context.Background()
	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	if backend.Columns == nil {
		log.Error("cannot drop column", "error", app.ErrNoRelationalStore)
		os.Exit(1)
	}
	if err := backend.Columns.DropColumn(ctx, *table, *column); err != nil {
		log.Error("drop column failed", "table", *table, "column", *column, "error", err)
		os.Exit(1)
	}
	log.Info("column dropped", "table", *table, "column", *column)
}
