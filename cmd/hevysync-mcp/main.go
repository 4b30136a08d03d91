package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/hevysync/internal/app"
	"github.com/claude/hevysync/internal/config"
	"github.com/claude/hevysync/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	remote := flag.String("remote", "", "base URL of a hevysync server; tools call its API instead of running locally")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("reading .env", "error", err)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource
	if *remote != "" {
		ds = mcp.NewHTTPClient(*remote, os.Getenv("HEVYSYNC_SERVER_API_KEY"))
		log.Info("hevysync mcp starting", "version", Version, "mode", "remote", "url", *remote)
	} else {
		local, closeFn, err := openLocal(*configPath, log)
		if err != nil {
			log.Error("startup failed", "error", err)
			os.Exit(1)
		}
		defer closeFn()
		ds = local
		log.Info("hevysync mcp starting", "version", Version, "mode", "local")
	}

	if err := server.ServeStdio(mcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

func openLocal(configPath string, log *slog.Logger) (mcp.Local, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return mcp.Local{}, nil, err
	}
	if err := cfg.RequireSource(); err != nil {
		return mcp.Local{}, nil, err
	}
	if _, err := app.Migrate(cfg); err != nil {
		return mcp.Local{}, nil, err
	}

	backend, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		return mcp.Local{}, nil, err
	}
	local := mcp.Local{Syncer: app.NewSyncer(cfg, app.NewSource(cfg), backend, false, log)}
	if backend.Ledger != nil {
		local.Runs = backend.Ledger
	}
	return local, backend.Close, nil
}
