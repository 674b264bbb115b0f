package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/replog/internal/client"
	"github.com/claude/replog/internal/config"
	"github.com/claude/replog/internal/mcp"
	"github.com/claude/replog/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (direct database mode)")
	serverURL := flag.String("server", "", "RepLog server URL; reads through the HTTP API instead of the database")
	apiKey := flag.String("api-key", os.Getenv("REPLOG_API_KEY"), "API key for -server")
	flag.Parse()

	// stdout carries the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource
	if *serverURL != "" {
		ds = client.New(*serverURL, *apiKey)
		log.Info("using remote server", "url", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		log.Info("database connected")
	}

	if err := mcpserver.ServeStdio(mcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
