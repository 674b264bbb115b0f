package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/replog/internal/config"
	"github.com/claude/replog/internal/importer"
	"github.com/claude/replog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	programPath := flag.String("file", "", "path to program YAML file (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *programPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: replog-seed -config config.yaml -file program.yaml [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Parse the program before touching the database
	program, err := importer.LoadFile(*programPath)
	if err != nil {
		log.Error("invalid program file", "path", *programPath, "error", err)
		os.Exit(1)
	}
	log.Info("program loaded", "exercises", len(program.Exercises), "workouts", len(program.Workouts))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Run import
	imp := importer.New(db, log, *dryRun)
	stats, err := imp.Import(ctx, program)
	if err != nil {
		log.Error("seed failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("seed complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("seed stats",
		"exercises_upserted", stats.ExercisesUpserted,
		"exercises_implicit", stats.ExercisesImplicit,
		"workouts_seeded", stats.WorkoutsSeeded,
		"template_rows", stats.TemplateRows,
	)
}
