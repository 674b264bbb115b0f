package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/replog/internal/client"
	"github.com/claude/replog/internal/config"
	"github.com/claude/replog/internal/guide"
	"github.com/claude/replog/internal/importer"
	"github.com/claude/replog/internal/localstore"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	serverURL := flag.String("server", "", "RepLog server URL")
	apiKey := flag.String("api-key", os.Getenv("REPLOG_API_KEY"), "API key for -server")
	localDir := flag.String("local", "", "log to a local database in this directory instead of a server")
	configPath := flag.String("config", "", "path to config file; logs straight to the database")
	programPath := flag.String("program", "", "program YAML file to plan local sessions from")
	workout := flag.String("workout", "", "workout to start (id or name); empty starts a freestyle session")
	resume := flag.String("session", "", "resume an open session by id")
	interval := flag.Duration("interval", config.DefaultSyncInterval, "how often unsaved entries are pushed")
	finish := flag.Bool("finish", true, "finish the session on quit")
	verbose := flag.Bool("v", false, "log debug output")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	// stdout belongs to the logging prompt.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var b backend
	switch {
	case *serverURL != "":
		b = &recordBackend{records: remoteRecords{client.New(*serverURL, *apiKey)}, workout: *workout, resume: *resume}

	case *localDir != "":
		store, err := localstore.Open(*localDir)
		if err != nil {
			fail(log, "opening local store", err)
		}
		defer store.Close()
		lb := &localBackend{Store: store, workout: *workout, resume: *resume}
		if *programPath != "" {
			if lb.program, err = importer.LoadFile(*programPath); err != nil {
				fail(log, "loading program", err)
			}
		}
		b = lb

	case *configPath != "":
		cfg, err := config.Load(*configPath)
		if err != nil {
			fail(log, "loading config", err)
		}
		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			fail(log, "connecting database", err)
		}
		defer db.Close()
		if *interval == config.DefaultSyncInterval {
			*interval = cfg.Sync.Interval
		}
		b = &recordBackend{records: dbRecords{db: db, userID: storage.DevUserID}, workout: *workout, resume: *resume}

	default:
		fmt.Fprintf(os.Stderr, "Usage: replog-log (-server URL | -local DIR | -config FILE) [-workout NAME] [-session ID]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(ctx, b, *interval, *finish, log); err != nil {
		fail(log, "logging session", err)
	}
}

// run logs one session: the prompt on stdin and a sync loop in the
// background. Unsaved entries get a final push before the session is
// finished.
func run(ctx context.Context, b backend, interval time.Duration, finish bool, log *slog.Logger) error {
	id, name, entries, err := b.Open(ctx)
	if err != nil {
		return err
	}

	state := session.New(session.WithLogger(log))
	state.Init(id, name, entries)
	sy := session.NewSyncer(state, b, log)
	fmt.Printf("%s (%d exercises)\n", name, len(entries))

	syncCtx, stopSync := context.WithCancel(ctx)
	g, _ := errgroup.WithContext(syncCtx)
	g.Go(func() error { return sy.Run(syncCtx, interval) })

	ctrl := guide.New(sy, os.Stdout, log)
	ctrl.SetEntryCreator(b)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		ctrl.DisablePrompt()
	}
	runErr := ctrl.Run(ctx, os.Stdin)
	stopSync()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	var unsaved bool
	sy.Do(func(s *session.State) { unsaved = s.HasUnsaved() })
	if unsaved {
		return errors.New("some entries were not saved; session left open")
	}

	if !finish {
		fmt.Printf("session %s left open\n", id)
		return nil
	}
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	minutes, err := b.Finish(finishCtx, id)
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	fmt.Printf("session finished: %d min\n", minutes)
	return nil
}

func fail(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
