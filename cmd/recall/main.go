package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/library"
	"github.com/conorfennell/recall/internal/logging"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/web"
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":      "server.addr",
	"db":        "library.path",
	"decks":     "library.dir",
	"log-level": "log.level",
	"log-file":  "log.file",
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recall: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Define and parse command-line flags
	flags := pflag.NewFlagSet("recall", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to a YAML config file")
	flags.String("addr", ":8080", "Address to listen on")
	flags.String("db", "recall.db", "Path to the SQLite deck library; empty disables it")
	flags.String("decks", "", "Directory of workbooks to keep in the library")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Write logs to this file instead of stdout")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath, flags, flagKeys)
	if err != nil {
		return err
	}

	// 2. Set up logging
	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Log.File, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()
	logging.SetGlobal(logger)
	log := logging.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the library, if enabled
	var db *storage.DB
	if cfg.Library.Path != "" {
		db, err = storage.Open(cfg.Library.Path)
		if err != nil {
			return fmt.Errorf("open library: %w", err)
		}
		defer db.Close()
		log.Info().Str("path", cfg.Library.Path).Msg("library opened")

		if cfg.Library.Dir != "" {
			scan(ctx, db, cfg.Library.Dir, log)
		}
	}

	// 4. Serve until interrupted
	srv, err := web.NewServer(web.Options{
		DB:         db,
		LibraryDir: cfg.Library.Dir,
		SessionTTL: cfg.Server.SessionTTL,
		Logger:     logging.Component("web"),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func scan(ctx context.Context, db *storage.DB, dir string, log zerolog.Logger) {
	report, err := library.Scan(ctx, db, dir, logging.Component("library"))
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("library scan failed")
		return
	}
	for _, e := range report.Errors {
		log.Warn().Err(e).Msg("library scan")
	}
	log.Info().Int("parsed", report.Parsed).Int("removed", report.Removed).Int("errors", len(report.Errors)).Msg("library scanned")
}
