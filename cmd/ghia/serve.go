package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/analysis"
	"github.com/yashwanth-reddy909/ghia/internal/config"
	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite"
	"github.com/yashwanth-reddy909/ghia/internal/syncer"
)

var serveSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the issue analyzer over HTTP.

Endpoints:
  GET  /          service banner
  GET  /health    database latency and version compatibility
  POST /scan      {"repo": "owner/name", "full_refresh": false}
  POST /analyze   {"repo": "owner/name", "prompt": "..."}
  GET  /issues    ?repo=owner/name

The server holds an exclusive lock on the database; point other ghia
commands at it with --server. Changing log.level in the config file takes
effect without a restart.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listen, _ := cmd.Flags().GetString("listen")
		if !cmd.Flags().Changed("listen") {
			listen = config.GetString("listen")
		}
		logFile, _ := cmd.Flags().GetString("log")
		if !cmd.Flags().Changed("log") {
			logFile = config.GetString("log.file")
		}

		path := dbPath
		if path == "" {
			path = config.DefaultDBPath()
		}

		ctx, stop := signal.NotifyContext(context.Background(), serveSignals...)
		defer stop()

		if err := runServer(ctx, path, listen, logFile, nil); err != nil {
			fatalf("%v", err)
		}
	},
}

// runServer opens the database at path, serves until ctx is done and
// cleans up. ready, when non-nil, receives the bound address once the
// server listens.
func runServer(ctx context.Context, path, listen, logFile string, ready chan<- string) error {
	logger := newServerLogger(logFile)
	defer func() { _ = logger.Close() }()
	config.OnChange(logger.reload)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	lock, err := acquireFileLock(path+".lock", dbLockTimeout)
	if err != nil {
		return fmt.Errorf("%w\nHint: another 'ghia serve' may already be running on this database", err)
	}
	defer func() { _ = lock.Release() }()

	db, err := sqlite.New(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	fetcher, err := newGitHubClient(logger.Logger)
	if err != nil {
		return err
	}
	if !fetcher.HasToken() {
		logger.Warn("no GitHub token configured; requests are limited to 60 per hour")
	}

	cfg := server.Config{
		Engine:  syncer.New(db, syncer.WithLogger(logger.Logger)),
		Fetcher: fetcher,
		Logger:  logger.Logger,
		Version: Version,
	}
	analyzer, err := newAnalyzer()
	switch {
	case err == nil:
		cfg.Analyzer = analyzer
		logger.Info("analysis enabled", "model", analyzer.Model())
	case errors.Is(err, analysis.ErrAPIKeyRequired):
		logger.Warn("analysis disabled: " + err.Error())
	default:
		return err
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx, listen) }()

	select {
	case err := <-errChan:
		return err
	case <-srv.WaitReady():
		logger.Info("ghia serving", "addr", srv.Addr().String(), "db", path)
		if ready != nil {
			ready <- srv.Addr().String()
		}
	case <-time.After(5 * time.Second):
		logger.Warn("server didn't signal ready after 5 seconds (may still be starting)")
	}

	err = <-errChan
	_ = db.CheckpointWAL(context.Background())
	return err
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:8000", "Address to listen on")
	serveCmd.Flags().String("log", "", "Also write logs to this file, rotated by size")
	rootCmd.AddCommand(serveCmd)
}
