package main

import (
	"context"
	"fmt"
	"minimessenger/internal"
	"minimessenger/internal/app"
	"minimessenger/runtime/workers"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Components
	messenger, err := app.New(log, config, db)
	if err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	defer func() { _ = messenger.Close() }()

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision, blocks until every worker has returned
	log.Info("Messenger starting",
		"grpc", config.GrpcAddress(), "http", config.HTTPAddress(), "metrics", config.MetricsAddress())
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(messenger.Workers()...)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
