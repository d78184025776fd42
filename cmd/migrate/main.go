package main

import (
	"flag"
	"fmt"
	"minimessenger/internal/legacy"
	"minimessenger/repositories"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		color.Red.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
}

// storeConfig is the subset of the server configuration offline tools need.
type storeConfig struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
}

func run() error {
	path := flag.String("data", "data.json", "Path to the legacy JSON file")
	flag.Parse()

	_ = godotenv.Load()
	var config storeConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	file, err := os.Open(*path)
	if os.IsNotExist(err) {
		color.Yellow.Printf("No legacy data found at %s\n", *path)
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := legacy.Decode(file)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d users and %d messages in %s\n", len(data.Users), len(data.Messages), *path)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	messages, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = messages.Close() }()

	report, err := legacy.Import(log, data, repositories.NewUserRepository(db), messages, time.Now)
	if err != nil {
		return err
	}

	color.Green.Printf("Imported users: %d, messages: %d\n", report.ImportedUsers, report.ImportedMessages)
	if report.Failures > 0 {
		color.Yellow.Printf("Skipped %d invalid records\n", report.Failures)
	}
	fmt.Printf("Total users in store: %d, messages in store: %d\n", report.TotalUsers, report.TotalMessages)
	return nil
}
