package main

import (
	"flag"
	"fmt"
	"log/slog"
	"minimessenger/internal/admin"
	"minimessenger/repositories"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

type storeConfig struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=WARN"`
}

const usage = `usage: chatctl <command>
  users                  list every account
  conversation <a> <b>   print the history between two users
  friends audit          list one-sided friendships
  friends repair         write the missing side of every one-sided friendship`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		color.Red.Printf("%v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	_ = godotenv.Load()
	var config storeConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	switch {
	case args[0] == "users":
		return withStore(config, true, func(db *badger.DB) error { return listUsers(db) })
	case args[0] == "conversation" && len(args) == 3:
		return withStore(config, true, func(db *badger.DB) error { return printConversation(db, log, args[1], args[2]) })
	case args[0] == "friends" && len(args) == 2 && args[1] == "audit":
		return withStore(config, true, func(db *badger.DB) error { return auditFriends(db) })
	case args[0] == "friends" && len(args) == 2 && args[1] == "repair":
		return withStore(config, false, func(db *badger.DB) error { return repairFriends(db, log) })
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", strings.Join(args, " "))
	}
}

// withStore opens badger for the duration of fn. Read-only opens bypass the
// directory lock so they work next to a running server.
func withStore(config storeConfig, readOnly bool, fn func(db *badger.DB) error) error {
	opts := badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING)
	if readOnly {
		opts = opts.WithReadOnly(true).WithBypassLockGuard(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func listUsers(db *badger.DB) error {
	users, err := repositories.NewUserRepository(db).ListUsers()
	if err != nil {
		return err
	}
	table := newTable("Username", "Display", "Roles", "Friends", "Created")
	for _, u := range users {
		table.Append([]string{
			u.Username,
			u.DisplayName,
			strings.Join(u.Roles, ","),
			strings.Join(u.Friends, ","),
			u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	fmt.Printf("%d users\n", len(users))
	return nil
}

func printConversation(db *badger.DB, log *slog.Logger, a, b string) error {
	history, err := repositories.NewMessageReader(db, log).GetConversation(a, b)
	if err != nil {
		return err
	}
	table := newTable("Time", "From", "To", "Text")
	for _, m := range history {
		table.Append([]string{m.Timestamp.Format("2006-01-02 15:04:05"), m.From, m.To, m.Text})
	}
	table.Render()
	fmt.Printf("%d messages\n", len(history))
	return nil
}

func auditFriends(db *badger.DB) error {
	found, err := audit(db)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		color.Green.Println("All friendships are symmetric")
		return nil
	}
	table := newTable("Owner", "Friend", "Problem")
	for _, a := range found {
		problem := "missing reverse entry"
		if a.Dangling {
			problem = "friend does not exist"
		}
		table.Append([]string{a.Owner, a.Friend, problem})
	}
	table.Render()
	color.Yellow.Printf("%d one-sided friendships\n", len(found))
	return nil
}

func repairFriends(db *badger.DB, log *slog.Logger) error {
	found, err := audit(db)
	if err != nil {
		return err
	}
	fixed, err := admin.Repair(log, repositories.NewUserRepository(db), found)
	if err != nil {
		return err
	}
	color.Green.Printf("Repaired %d of %d one-sided friendships\n", fixed, len(found))
	return nil
}

func audit(db *badger.DB) ([]admin.Asymmetry, error) {
	users, err := repositories.NewUserRepository(db).ListUsers()
	if err != nil {
		return nil, err
	}
	return admin.Audit(users), nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
