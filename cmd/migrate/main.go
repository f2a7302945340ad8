// Command migrate applies, rolls back or lists the embedded schema migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"matchbook.org/internal/account"
	"matchbook.org/internal/migrate"
)

const usage = "usage: migrate [-dsn DSN] [-timeout D] up|down|status"

var errUsage = errors.New(usage)

// migrator is the subset of migrate.Manager the command drives.
type migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Status(ctx context.Context) ([]string, error)
}

// openMigrator is swapped in tests.
var openMigrator = func(dsn string) (migrator, func() error, error) {
	db, err := account.OpenPostgres(dsn)
	if err != nil {
		return nil, nil, err
	}
	return migrate.NewManager(db), db.Close, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := execute(args, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func execute(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dsn := fs.String("dsn", os.Getenv("MATCHBOOK_PG_DSN"), "PostgreSQL DSN")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if *dsn == "" {
		return fmt.Errorf("%w: missing DSN, provide -dsn or MATCHBOOK_PG_DSN", errUsage)
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	cmd := fs.Arg(0)
	switch cmd {
	case "up", "down", "status":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	m, closeDB, err := openMigrator(*dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd {
	case "up":
		err = m.Up(ctx)
	case "down":
		err = m.Down(ctx)
	case "status":
		var lines []string
		lines, err = m.Status(ctx)
		for _, line := range lines {
			fmt.Fprintln(stdout, line)
		}
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cmd, err)
	}
	return nil
}
