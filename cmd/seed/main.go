// Package main is the entry point for the fixture seeder, which loads a YAML
// dataset into the Postgres declaration store.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/onnwee/valuesalign/internal/middleware"
	"github.com/onnwee/valuesalign/internal/store"
)

var errUsage = errors.New("usage")

type options struct {
	fixture     string
	databaseURL string
	timeout     time.Duration
	dryRun      bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts options
	help := fs.Bool("help", false, "display help message")
	fs.StringVar(&opts.fixture, "fixture", os.Getenv("FIXTURE_PATH"), "path to the YAML fixture (defaults to $FIXTURE_PATH)")
	fs.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL (defaults to $DATABASE_URL)")
	fs.DurationVar(&opts.timeout, "timeout", time.Minute, "maximum time for the import")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "validate the fixture without writing it")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if *help {
		fmt.Fprintln(output, "Values Alignment Fixture Seeder")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Usage: seed [options]")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Options:")
		fs.PrintDefaults()
		return opts, flag.ErrHelp
	}
	if opts.fixture == "" {
		return opts, fmt.Errorf("%w: -fixture is required", errUsage)
	}
	if opts.databaseURL == "" && !opts.dryRun {
		return opts, fmt.Errorf("%w: -database-url is required unless -dry-run is set", errUsage)
	}
	return opts, nil
}

// run loads the fixture and, unless this is a dry run, imports it.
func run(ctx context.Context, opts options, logger *slog.Logger) error {
	fixture, err := store.LoadFixture(opts.fixture)
	if err != nil {
		return err
	}
	logger.Info("fixture loaded",
		"path", opts.fixture,
		"causes", len(fixture.Causes),
		"users", len(fixture.Users),
		"brands", len(fixture.Brands),
		"businesses", len(fixture.Businesses),
		"lists", len(fixture.Lists),
	)
	if opts.dryRun {
		logger.Info("dry run; nothing written")
		return nil
	}

	db, err := sql.Open("postgres", opts.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	stats, err := store.NewPostgres(db, logger).Import(ctx, fixture)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	logger.Info("fixture imported",
		"causes", stats.Causes,
		"users", stats.Users,
		"brands", stats.Brands,
		"businesses", stats.Businesses,
		"lists", stats.Lists,
	)
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}
	logger := middleware.NewLogger(env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}
