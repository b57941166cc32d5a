package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/osenchi/internal/config"
	"github.com/JaimeStill/osenchi/internal/executions"
	"github.com/JaimeStill/osenchi/pkg/database"
)

var errUsage = errors.New("no migration action given")

// migrator is the subset of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

// options selects one migration action. Precedence: version, force, up, down, steps.
type options struct {
	dsn      string
	up       bool
	down     bool
	steps    int
	version  bool
	force    int
	forceSet bool
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, logger *slog.Logger) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}

	dsn, err := resolveDSN(opts.dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(executions.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return apply(m, opts, stdout, logger)
}

func parseFlags(args []string, stdout io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&opts.dsn, "dsn", "", "Database connection string (defaults to the OSENCHI_DB_* settings)")
	fs.BoolVar(&opts.up, "up", false, "Run all up migrations")
	fs.BoolVar(&opts.down, "down", false, "Run all down migrations")
	fs.IntVar(&opts.steps, "steps", 0, "Number of migrations (positive=up, negative=down)")
	fs.BoolVar(&opts.version, "version", false, "Print current migration version")
	fs.IntVar(&opts.force, "force", -1, "Force set version (use with caution)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			opts.forceSet = true
		}
	})

	if !opts.version && !opts.forceSet && !opts.up && !opts.down && opts.steps == 0 {
		fmt.Fprintln(stdout, "usage: migrate [-dsn <connection-string>] [-up|-down|-steps N|-version|-force N]")
		fs.PrintDefaults()
		return opts, errUsage
	}
	return opts, nil
}

// resolveDSN prefers an explicit flag, then the database section's
// environment overrides and defaults.
func resolveDSN(flagDSN string) (string, error) {
	cfg := &database.Config{}
	if err := cfg.Finalize(config.DatabaseEnv()); err != nil {
		return "", fmt.Errorf("database config: %w", err)
	}
	if flagDSN != "" {
		return flagDSN, nil
	}
	return cfg.Dsn(), nil
}

func apply(m migrator, opts options, stdout io.Writer, logger *slog.Logger) error {
	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		fmt.Fprintf(stdout, "version: %d, dirty: %v\n", v, dirty)
	case opts.forceSet:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force version %d: %w", opts.force, err)
		}
		logger.Warn("migration version forced", "version", opts.force)
	case opts.up:
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("up migrations: %w", err)
		}
		logger.Info("migrations applied")
	case opts.down:
		if err := ignoreNoChange(m.Down()); err != nil {
			return fmt.Errorf("down migrations: %w", err)
		}
		logger.Info("migrations reverted")
	default:
		if err := ignoreNoChange(m.Steps(opts.steps)); err != nil {
			return fmt.Errorf("migrate %d steps: %w", opts.steps, err)
		}
		logger.Info("migration steps applied", "steps", opts.steps)
	}
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
