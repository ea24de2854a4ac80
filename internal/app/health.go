package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/mw-bridge/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	env, err := bootstrap(envLoader, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer env.close()

	env.logger.Info().
		Dur("timeout", *timeout).
		Msg("database health check passed")
	fmt.Println("ok: database ping successful")
	return 0
}

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Migration timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// Connecting the pool applies pending schema migrations.
	env, err := bootstrap(envLoader, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}
	defer env.close()

	env.logger.Info().Msg("schema migrations applied")
	fmt.Println("ok: schema is up to date")
	return 0
}
