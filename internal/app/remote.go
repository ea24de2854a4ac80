package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"horse.fit/mw-bridge/internal/cli"
	"horse.fit/mw-bridge/internal/config"
	"horse.fit/mw-bridge/internal/logging"
	"horse.fit/mw-bridge/internal/mwapi"
	"horse.fit/mw-bridge/internal/translator"
)

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	format := fs.String("format", "table", "Output format: table or json")
	remote := fs.Bool("remote", false, "List the languages the MotaWord API reports instead of the local mapping")
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *remote {
		return runRemoteLanguages(envLoader, *timeout, *format)
	}

	mapping := map[string]string{}
	for _, host := range translator.SupportedHostLanguages() {
		if code, ok := translator.RemoteLanguageCode(host); ok {
			mapping[host] = code
		}
	}

	if *format == "json" {
		if err := printJSON(mapping); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	hosts := make([]string, 0, len(mapping))
	for host := range mapping {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	for _, host := range hosts {
		fmt.Printf("%-12s %s\n", host, mapping[host])
	}
	return 0
}

// runRemoteLanguages asks the MotaWord API for its language catalogue. It only
// needs API credentials, so it skips the database bootstrap entirely.
func runRemoteLanguages(envLoader *cli.EnvLoader, timeout time.Duration, format string) int {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	client := mwapi.New(mwapi.Options{
		ClientID:     cfg.APIClientID,
		ClientSecret: cfg.APIClientSecret,
		UseSandbox:   cfg.UseSandbox,
		Timeout:      cfg.RequestTimeout,
		UserAgent:    cfg.UserAgent(),
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	languages, err := client.GetLanguages(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch languages: %v\n", err)
		return 1
	}

	if format == "json" {
		if err := printJSON(languages); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	sort.Slice(languages, func(i, j int) bool { return languages[i].Code < languages[j].Code })
	for _, lang := range languages {
		fmt.Printf("%-12s %s\n", lang.Code, lang.Name)
	}
	return 0
}

func runAccount(args []string) int {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	env, err := bootstrap(envLoader, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.close()

	if err := env.translator.CheckAvailable(); err != nil {
		fmt.Fprintln(os.Stderr, "MotaWord credentials are not configured")
		return 1
	}

	account := env.translator.AccountDetails(env.ctx)
	if account == nil {
		fmt.Fprintln(os.Stderr, "Could not load account details")
		return 1
	}

	if err := printJSON(account); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
