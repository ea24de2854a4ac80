package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "account":
		return runAccount(args[1:])
	case "quote":
		return runQuote(args[1:])
	case "launch":
		return runLaunch(args[1:])
	case "progress":
		return runProgress(args[1:])
	case "pull":
		return runPull(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "mw-bridge CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  mw-bridge <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  migrate    Apply database schema migrations")
	fmt.Fprintln(os.Stderr, "  languages  List supported language pairs")
	fmt.Fprintln(os.Stderr, "  account    Show the MotaWord account for the configured credentials")
	fmt.Fprintln(os.Stderr, "  quote      Submit a job's content and print the returned quote")
	fmt.Fprintln(os.Stderr, "  launch     Launch the translation project for a quoted job")
	fmt.Fprintln(os.Stderr, "  progress   Show translation progress for a launched job")
	fmt.Fprintln(os.Stderr, "  pull       Download and store the finished translation for a job")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API and callback server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"mw-bridge <command> -h\" for command-specific flags.")
}
