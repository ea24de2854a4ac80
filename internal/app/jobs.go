package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/mw-bridge/internal/cli"
)

// jobCommand parses the shared flag set of the per-job commands and runs fn
// with a bootstrapped runtime and the loaded job.
func jobCommand(name string, args []string, defaultTimeout time.Duration, fn func(*runtimeEnv, string) int) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	jobUUID := fs.String("job", "", "Job UUID")
	timeout := fs.Duration("timeout", defaultTimeout, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	uuid := strings.TrimSpace(*jobUUID)
	if uuid == "" {
		fmt.Fprintln(os.Stderr, "--job is required")
		return 2
	}

	env, err := bootstrap(envLoader, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.close()

	return fn(env, uuid)
}

func runQuote(args []string) int {
	return jobCommand("quote", args, 20*time.Minute, func(env *runtimeEnv, jobUUID string) int {
		job, err := loadJobByUUID(env, jobUUID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		quote, err := env.translator.GetQuote(env.ctx, job)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Quote failed: %v\n", err)
			return 1
		}

		out := map[string]any{
			"project_id": quote.ID,
			"word_count": quote.WordCount,
		}
		if quote.Price != nil {
			out["price"] = fmt.Sprintf("%.2f %s", quote.Price.Amount, quote.Price.Currency)
		}
		if delivery := quote.Delivery(); delivery != nil {
			out["delivery_at"] = delivery.Format(time.RFC3339)
		}
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	})
}

func runLaunch(args []string) int {
	return jobCommand("launch", args, 20*time.Minute, func(env *runtimeEnv, jobUUID string) int {
		job, err := loadJobByUUID(env, jobUUID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		if err := env.translator.RequestTranslation(env.ctx, job); err != nil {
			fmt.Fprintf(os.Stderr, "Launch failed: %v\n", err)
			return 1
		}

		fmt.Printf("ok: job %s launched (project %d)\n", job.JobUUID, job.Reference)
		return 0
	})
}

func runProgress(args []string) int {
	return jobCommand("progress", args, 60*time.Second, func(env *runtimeEnv, jobUUID string) int {
		job, err := loadJobByUUID(env, jobUUID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		progress, err := env.translator.GetProjectProgress(env.ctx, job)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Progress lookup failed: %v\n", err)
			return 1
		}
		if progress == nil {
			fmt.Println("job has not been submitted yet")
			return 0
		}

		fmt.Printf("translation: %.1f%%  proofreading: %.1f%%  total: %.1f%%\n",
			progress.Translation, progress.Proofreading, progress.Total)
		return 0
	})
}

func runPull(args []string) int {
	return jobCommand("pull", args, 20*time.Minute, func(env *runtimeEnv, jobUUID string) int {
		job, err := loadJobByUUID(env, jobUUID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		if err := env.translator.RetrieveTranslation(env.ctx, job); err != nil {
			fmt.Fprintf(os.Stderr, "Pull failed: %v\n", err)
			return 1
		}
		if err := env.pool.MarkJobFinished(env.ctx, job.JobID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to finalize job: %v\n", err)
			return 1
		}

		fmt.Printf("ok: translation stored for job %s\n", job.JobUUID)
		return 0
	})
}
