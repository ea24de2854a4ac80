package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mw-bridge/internal/cli"
	"horse.fit/mw-bridge/internal/config"
	"horse.fit/mw-bridge/internal/db"
	"horse.fit/mw-bridge/internal/logging"
	"horse.fit/mw-bridge/internal/mwapi"
	"horse.fit/mw-bridge/internal/translator"
)

// runtimeEnv bundles everything a job command needs after bootstrap.
type runtimeEnv struct {
	cfg        *config.Config
	logger     zerolog.Logger
	pool       *db.Pool
	translator *translator.Translator
	cancel     context.CancelFunc
	ctx        context.Context
}

func (r *runtimeEnv) close() {
	if r == nil {
		return
	}
	if r.pool != nil {
		r.pool.Close()
	}
	if r.cancel != nil {
		r.cancel()
	}
}

// bootstrap loads the environment file, configuration, logger, database pool
// and the translator client shared by every command that talks to MotaWord.
func bootstrap(envLoader *cli.EnvLoader, timeout time.Duration) (*runtimeEnv, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	client := mwapi.New(mwapi.Options{
		ClientID:     cfg.APIClientID,
		ClientSecret: cfg.APIClientSecret,
		UseSandbox:   cfg.UseSandbox,
		Timeout:      cfg.RequestTimeout,
		UserAgent:    cfg.UserAgent(),
	}, logger)

	return &runtimeEnv{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		translator: translator.New(client, pool, cfg, logger),
		cancel:     cancel,
		ctx:        ctx,
	}, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func loadJobByUUID(env *runtimeEnv, jobUUID string) (*db.TranslationJob, error) {
	job, err := env.pool.GetJobByUUID(env.ctx, jobUUID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobUUID, err)
	}
	return job, nil
}
