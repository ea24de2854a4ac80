package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/mw-bridge/internal/db"
	"horse.fit/mw-bridge/internal/globaltime"
	"horse.fit/mw-bridge/internal/mwapi"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Defaults applied to jobs created without an explicit packaging choice.
	DefaultSourceFormat        string
	DefaultMultipleSourceFiles bool
}

// JobStore is the slice of the job repository the HTTP layer needs.
type JobStore interface {
	CreateJob(ctx context.Context, params db.CreateJobParams) (*db.TranslationJob, error)
	GetJobByUUID(ctx context.Context, jobUUID string) (*db.TranslationJob, error)
	GetJobByID(ctx context.Context, jobID int64) (*db.TranslationJob, error)
	AddJobMessage(ctx context.Context, jobID int64, kind, message string) error
	ListJobMessages(ctx context.Context, jobID int64) ([]db.JobMessage, error)
	SetJobState(ctx context.Context, jobID int64, state string) error
	MarkJobFinished(ctx context.Context, jobID int64) error
}

// TranslationService is implemented by translator.Translator.
type TranslationService interface {
	CheckAvailable() error
	CanTranslate(sourceLanguage, targetLanguage string) bool
	SupportedLanguages() map[string]string
	GetQuote(ctx context.Context, job *db.TranslationJob) (*mwapi.Quote, error)
	RequestTranslation(ctx context.Context, job *db.TranslationJob) error
	GetProject(ctx context.Context, job *db.TranslationJob) (*mwapi.Project, error)
	GetProjectProgress(ctx context.Context, job *db.TranslationJob) (*mwapi.Progress, error)
	RetrieveTranslation(ctx context.Context, job *db.TranslationJob) error
	AccountDetails(ctx context.Context) *mwapi.Account
}

type Server struct {
	store      JobStore
	translator TranslationService
	logger     zerolog.Logger
	opts       Options
}

func NewServer(store JobStore, translator TranslationService, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8091
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		store:      store,
		translator: translator,
		logger:     logger,
		opts: Options{
			Host:                       host,
			Port:                       port,
			ReadTimeout:                readTimeout,
			WriteTimeout:               writeTimeout,
			ShutdownTimeout:            shutdownTimeout,
			DefaultSourceFormat:        opts.DefaultSourceFormat,
			DefaultMultipleSourceFiles: opts.DefaultMultipleSourceFiles,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil || s.translator == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("mw-bridge server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("mw-bridge server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.POST("/callback", s.handleCallback)

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.GET("/account", s.handleAccount)
	api.POST("/jobs", s.handleCreateJob)
	api.GET("/jobs/:job_uuid", s.handleJobDetail)
	api.POST("/jobs/:job_uuid/quote", s.handleJobQuote)
	api.POST("/jobs/:job_uuid/launch", s.handleJobLaunch)
	api.POST("/jobs/:job_uuid/pull", s.handleJobPull)
	api.GET("/jobs/:job_uuid/progress", s.handleJobProgress)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "mw-bridge",
		"time":    globaltime.UTC(),
	})
}
