package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/mw-bridge/internal/content"
	"horse.fit/mw-bridge/internal/db"
	"horse.fit/mw-bridge/internal/langdetect"
	"horse.fit/mw-bridge/internal/mwapi"
	"horse.fit/mw-bridge/internal/translator"
)

const deliveryDisplayFormat = "Mon, 02 Jan 2006 15:04 MST"

type createJobRequest struct {
	SourceLanguage      string         `json:"source_language"`
	TargetLanguage      string         `json:"target_language"`
	Content             map[string]any `json:"content"`
	SourceFileFormat    string         `json:"source_file_format"`
	MultipleSourceFiles *bool          `json:"multiple_source_files"`
}

type jobView struct {
	JobID               int64          `json:"job_id"`
	JobUUID             string         `json:"job_uuid"`
	SourceLanguage      string         `json:"source_language"`
	TargetLanguage      string         `json:"target_language"`
	Reference           int64          `json:"reference,omitempty"`
	State               string         `json:"state"`
	SourceFileFormat    string         `json:"source_file_format"`
	MultipleSourceFiles bool           `json:"multiple_source_files"`
	WordCount           *int           `json:"word_count,omitempty"`
	PriceAmount         *float64       `json:"price_amount,omitempty"`
	PriceCurrency       *string        `json:"price_currency,omitempty"`
	DeliveryAt          *time.Time     `json:"delivery_at,omitempty"`
	DeliveryDisplay     string         `json:"delivery_display,omitempty"`
	TranslatedContent   map[string]any `json:"translated_content,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type jobMessageView struct {
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func jobToView(job *db.TranslationJob) jobView {
	view := jobView{
		JobID:               job.JobID,
		JobUUID:             job.JobUUID,
		SourceLanguage:      job.SourceLanguage,
		TargetLanguage:      job.TargetLanguage,
		Reference:           job.Reference,
		State:               job.State,
		SourceFileFormat:    job.SourceFileFormat,
		MultipleSourceFiles: job.MultipleSourceFiles,
		WordCount:           job.WordCount,
		PriceAmount:         job.PriceAmount,
		PriceCurrency:       job.PriceCurrency,
		DeliveryAt:          job.DeliveryAt,
		CreatedAt:           job.CreatedAt,
		UpdatedAt:           job.UpdatedAt,
	}
	if job.DeliveryAt != nil {
		view.DeliveryDisplay = job.DeliveryAt.UTC().Format(deliveryDisplayFormat)
	}
	if len(job.TranslatedContent) > 0 {
		if tree, err := content.DecodeTree(job.TranslatedContent); err == nil {
			view.TranslatedContent = tree
		}
	}
	return view
}

func (s *Server) handleCreateJob(c echo.Context) error {
	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	fieldErrors := map[string]string{}
	req.TargetLanguage = strings.TrimSpace(req.TargetLanguage)
	if req.TargetLanguage == "" {
		fieldErrors["target_language"] = "is required"
	}
	if len(req.Content) == 0 {
		fieldErrors["content"] = "is required"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	raw, err := content.EncodeTree(req.Content)
	if err != nil {
		return failValidation(c, map[string]string{"content": "must be a JSON object"})
	}
	tree, err := content.DecodeTree(raw)
	if err != nil {
		return failValidation(c, map[string]string{"content": "must be a JSON object"})
	}

	sourceLanguage := strings.TrimSpace(req.SourceLanguage)
	if sourceLanguage == "" {
		sourceLanguage = detectSourceLanguage(tree)
		if sourceLanguage == "" {
			return failValidation(c, map[string]string{
				"source_language": "is required and could not be detected from the content",
			})
		}
		s.logger.Info().Str("detected", sourceLanguage).Msg("source language detected from content")
	}

	if !s.translator.CanTranslate(sourceLanguage, req.TargetLanguage) {
		return failValidation(c, map[string]string{
			"language_pair": "translation from " + sourceLanguage + " to " + req.TargetLanguage + " is not supported",
		})
	}

	params := db.CreateJobParams{
		SourceLanguage:      sourceLanguage,
		TargetLanguage:      req.TargetLanguage,
		Content:             raw,
		SourceFileFormat:    strings.TrimSpace(req.SourceFileFormat),
		MultipleSourceFiles: s.opts.DefaultMultipleSourceFiles,
	}
	if params.SourceFileFormat == "" {
		params.SourceFileFormat = s.opts.DefaultSourceFormat
	}
	if req.MultipleSourceFiles != nil {
		params.MultipleSourceFiles = *req.MultipleSourceFiles
	}

	job, err := s.store.CreateJob(c.Request().Context(), params)
	if err != nil {
		s.logger.Error().Err(err).Msg("create translation job failed")
		return internalError(c, "Failed to create job")
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{"job": jobToView(job)})
}

// detectSourceLanguage samples the translatable text of the job content and
// guesses an ISO 639-1 code.
func detectSourceLanguage(tree content.Tree) string {
	fields := content.FilterTranslatable(content.Flatten(tree))
	var sample strings.Builder
	for _, field := range fields {
		if sample.Len() >= 2000 {
			break
		}
		sample.WriteString(field.Text)
		sample.WriteString("\n")
	}
	return langdetect.DetectISO6391(sample.String())
}

func (s *Server) handleJobDetail(c echo.Context) error {
	job, err := s.jobFromPath(c)
	if err != nil {
		return err
	}

	messages, err := s.store.ListJobMessages(c.Request().Context(), job.JobID)
	if err != nil {
		s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg("list job messages failed")
		return internalError(c, "Failed to load job")
	}

	views := make([]jobMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, jobMessageView{Kind: m.Kind, Body: m.Body, CreatedAt: m.CreatedAt})
	}

	return success(c, map[string]any{
		"job":      jobToView(job),
		"messages": views,
	})
}

func (s *Server) handleJobQuote(c echo.Context) error {
	job, err := s.jobFromPath(c)
	if err != nil {
		return err
	}

	quote, err := s.translator.GetQuote(c.Request().Context(), job)
	if err != nil {
		return s.translatorError(c, job, err, "get quote failed")
	}

	fresh := s.refreshJob(c, job)
	resp := map[string]any{
		"job":        jobToView(fresh),
		"word_count": quote.WordCount,
	}
	if quote.Price != nil {
		resp["price"] = map[string]any{
			"amount":   quote.Price.Amount,
			"currency": quote.Price.Currency,
		}
	}
	if delivery := quote.Delivery(); delivery != nil {
		resp["delivery_at"] = delivery
		resp["delivery_display"] = delivery.Format(deliveryDisplayFormat)
	}
	return success(c, resp)
}

func (s *Server) handleJobLaunch(c echo.Context) error {
	job, err := s.jobFromPath(c)
	if err != nil {
		return err
	}

	if err := s.translator.RequestTranslation(c.Request().Context(), job); err != nil {
		return s.translatorError(c, job, err, "launch failed")
	}

	return success(c, map[string]any{"job": jobToView(s.refreshJob(c, job))})
}

func (s *Server) handleJobPull(c echo.Context) error {
	job, err := s.jobFromPath(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := s.translator.RetrieveTranslation(ctx, job); err != nil {
		return s.translatorError(c, job, err, "pull translation failed")
	}
	if err := s.store.MarkJobFinished(ctx, job.JobID); err != nil {
		s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg("mark job finished failed")
		return internalError(c, "Failed to finalize job")
	}

	return success(c, map[string]any{"job": jobToView(s.refreshJob(c, job))})
}

func (s *Server) handleJobProgress(c echo.Context) error {
	job, err := s.jobFromPath(c)
	if err != nil {
		return err
	}

	progress, err := s.translator.GetProjectProgress(c.Request().Context(), job)
	if err != nil {
		return s.translatorError(c, job, err, "get progress failed")
	}
	if progress == nil {
		return success(c, map[string]any{
			"job_uuid": job.JobUUID,
			"progress": nil,
		})
	}

	return success(c, map[string]any{
		"job_uuid": job.JobUUID,
		"progress": progress,
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"languages": s.translator.SupportedLanguages(),
	})
}

func (s *Server) handleAccount(c echo.Context) error {
	if err := s.translator.CheckAvailable(); err != nil {
		return fail(c, http.StatusServiceUnavailable, "Translator credentials are not configured", nil)
	}
	account := s.translator.AccountDetails(c.Request().Context())
	if account == nil {
		return fail(c, http.StatusBadGateway, "Could not load account details", nil)
	}
	return success(c, map[string]any{"account": account})
}

func (s *Server) jobFromPath(c echo.Context) (*db.TranslationJob, error) {
	jobUUID := strings.TrimSpace(c.Param("job_uuid"))
	if jobUUID == "" {
		return nil, failValidation(c, map[string]string{"job_uuid": "is required"})
	}

	job, err := s.store.GetJobByUUID(c.Request().Context(), jobUUID)
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			return nil, failNotFound(c, "Job not found")
		}
		s.logger.Error().Err(err).Str("job_uuid", jobUUID).Msg("load job failed")
		return nil, internalError(c, "Failed to load job")
	}
	return job, nil
}

// refreshJob re-reads the job after a state transition so the response shows
// the stored values. Falls back to the stale copy on error.
func (s *Server) refreshJob(c echo.Context, job *db.TranslationJob) *db.TranslationJob {
	fresh, err := s.store.GetJobByID(c.Request().Context(), job.JobID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("job_id", job.JobID).Msg("reload job failed")
		return job
	}
	return fresh
}

func (s *Server) translatorError(c echo.Context, job *db.TranslationJob, err error, logMsg string) error {
	switch {
	case errors.Is(err, translator.ErrNotAvailable):
		return fail(c, http.StatusServiceUnavailable, "Translator credentials are not configured", nil)
	case errors.Is(err, translator.ErrUnsupportedLanguage):
		return fail(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, translator.ErrDuplicateLaunch):
		return fail(c, http.StatusConflict, "A launch for this job is already in progress", nil)
	case errors.Is(err, translator.ErrNoReference):
		return fail(c, http.StatusConflict, "Job has not been submitted yet", nil)
	}

	var remoteErr *mwapi.RemoteError
	if errors.As(err, &remoteErr) {
		s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg(logMsg)
		return fail(c, http.StatusBadGateway, remoteErr.Message, nil)
	}
	var authErr *mwapi.AuthError
	if errors.As(err, &authErr) {
		s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg(logMsg)
		return fail(c, http.StatusBadGateway, "Authentication with the translation service failed", nil)
	}

	s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg(logMsg)
	return internalError(c, "Translation operation failed")
}
