package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/mw-bridge/internal/db"
)

//go:embed callback.schema.json
var callbackSchemaJSON string

// Fixed per-event status messages, kept verbatim from the MotaWord integration.
const (
	translatedMessage = "Your project has been translated. Waiting to be proofread."
	proofreadMessage  = "Your project has been proofread. Waiting for finalization to retrieve the translations."
	completedMessage  = "Your project is now complete. Retrieving the translations."
)

type callbackPayload struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	Project callbackProject `json:"project"`
}

type callbackProject struct {
	ID     json.Number    `json:"id"`
	Status string         `json:"status"`
	Custom callbackCustom `json:"custom"`
}

type callbackCustom struct {
	JobID json.Number `json:"job_id"`
}

var (
	callbackCompileOnce   sync.Once
	callbackSchema        *jsonschema.Schema
	callbackSchemaCompile error
)

func loadCallbackSchema() (*jsonschema.Schema, error) {
	callbackCompileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("callback.schema.json", strings.NewReader(callbackSchemaJSON)); err != nil {
			callbackSchemaCompile = fmt.Errorf("add schema resource: %w", err)
			return
		}
		callbackSchema, callbackSchemaCompile = compiler.Compile("callback.schema.json")
	})
	if callbackSchemaCompile != nil {
		return nil, callbackSchemaCompile
	}
	return callbackSchema, nil
}

// parseCallbackPayload validates the raw body against the embedded schema and
// decodes it into a typed payload.
func parseCallbackPayload(raw []byte) (*callbackPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	schema, err := loadCallbackSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var payload callbackPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if _, err := payload.jobID(); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *callbackPayload) jobID() (int64, error) {
	raw := strings.TrimSpace(p.Project.Custom.JobID.String())
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("job_id %q is not a positive integer", raw)
	}
	return id, nil
}

// handleCallback receives MotaWord progress notifications. A malformed payload
// is the caller's fault and gets a 400; everything past validation answers 200
// so the remote side does not retry events we have already recorded.
func (s *Server) handleCallback(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Could not read callback body", nil)
	}

	payload, err := parseCallbackPayload(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("invalid callback payload")
		return fail(c, http.StatusBadRequest, "Invalid callback payload", nil)
	}

	jobID, _ := payload.jobID()
	ctx := c.Request().Context()

	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("job_id", jobID).Msg("callback for unknown job")
		return fail(c, http.StatusBadRequest, "Unknown job", nil)
	}

	event := payload.Type + "/" + payload.Action
	logger := s.logger.With().
		Int64("job_id", job.JobID).
		Str("event", event).
		Str("project_id", payload.Project.ID.String()).
		Logger()

	if payload.Type != "project" {
		logger.Info().Msg("callback event ignored")
		return c.NoContent(http.StatusOK)
	}

	switch payload.Action {
	case "translated":
		s.recordCallbackMessage(c, job, translatedMessage)
		s.markJobActive(c, job)
	case "proofread":
		s.recordCallbackMessage(c, job, proofreadMessage)
		s.markJobActive(c, job)
	case "completed":
		s.recordCallbackMessage(c, job, completedMessage)
		if err := s.translator.RetrieveTranslation(ctx, job); err != nil {
			logger.Error().Err(err).Msg("retrieve translation from callback failed")
			return c.NoContent(http.StatusOK)
		}
		if err := s.store.MarkJobFinished(ctx, job.JobID); err != nil {
			logger.Error().Err(err).Msg("mark job finished failed")
		}
	default:
		logger.Info().Msg("callback event ignored")
	}

	return c.NoContent(http.StatusOK)
}

// markJobActive is a one-way transition out of submitted. Later states are
// never regressed by a stale or re-delivered callback.
func (s *Server) markJobActive(c echo.Context, job *db.TranslationJob) {
	if job.State != db.JobStateSubmitted {
		return
	}
	if err := s.store.SetJobState(c.Request().Context(), job.JobID, db.JobStateActive); err != nil {
		s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg("mark job active failed")
	}
}

func (s *Server) recordCallbackMessage(c echo.Context, job *db.TranslationJob, message string) {
	if err := s.store.AddJobMessage(c.Request().Context(), job.JobID, db.MessageKindStatus, message); err != nil {
		s.logger.Error().Err(err).Int64("job_id", job.JobID).Msg("record callback message failed")
	}
}
