package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("translation job not found")

type CreateJobParams struct {
	SourceLanguage      string
	TargetLanguage      string
	Content             json.RawMessage
	SourceFileFormat    string
	MultipleSourceFiles bool
}

func (p *Pool) CreateJob(ctx context.Context, params CreateJobParams) (*TranslationJob, error) {
	format := strings.ToLower(strings.TrimSpace(params.SourceFileFormat))
	if format == "" {
		format = "json"
	}

	const q = `
INSERT INTO mw.translation_jobs (
	job_uuid,
	source_language,
	target_language,
	content,
	source_file_format,
	multiple_source_files,
	state
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING job_id, created_at, updated_at
`

	job := TranslationJob{
		JobUUID:             uuid.NewString(),
		SourceLanguage:      params.SourceLanguage,
		TargetLanguage:      params.TargetLanguage,
		Content:             params.Content,
		SourceFileFormat:    format,
		MultipleSourceFiles: params.MultipleSourceFiles,
		State:               JobStateUnsubmitted,
	}

	err := p.QueryRow(
		ctx,
		q,
		job.JobUUID,
		job.SourceLanguage,
		job.TargetLanguage,
		string(job.Content),
		job.SourceFileFormat,
		job.MultipleSourceFiles,
		job.State,
	).Scan(&job.JobID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert translation job: %w", err)
	}

	return &job, nil
}

const jobColumns = `
	j.job_id,
	j.job_uuid::text,
	j.source_language,
	j.target_language,
	j.reference,
	j.state,
	j.content,
	j.translated_content,
	j.source_file_format,
	j.multiple_source_files,
	j.word_count,
	j.price_amount,
	j.price_currency,
	j.delivery_at,
	j.created_at,
	j.updated_at
`

func (p *Pool) GetJobByUUID(ctx context.Context, jobUUID string) (*TranslationJob, error) {
	q := `SELECT` + jobColumns + `FROM mw.translation_jobs j WHERE j.job_uuid = $1::uuid LIMIT 1`
	return p.scanJob(p.QueryRow(ctx, q, strings.TrimSpace(jobUUID)))
}

func (p *Pool) GetJobByID(ctx context.Context, jobID int64) (*TranslationJob, error) {
	q := `SELECT` + jobColumns + `FROM mw.translation_jobs j WHERE j.job_id = $1 LIMIT 1`
	return p.scanJob(p.QueryRow(ctx, q, jobID))
}

func (p *Pool) scanJob(row *Row) (*TranslationJob, error) {
	var (
		job        TranslationJob
		content    []byte
		translated []byte
	)
	err := row.Scan(
		&job.JobID,
		&job.JobUUID,
		&job.SourceLanguage,
		&job.TargetLanguage,
		&job.Reference,
		&job.State,
		&content,
		&translated,
		&job.SourceFileFormat,
		&job.MultipleSourceFiles,
		&job.WordCount,
		&job.PriceAmount,
		&job.PriceCurrency,
		&job.DeliveryAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("query translation job: %w", err)
	}

	job.Content = content
	job.TranslatedContent = translated
	return &job, nil
}

// SetJobReference assigns the remote project id. The reference is written only
// when none exists yet, so an earlier quote is never overwritten by a later one.
// Returns true when the reference was stored.
func (p *Pool) SetJobReference(ctx context.Context, jobID, reference int64) (bool, error) {
	const q = `
UPDATE mw.translation_jobs
SET reference = $2,
	state = CASE WHEN state = $3 THEN $4 ELSE state END,
	updated_at = now()
WHERE job_id = $1
  AND reference = 0
`

	tag, err := p.Exec(ctx, q, jobID, reference, JobStateUnsubmitted, JobStateQuoted)
	if err != nil {
		return false, fmt.Errorf("set job reference: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

type JobQuoteDetails struct {
	WordCount     int
	PriceAmount   float64
	PriceCurrency string
	DeliveryAt    *time.Time
}

func (p *Pool) SetJobQuoteDetails(ctx context.Context, jobID int64, details JobQuoteDetails) error {
	const q = `
UPDATE mw.translation_jobs
SET word_count = $2,
	price_amount = $3,
	price_currency = $4,
	delivery_at = $5,
	updated_at = now()
WHERE job_id = $1
`

	if _, err := p.Exec(ctx, q, jobID, details.WordCount, details.PriceAmount, details.PriceCurrency, details.DeliveryAt); err != nil {
		return fmt.Errorf("set job quote details: %w", err)
	}
	return nil
}

// ClaimJobForLaunch moves the job into the transient submitting state. The
// compare-and-swap on the current state makes a concurrent duplicate launch
// lose the race instead of double-submitting.
func (p *Pool) ClaimJobForLaunch(ctx context.Context, jobID int64) (bool, error) {
	const q = `
UPDATE mw.translation_jobs
SET state = $2,
	updated_at = now()
WHERE job_id = $1
  AND state IN ($3, $4)
`

	tag, err := p.Exec(ctx, q, jobID, JobStateSubmitting, JobStateUnsubmitted, JobStateQuoted)
	if err != nil {
		return false, fmt.Errorf("claim job for launch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Pool) SetJobState(ctx context.Context, jobID int64, state string) error {
	const q = `
UPDATE mw.translation_jobs
SET state = $2,
	updated_at = now()
WHERE job_id = $1
`

	if _, err := p.Exec(ctx, q, jobID, state); err != nil {
		return fmt.Errorf("set job state: %w", err)
	}
	return nil
}

func (p *Pool) MarkJobSubmitted(ctx context.Context, jobID int64, message string) error {
	if err := p.SetJobState(ctx, jobID, JobStateSubmitted); err != nil {
		return err
	}
	return p.AddJobMessage(ctx, jobID, MessageKindStatus, message)
}

func (p *Pool) MarkJobRejected(ctx context.Context, jobID int64, message string) error {
	if err := p.SetJobState(ctx, jobID, JobStateRejected); err != nil {
		return err
	}
	return p.AddJobMessage(ctx, jobID, MessageKindError, message)
}

func (p *Pool) MarkJobFinished(ctx context.Context, jobID int64) error {
	return p.SetJobState(ctx, jobID, JobStateFinished)
}

// MergeTranslatedContent folds one received translation tree into the job row.
// Successive merges accumulate, so a ZIP package with one file per item builds
// up the full translated tree entry by entry.
func (p *Pool) MergeTranslatedContent(ctx context.Context, jobID int64, translated json.RawMessage) error {
	const q = `
UPDATE mw.translation_jobs
SET translated_content = COALESCE(translated_content, '{}'::jsonb) || $2::jsonb,
	updated_at = now()
WHERE job_id = $1
`

	if _, err := p.Exec(ctx, q, jobID, string(translated)); err != nil {
		return fmt.Errorf("merge translated content: %w", err)
	}
	return nil
}

func (p *Pool) AddJobMessage(ctx context.Context, jobID int64, kind, body string) error {
	const q = `
INSERT INTO mw.job_messages (job_id, kind, body)
VALUES ($1, $2, $3)
`

	if _, err := p.Exec(ctx, q, jobID, kind, body); err != nil {
		return fmt.Errorf("insert job message: %w", err)
	}
	return nil
}

func (p *Pool) ListJobMessages(ctx context.Context, jobID int64) ([]JobMessage, error) {
	const q = `
SELECT message_id, job_id, kind, body, created_at
FROM mw.job_messages
WHERE job_id = $1
ORDER BY created_at, message_id
`

	rows, err := p.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("query job messages: %w", err)
	}
	defer rows.Close()

	items := make([]JobMessage, 0, 8)
	for rows.Next() {
		var row JobMessage
		if err := rows.Scan(&row.MessageID, &row.JobID, &row.Kind, &row.Body, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job message: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job messages: %w", err)
	}

	return items, nil
}
