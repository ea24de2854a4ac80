// Package translator orchestrates a job's lifecycle against the MotaWord API:
// quoting, launching, progress reads and retrieval of finished translations.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"horse.fit/mw-bridge/internal/config"
	"horse.fit/mw-bridge/internal/content"
	"horse.fit/mw-bridge/internal/db"
	"horse.fit/mw-bridge/internal/mwapi"
)

var (
	ErrNotAvailable        = errors.New("translator credentials are not configured")
	ErrUnsupportedLanguage = errors.New("language is not supported")
	ErrDuplicateLaunch     = errors.New("job launch is already in progress")
	ErrNoReference         = errors.New("job has no remote project reference")
)

// Fixed user-facing messages, kept verbatim from the MotaWord integration.
const (
	rejectedMessage     = "Your job has been rejected. Contact us at info@motaword.com"
	parseFailureMessage = "Could not parse translation received from MotaWord. Contact us at info@motaword.com"
)

// API is the subset of the MotaWord client the orchestrator depends on.
type API interface {
	GetAccount(ctx context.Context) (*mwapi.Account, error)
	GetProject(ctx context.Context, projectID int64) (*mwapi.Project, error)
	GetProgress(ctx context.Context, projectID int64) (*mwapi.Progress, error)
	SubmitProject(ctx context.Context, fields url.Values) (*mwapi.Quote, error)
	LaunchProject(ctx context.Context, projectID int64, fields url.Values) (*mwapi.LaunchResult, error)
	DownloadProject(ctx context.Context, projectID int64) ([]byte, error)
}

// JobStore persists job state transitions and messages.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID int64) (*db.TranslationJob, error)
	SetJobReference(ctx context.Context, jobID, reference int64) (bool, error)
	SetJobQuoteDetails(ctx context.Context, jobID int64, details db.JobQuoteDetails) error
	ClaimJobForLaunch(ctx context.Context, jobID int64) (bool, error)
	MarkJobSubmitted(ctx context.Context, jobID int64, message string) error
	MarkJobRejected(ctx context.Context, jobID int64, message string) error
	MarkJobFinished(ctx context.Context, jobID int64) error
	AddJobMessage(ctx context.Context, jobID int64, kind, body string) error
	MergeTranslatedContent(ctx context.Context, jobID int64, translated json.RawMessage) error
}

type Translator struct {
	api    API
	store  JobStore
	cfg    *config.Config
	logger zerolog.Logger
}

func New(api API, store JobStore, cfg *config.Config, logger zerolog.Logger) *Translator {
	return &Translator{
		api:    api,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// CheckAvailable verifies the API client credentials are configured.
func (t *Translator) CheckAvailable() error {
	if t == nil || !t.cfg.HasCredentials() {
		return ErrNotAvailable
	}
	return nil
}

// CanTranslate reports whether both host language codes exist in the mapping
// table, given a configured translator.
func (t *Translator) CanTranslate(sourceLang, targetLang string) bool {
	if t.CheckAvailable() != nil {
		return false
	}
	_, sourceOK := RemoteLanguageCode(sourceLang)
	_, targetOK := RemoteLanguageCode(targetLang)
	return sourceOK && targetOK
}

// GetQuote submits the job's content as a project and returns the remote
// quote. The quote id becomes the job's reference unless one already exists.
func (t *Translator) GetQuote(ctx context.Context, job *db.TranslationJob) (*mwapi.Quote, error) {
	if err := t.CheckAvailable(); err != nil {
		return nil, err
	}

	sourceCode, ok := RemoteLanguageCode(job.SourceLanguage)
	if !ok {
		return nil, fmt.Errorf("%w: source %q", ErrUnsupportedLanguage, job.SourceLanguage)
	}
	targetCode, ok := RemoteLanguageCode(job.TargetLanguage)
	if !ok {
		return nil, fmt.Errorf("%w: target %q", ErrUnsupportedLanguage, job.TargetLanguage)
	}

	tree, err := content.DecodeTree(job.Content)
	if err != nil {
		return nil, err
	}

	files, err := content.BuildJobFiles(job.JobID, tree, content.PackOptions{
		Format:  job.SourceFileFormat,
		PerItem: job.MultipleSourceFiles,
	})
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "mw-src-")
	if err != nil {
		return nil, fmt.Errorf("create upload temp dir: %w", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(tmpDir); removeErr != nil {
			t.logger.Warn().Err(removeErr).Str("dir", tmpDir).Msg("upload temp dir cleanup failed")
		}
	}()

	fields := url.Values{}
	fields.Set("source_language", sourceCode)
	fields.Add("target_languages[]", targetCode)
	fields.Set("callback_url", t.cfg.CallbackURL)
	fields.Set("custom[job_id]", strconv.FormatInt(job.JobID, 10))

	for idx, file := range files {
		docPath := filepath.Join(tmpDir, fmt.Sprintf("doc-%d", idx))
		if err := os.WriteFile(docPath, file.Content, 0o600); err != nil {
			return nil, fmt.Errorf("write upload document: %w", err)
		}
		fields.Set(fmt.Sprintf("documents[%d]", idx), "@"+docPath+";filename="+file.Name)
	}

	quote, err := t.api.SubmitProject(ctx, fields)
	if err != nil {
		t.logger.Error().Err(err).Int64("job_id", job.JobID).Msg("submit project failed")
		return nil, err
	}

	if quote.ID > 0 {
		stored, err := t.store.SetJobReference(ctx, job.JobID, quote.ID)
		if err != nil {
			return nil, err
		}
		if stored {
			job.Reference = quote.ID
		}
	}

	details := db.JobQuoteDetails{
		WordCount:  quote.WordCount,
		DeliveryAt: quote.Delivery(),
	}
	if quote.Price != nil {
		details.PriceAmount = quote.Price.Amount
		details.PriceCurrency = quote.Price.Currency
	}
	if err := t.store.SetJobQuoteDetails(ctx, job.JobID, details); err != nil {
		return nil, err
	}

	return quote, nil
}

// RequestTranslation launches the job's project, computing a quote first when
// no reference exists yet. The per-job launch claim makes a concurrent
// duplicate call fail instead of double-submitting.
func (t *Translator) RequestTranslation(ctx context.Context, job *db.TranslationJob) error {
	if err := t.CheckAvailable(); err != nil {
		return err
	}

	if !job.HasReference() {
		if _, err := t.GetQuote(ctx, job); err != nil {
			return err
		}
	}
	if !job.HasReference() {
		return ErrNoReference
	}

	claimed, err := t.store.ClaimJobForLaunch(ctx, job.JobID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrDuplicateLaunch
	}

	fields := url.Values{}
	fields.Set("callback_url", t.cfg.CallbackURL)
	fields.Set("custom[job_id]", strconv.FormatInt(job.JobID, 10))

	result, err := t.api.LaunchProject(ctx, job.Reference, fields)
	if err != nil {
		t.logger.Error().Err(err).Int64("job_id", job.JobID).Int64("reference", job.Reference).Msg("launch project failed")
		if markErr := t.store.MarkJobRejected(ctx, job.JobID, rejectedMessage); markErr != nil {
			return markErr
		}
		return err
	}

	if result.Status == mwapi.LaunchStatusStarted {
		message := fmt.Sprintf("Job has been successfully submitted for translation. Project ID is: %d", job.Reference)
		return t.store.MarkJobSubmitted(ctx, job.JobID, message)
	}

	return t.store.MarkJobRejected(ctx, job.JobID, rejectedMessage)
}

// GetProject reads the remote project. Returns nil without error when the job
// has not been submitted yet.
func (t *Translator) GetProject(ctx context.Context, job *db.TranslationJob) (*mwapi.Project, error) {
	if !job.HasReference() {
		return nil, nil
	}
	return t.api.GetProject(ctx, job.Reference)
}

// GetProjectProgress reads remote progress percentages. Returns nil without
// error when the job has not been submitted yet.
func (t *Translator) GetProjectProgress(ctx context.Context, job *db.TranslationJob) (*mwapi.Progress, error) {
	if !job.HasReference() {
		return nil, nil
	}
	return t.api.GetProgress(ctx, job.Reference)
}

// RetrieveTranslation pulls the finished package, parses every document in it
// and applies the unflattened translations to the job.
func (t *Translator) RetrieveTranslation(ctx context.Context, job *db.TranslationJob) error {
	if !job.HasReference() {
		return ErrNoReference
	}

	payload, err := t.api.DownloadProject(ctx, job.Reference)
	if err != nil {
		t.logger.Error().Err(err).Int64("job_id", job.JobID).Msg("download project failed")
		return err
	}

	files, err := content.Receive(payload)
	if err != nil {
		if markErr := t.store.MarkJobRejected(ctx, job.JobID, parseFailureMessage); markErr != nil {
			return markErr
		}
		return err
	}

	for _, file := range files {
		tree := content.Unflatten(file.Fields)
		raw, err := content.EncodeTree(tree)
		if err != nil {
			return err
		}
		if err := t.store.MergeTranslatedContent(ctx, job.JobID, raw); err != nil {
			return err
		}

		message := "The translation has been received."
		if file.Name != "" {
			message = fmt.Sprintf("The translation for file %s has been received.", file.Name)
		}
		if err := t.store.AddJobMessage(ctx, job.JobID, db.MessageKindStatus, message); err != nil {
			return err
		}
	}

	return nil
}

// AccountDetails returns the remote account, or nil when the call fails.
// Remote errors are logged and swallowed so configuration screens degrade
// gracefully.
func (t *Translator) AccountDetails(ctx context.Context) *mwapi.Account {
	account, err := t.api.GetAccount(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("account details unavailable")
		return nil
	}
	return account
}
