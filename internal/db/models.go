package db

import (
	"encoding/json"
	"time"
)

// Job lifecycle states. A job moves unsubmitted -> quoted -> submitting ->
// submitted -> active -> finished. Rejected is absorbing and reachable from
// unsubmitted, quoted or submitting. Submitting is the transient claim state
// that guards against a duplicate launch.
const (
	JobStateUnsubmitted = "unsubmitted"
	JobStateQuoted      = "quoted"
	JobStateSubmitting  = "submitting"
	JobStateSubmitted   = "submitted"
	JobStateActive      = "active"
	JobStateFinished    = "finished"
	JobStateRejected    = "rejected"
)

// Message kinds in the per-job message log.
const (
	MessageKindStatus = "status"
	MessageKindError  = "error"
)

// TranslationJob maps mw.translation_jobs.
type TranslationJob struct {
	JobID               int64           `gorm:"column:job_id;primaryKey;autoIncrement"`
	JobUUID             string          `gorm:"column:job_uuid;type:uuid;not null;unique"`
	SourceLanguage      string          `gorm:"column:source_language;type:text;not null"`
	TargetLanguage      string          `gorm:"column:target_language;type:text;not null"`
	Reference           int64           `gorm:"column:reference;type:bigint;not null;default:0"`
	State               string          `gorm:"column:state;type:text;not null;default:unsubmitted"`
	Content             json.RawMessage `gorm:"column:content;type:jsonb;not null"`
	TranslatedContent   json.RawMessage `gorm:"column:translated_content;type:jsonb"`
	SourceFileFormat    string          `gorm:"column:source_file_format;type:text;not null;default:json"`
	MultipleSourceFiles bool            `gorm:"column:multiple_source_files;type:boolean;not null;default:false"`
	WordCount           *int            `gorm:"column:word_count;type:integer"`
	PriceAmount         *float64        `gorm:"column:price_amount;type:numeric"`
	PriceCurrency       *string         `gorm:"column:price_currency;type:text"`
	DeliveryAt          *time.Time      `gorm:"column:delivery_at;type:timestamptz"`
	CreatedAt           time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (TranslationJob) TableName() string { return "mw.translation_jobs" }

// HasReference reports whether a remote project id has been assigned.
func (j *TranslationJob) HasReference() bool {
	return j != nil && j.Reference > 0
}

// JobMessage maps mw.job_messages.
type JobMessage struct {
	MessageID int64     `gorm:"column:message_id;primaryKey;autoIncrement"`
	JobID     int64     `gorm:"column:job_id;type:bigint;not null"`
	Kind      string    `gorm:"column:kind;type:text;not null;default:status"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (JobMessage) TableName() string { return "mw.job_messages" }

func autoMigrateModels() []any {
	return []any{
		&TranslationJob{},
		&JobMessage{},
	}
}
