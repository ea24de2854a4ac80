package mwapi

import (
	"encoding/json"
	"strings"
	"time"
)

// Language is one entry of the remote supported-language list.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Account describes the authenticated API client owner.
type Account struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Price is a quoted amount in a single currency.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Quote is the response of a project submission. Its id doubles as the remote
// project identifier once the quote is accepted.
type Quote struct {
	ID             int64             `json:"id"`
	Status         string            `json:"status"`
	SourceLanguage string            `json:"source_language"`
	TargetLangs    []string          `json:"target_languages"`
	WordCount      int               `json:"word_count"`
	Price          *Price            `json:"price"`
	DeliveryAt     int64             `json:"delivery_at"`
	AllowInvoicing bool              `json:"allow_invoicing"`
	Custom         map[string]string `json:"custom"`
}

// Delivery converts the quoted delivery timestamp to a time value.
func (q *Quote) Delivery() *time.Time {
	if q == nil || q.DeliveryAt <= 0 {
		return nil
	}
	t := time.Unix(q.DeliveryAt, 0).UTC()
	return &t
}

// Project is the remote representation of a submitted job.
type Project struct {
	ID             int64             `json:"id"`
	Status         string            `json:"status"`
	SourceLanguage string            `json:"source_language"`
	TargetLangs    []string          `json:"target_languages"`
	WordCount      int               `json:"word_count"`
	Price          *Price            `json:"price"`
	DeliveryAt     int64             `json:"delivery_at"`
	Custom         map[string]string `json:"custom"`
}

// Progress carries per-stage completion percentages for a project.
type Progress struct {
	Translation  float64 `json:"translation"`
	Proofreading float64 `json:"proofreading"`
	Total        float64 `json:"total"`
}

// LaunchResult is the response of a project launch. A "started" status means
// the project has been accepted for translation.
type LaunchResult struct {
	ProjectID int64  `json:"project_id"`
	Status    string `json:"status"`
}

const LaunchStatusStarted = "started"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
}

// apiError is one error object from the remote envelope. The service sends
// either {"code": ..., "message": ...} objects or bare strings.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Code = ""
		e.Message = s
		return nil
	}

	type plain apiError
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = apiError(obj)
	return nil
}

func (e apiError) flatten() string {
	code := strings.TrimSpace(e.Code)
	message := strings.TrimSpace(e.Message)
	switch {
	case message == "":
		return code
	case code == "" || code == message:
		return message
	default:
		return code + ": " + message
	}
}

type errorEnvelope struct {
	Error  *apiError  `json:"error"`
	Errors []apiError `json:"errors"`
}

func (env *errorEnvelope) hasError() bool {
	return env != nil && (env.Error != nil || len(env.Errors) > 0)
}

func (env *errorEnvelope) flatten() string {
	if env == nil {
		return ""
	}
	if len(env.Errors) > 0 {
		return env.Errors[0].flatten()
	}
	if env.Error != nil {
		return env.Error.flatten()
	}
	return ""
}

// decodeErrorEnvelope reports whether the body is a JSON object carrying an
// in-band error. Non-JSON bodies (for example ZIP bytes) never match.
func decodeErrorEnvelope(body []byte) (*errorEnvelope, bool) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	return &env, true
}
