package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"horse.fit/mw-bridge/internal/db"
)

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandleCreateJob_CreatesUnsubmittedJob(t *testing.T) {
	t.Parallel()

	store := newFakeJobStore()
	server := newTestServer(store, &fakeTranslationService{canTranslate: true})

	body := `{
		"source_language": "en",
		"target_language": "de",
		"content": {"1": {"title": {"0": {"value": {"#text": "Hello"}}}}}
	}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/jobs", body)
	if err := server.handleCreateJob(c); err != nil {
		t.Fatalf("handleCreateJob returned error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(store.createCalls) != 1 {
		t.Fatalf("expected one create call, got %d", len(store.createCalls))
	}
	if store.createCalls[0].SourceLanguage != "en" || store.createCalls[0].TargetLanguage != "de" {
		t.Fatalf("unexpected create params: %+v", store.createCalls[0])
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Job jobView `json:"job"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Data.Job.State != db.JobStateUnsubmitted {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
}

func TestHandleCreateJob_RejectsUnsupportedLanguagePair(t *testing.T) {
	t.Parallel()

	store := newFakeJobStore()
	server := newTestServer(store, &fakeTranslationService{canTranslate: false})

	body := `{"source_language":"en","target_language":"tlh","content":{"1":{"#text":"x"}}}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/jobs", body)
	if err := server.handleCreateJob(c); err != nil {
		t.Fatalf("handleCreateJob returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if len(store.createCalls) != 0 {
		t.Fatal("an unsupported pair must not create a job")
	}
}

func TestHandleCreateJob_MissingFieldsFailValidation(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeJobStore(), &fakeTranslationService{canTranslate: true})

	c, rec := newJSONContext(http.MethodPost, "/api/v1/jobs", `{"target_language":""}`)
	if err := server.handleCreateJob(c); err != nil {
		t.Fatalf("handleCreateJob returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "target_language") || !strings.Contains(rec.Body.String(), "content") {
		t.Fatalf("expected field errors in response, got %s", rec.Body.String())
	}
}

func TestHandleJobDetail_NotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeJobStore(), &fakeTranslationService{})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/jobs/missing", "")
	c.SetParamNames("job_uuid")
	c.SetParamValues("missing")
	if err := server.handleJobDetail(c); err != nil {
		t.Fatalf("handleJobDetail returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
}

func TestHandleJobDetail_ReturnsJobAndMessages(t *testing.T) {
	t.Parallel()

	store := newFakeJobStore()
	store.addJob(&db.TranslationJob{
		JobID:   13,
		JobUUID: "u-13",
		State:   db.JobStateActive,
		Content: json.RawMessage(`{}`),
	})
	store.messages = append(store.messages, "Job has been successfully submitted for translation. Project ID is: 700")
	server := newTestServer(store, &fakeTranslationService{})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/jobs/u-13", "")
	c.SetParamNames("job_uuid")
	c.SetParamValues("u-13")
	if err := server.handleJobDetail(c); err != nil {
		t.Fatalf("handleJobDetail returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Project ID is: 700") {
		t.Fatalf("expected stored message in response, got %s", rec.Body.String())
	}
}

func TestHandleLanguages_ListsMapping(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeJobStore(), &fakeTranslationService{})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/languages", "")
	if err := server.handleLanguages(c); err != nil {
		t.Fatalf("handleLanguages returned error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "en-US") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}
