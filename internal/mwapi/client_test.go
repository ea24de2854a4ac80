package mwapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mw-bridge/internal/globaltime"
)

type recordedRequest struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

type fakeMotaWord struct {
	server         *httptest.Server
	tokenExchanges int
	tokenResponse  string
	requests       []recordedRequest
	respond        func(w http.ResponseWriter, r *recordedRequest) bool
}

func newFakeMotaWord(t *testing.T) *fakeMotaWord {
	t.Helper()

	fake := &fakeMotaWord{
		tokenResponse: `{"access_token":"tok-1","expires_in":3600}`,
	}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   body,
		}

		if strings.HasSuffix(r.URL.Path, "/token") {
			fake.tokenExchanges++
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(fake.tokenResponse))
			return
		}

		fake.requests = append(fake.requests, rec)
		if fake.respond != nil && fake.respond(w, &rec) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func newTestClient(fake *fakeMotaWord) *Client {
	return New(Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      fake.server.URL,
		Timeout:      5 * time.Second,
	}, zerolog.Nop())
}

func TestClient_TokenIsCachedAcrossRequests(t *testing.T) {
	fake := newFakeMotaWord(t)
	client := newTestClient(fake)

	ctx := context.Background()
	if _, err := client.GetAccount(ctx); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := client.GetAccount(ctx); err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	if fake.tokenExchanges != 1 {
		t.Fatalf("expected one token exchange, got %d", fake.tokenExchanges)
	}
	for _, req := range fake.requests {
		if req.query.Get("access_token") != "tok-1" {
			t.Fatalf("expected access_token query param, got %v", req.query)
		}
	}
}

func TestClient_ExpiredTokenTriggersExactlyOneNewExchange(t *testing.T) {
	fake := newFakeMotaWord(t)
	client := newTestClient(fake)

	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)
	defer globaltime.ResetTime()

	ctx := context.Background()
	if _, err := client.GetAccount(ctx); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	fake.tokenResponse = `{"access_token":"tok-2","expires_in":3600}`
	globaltime.SetMockTime(start.Add(2 * time.Hour))

	if _, err := client.GetAccount(ctx); err != nil {
		t.Fatalf("request after expiry failed: %v", err)
	}
	if fake.tokenExchanges != 2 {
		t.Fatalf("expected two token exchanges, got %d", fake.tokenExchanges)
	}
	last := fake.requests[len(fake.requests)-1]
	if last.query.Get("access_token") != "tok-2" {
		t.Fatalf("expected refreshed token in query, got %v", last.query)
	}
}

func TestClient_TokenExchangeUsesBasicAuthAndClientCredentials(t *testing.T) {
	fake := newFakeMotaWord(t)
	client := newTestClient(fake)

	if err := client.RefreshToken(context.Background()); err != nil {
		t.Fatalf("RefreshToken returned error: %v", err)
	}
	if fake.tokenExchanges != 1 {
		t.Fatalf("expected one token exchange, got %d", fake.tokenExchanges)
	}
}

func TestClient_TokenErrorBecomesAuthError(t *testing.T) {
	fake := newFakeMotaWord(t)
	fake.tokenResponse = `{"error":"invalid_client"}`
	client := newTestClient(fake)

	_, err := client.GetAccount(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !strings.Contains(authErr.Message, "invalid_client") {
		t.Fatalf("unexpected auth error message: %q", authErr.Message)
	}
}

func TestClient_ErrorEnvelopeIsFlattenedIntoRemoteError(t *testing.T) {
	fake := newFakeMotaWord(t)
	fake.respond = func(w http.ResponseWriter, _ *recordedRequest) bool {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"X1","message":"bad request"}}`))
		return true
	}
	client := newTestClient(fake)

	_, err := client.GetProject(context.Background(), 99)
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", remoteErr.StatusCode)
	}
	if remoteErr.Message != "X1: bad request" {
		t.Fatalf("unexpected flattened message: %q", remoteErr.Message)
	}
}

func TestClient_InBandErrorOn200IsAnError(t *testing.T) {
	fake := newFakeMotaWord(t)
	fake.respond = func(w http.ResponseWriter, _ *recordedRequest) bool {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":["quota exceeded"]}`))
		return true
	}
	client := newTestClient(fake)

	_, err := client.LaunchProject(context.Background(), 5, nil)
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Message != "quota exceeded" {
		t.Fatalf("unexpected message: %q", remoteErr.Message)
	}
}

func TestClient_SubmitProjectUploadsFileReferences(t *testing.T) {
	fake := newFakeMotaWord(t)

	docPath := filepath.Join(t.TempDir(), "doc-0")
	if err := os.WriteFile(docPath, []byte(`{"1][body":"Hello"}`), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}

	fake.respond = func(w http.ResponseWriter, r *recordedRequest) bool {
		if r.method != http.MethodPost || !strings.HasSuffix(r.path, "/projects") {
			return false
		}
		contentType := r.header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "multipart/form-data") {
			t.Errorf("expected multipart submission, got %q", contentType)
		}
		body := string(r.body)
		if !strings.Contains(body, `filename="My Item.json"`) {
			t.Errorf("expected filename from @ reference, body:\n%s", body)
		}
		if !strings.Contains(body, `{"1][body":"Hello"}`) {
			t.Errorf("expected document content in body:\n%s", body)
		}
		if !strings.Contains(body, `name="detailed"`) {
			t.Errorf("expected detailed=true injection, body:\n%s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":123,"word_count":2,"price":{"amount":1.5,"currency":"USD"}}`))
		return true
	}

	client := newTestClient(fake)
	fields := url.Values{}
	fields.Set("source_language", "en-US")
	fields.Add("target_languages[]", "de-DE")
	fields.Set("documents[0]", "@"+docPath+";filename=My Item.json")

	quote, err := client.SubmitProject(context.Background(), fields)
	if err != nil {
		t.Fatalf("SubmitProject returned error: %v", err)
	}
	if quote.ID != 123 || quote.WordCount != 2 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if quote.Price == nil || quote.Price.Currency != "USD" {
		t.Fatalf("unexpected quote price: %+v", quote.Price)
	}
}

func TestClient_DownloadProjectReturnsRawBytes(t *testing.T) {
	fake := newFakeMotaWord(t)
	zipMagic := []byte{'P', 'K', 0x03, 0x04, 0x00, 0x00}
	fake.respond = func(w http.ResponseWriter, r *recordedRequest) bool {
		if !strings.HasSuffix(r.path, "/package") {
			return false
		}
		if r.query.Get("async") != "0" {
			t.Errorf("expected async=0 query, got %v", r.query)
		}
		if accept := r.header.Get("Accept"); accept != "*/*" {
			t.Errorf("expected Accept */*, got %q", accept)
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(zipMagic)
		return true
	}

	client := newTestClient(fake)
	payload, err := client.DownloadProject(context.Background(), 77)
	if err != nil {
		t.Fatalf("DownloadProject returned error: %v", err)
	}
	if string(payload) != string(zipMagic) {
		t.Fatalf("payload altered in transit: %v", payload)
	}
}

func TestPrepareFields_ExpandsListsAndInjectsDetailed(t *testing.T) {
	t.Parallel()

	fields := url.Values{}
	fields.Add("target_languages", "de-DE")
	fields.Add("target_languages", "fr-FR")
	fields.Set("source_language", "en-US")

	prepared := prepareFields(fields)
	if got := prepared["target_languages[]"]; len(got) != 2 {
		t.Fatalf("expected multi-value key to gain [] suffix, got %v", prepared)
	}
	if prepared.Get("source_language") != "en-US" {
		t.Fatalf("single values must keep their key: %v", prepared)
	}
	if prepared.Get("detailed") != "true" {
		t.Fatalf("expected detailed=true, got %v", prepared)
	}

	explicit := url.Values{}
	explicit.Set("detailed", "false")
	if got := prepareFields(explicit).Get("detailed"); got != "false" {
		t.Fatalf("caller-set detailed must win, got %q", got)
	}
}

func TestAPIError_FlattenFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"code and message", `{"error":{"code":"X1","message":"broken"}}`, "X1: broken"},
		{"message only", `{"error":{"message":"broken"}}`, "broken"},
		{"code only", `{"error":{"code":"X1"}}`, "X1"},
		{"string error", `{"error":"broken"}`, "broken"},
		{"code equals message", `{"error":{"code":"broken","message":"broken"}}`, "broken"},
		{"errors list", `{"errors":[{"code":"A","message":"first"},{"code":"B","message":"second"}]}`, "A: first"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var env errorEnvelope
			if err := json.Unmarshal([]byte(tc.raw), &env); err != nil {
				t.Fatalf("unmarshal envelope: %v", err)
			}
			if got := env.flatten(); got != tc.want {
				t.Fatalf("flatten: got %q want %q", got, tc.want)
			}
		})
	}
}
