package mwapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"horse.fit/mw-bridge/internal/globaltime"
)

const (
	productionBaseURL = "https://api.motaword.com"
	sandboxBaseURL    = "https://sandbox.motaword.com"
	apiVersion        = "v0"

	defaultTimeout = 15 * time.Minute
)

// Options configures a Client.
type Options struct {
	ClientID     string
	ClientSecret string
	UseSandbox   bool
	Timeout      time.Duration
	UserAgent    string

	// BaseURL overrides the environment-selected host. Used by tests.
	BaseURL string
}

// Client talks to the MotaWord API. It owns an access-token cache keyed by the
// configured client id and refreshes it lazily on expiry.
type Client struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	logger       zerolog.Logger

	mu    sync.Mutex
	token cachedToken
}

type cachedToken struct {
	value     string
	clientID  string
	expiresAt time.Time
}

func New(opts Options, logger zerolog.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		if opts.UseSandbox {
			base = sandboxBaseURL
		} else {
			base = productionBaseURL
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = "mw-bridge"
	}

	httpClient := resty.New().
		SetBaseURL(base + "/" + apiVersion).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &Client{
		http:         httpClient,
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		logger:       logger,
	}
}

func (c *Client) GetLanguages(ctx context.Context) ([]Language, error) {
	var languages []Language
	if err := c.getJSON(ctx, "languages", &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var account Account
	if err := c.getJSON(ctx, "me", &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) GetProject(ctx context.Context, projectID int64) (*Project, error) {
	var project Project
	if err := c.getJSON(ctx, "projects/"+strconv.FormatInt(projectID, 10), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) GetProgress(ctx context.Context, projectID int64) (*Progress, error) {
	var progress Progress
	if err := c.getJSON(ctx, "projects/"+strconv.FormatInt(projectID, 10)+"/progress", &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// SubmitProject creates a remote project from the given fields and returns its
// quote. Fields are sent as multipart form data because document fields carry
// file references.
func (c *Client) SubmitProject(ctx context.Context, fields url.Values) (*Quote, error) {
	body, err := c.do(ctx, http.MethodPost, "projects", fields, true, nil)
	if err != nil {
		return nil, err
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	return &quote, nil
}

// LaunchProject starts translation on a previously submitted project.
func (c *Client) LaunchProject(ctx context.Context, projectID int64, fields url.Values) (*LaunchResult, error) {
	path := "projects/" + strconv.FormatInt(projectID, 10) + "/launch"
	body, err := c.do(ctx, http.MethodPost, path, fields, false, nil)
	if err != nil {
		return nil, err
	}

	var result LaunchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode launch response: %w", err)
	}
	return &result, nil
}

// DownloadProject requests the finished translation package. The server may
// reply with JSON, XML or a binary ZIP archive, so the raw body is returned
// for the caller to classify.
func (c *Client) DownloadProject(ctx context.Context, projectID int64) ([]byte, error) {
	path := "projects/" + strconv.FormatInt(projectID, 10) + "/package"
	return c.do(ctx, http.MethodPost, path, nil, false, map[string]string{
		"Accept": "*/*",
	}, queryParam{"async", "0"})
}

// RefreshToken discards the cached access token and performs a fresh exchange.
func (c *Client) RefreshToken(ctx context.Context) error {
	_, err := c.accessToken(ctx, true)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, false, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type queryParam struct {
	key   string
	value string
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	fields url.Values,
	upload bool,
	headers map[string]string,
	query ...queryParam,
) ([]byte, error) {
	token, err := c.accessToken(ctx, false)
	if err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("access_token", token)
	for _, q := range query {
		req.SetQueryParam(q.key, q.value)
	}
	for key, value := range headers {
		req.SetHeader(key, value)
	}

	if method != http.MethodGet && method != http.MethodDelete {
		prepared := prepareFields(fields)
		if upload {
			parts, err := multipartParts(prepared)
			if err != nil {
				return nil, err
			}
			req.SetMultipartFields(parts...)
		} else {
			req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
			req.SetFormDataFromValues(prepared)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("send motaword request %s %s: %w", method, path, err)
	}

	body := resp.Body()
	status := resp.StatusCode()
	if status != http.StatusOK && status != http.StatusCreated {
		message := ""
		if env, ok := decodeErrorEnvelope(body); ok {
			message = env.flatten()
		}
		c.logger.Error().Int("status", status).Str("path", path).Str("error", message).Msg("motaword request failed")
		return nil, &RemoteError{StatusCode: status, Message: message}
	}

	// A 2xx body can still carry an in-band error envelope.
	if env, ok := decodeErrorEnvelope(body); ok && env.hasError() {
		return nil, &RemoteError{StatusCode: status, Message: env.flatten()}
	}

	return body, nil
}

// prepareFields flattens list values into repeated "key[]" entries and injects
// detailed=true unless the caller already set it.
func prepareFields(fields url.Values) url.Values {
	prepared := url.Values{}
	for key, values := range fields {
		if len(values) > 1 && !strings.HasSuffix(key, "[]") {
			for _, value := range values {
				prepared.Add(key+"[]", value)
			}
			continue
		}
		for _, value := range values {
			prepared.Add(key, value)
		}
	}

	if !prepared.Has("detailed") {
		prepared.Set("detailed", "true")
	}

	return prepared
}

// multipartParts renders fields as multipart parts. A value prefixed with "@"
// is a file reference, optionally carrying an explicit name after a
// ";filename=" suffix; its content is read from local storage.
func multipartParts(fields url.Values) ([]*resty.MultipartField, error) {
	parts := make([]*resty.MultipartField, 0, len(fields))
	for key, values := range fields {
		for _, value := range values {
			if !strings.HasPrefix(value, "@") {
				parts = append(parts, &resty.MultipartField{
					Param:  key,
					Reader: strings.NewReader(value),
				})
				continue
			}

			path, fileName := parseFileRef(value)
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read upload document %s: %w", path, err)
			}
			parts = append(parts, &resty.MultipartField{
				Param:       key,
				FileName:    fileName,
				ContentType: "application/octet-stream",
				Reader:      strings.NewReader(string(content)),
			})
		}
	}
	return parts, nil
}

func parseFileRef(value string) (path, fileName string) {
	path = strings.TrimPrefix(value, "@")
	if idx := strings.Index(path, ";filename="); idx >= 0 {
		fileName = path[idx+len(";filename="):]
		path = path[:idx]
	}
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	return path, fileName
}

func (c *Client) accessToken(ctx context.Context, forceNew bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := globaltime.Now()
	if !forceNew &&
		c.token.value != "" &&
		c.token.clientID == c.clientID &&
		now.Before(c.token.expiresAt) {
		c.logger.Debug().Msg("using existing access token")
		return c.token.value, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetQueryParam("grant_type", "client_credentials").
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"grant_type": "client_credentials"}).
		Post("token")
	if err != nil {
		return "", &AuthError{Message: err.Error()}
	}

	if resp.StatusCode() != http.StatusOK {
		message := ""
		if env, ok := decodeErrorEnvelope(resp.Body()); ok {
			message = env.flatten()
		}
		c.logger.Error().Int("status", resp.StatusCode()).Str("error", message).Msg("token exchange failed")
		return "", &AuthError{Message: message}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &AuthError{Message: fmt.Sprintf("decode token response: %v", err)}
	}
	if parsed.Error != "" || parsed.AccessToken == "" {
		return "", &AuthError{Message: parsed.Error}
	}

	c.token = cachedToken{
		value:     parsed.AccessToken,
		clientID:  c.clientID,
		expiresAt: now.Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}

	return c.token.value, nil
}
