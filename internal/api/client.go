package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Authenticator covers the auth endpoints used by the session store.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (TokenResponse, error)
	Register(ctx context.Context, email, password, fullName string) (TokenResponse, error)
	Logout(ctx context.Context, token string) error
}

// JobLister fetches paginated job lists.
type JobLister interface {
	ListJobs(ctx context.Context, query JobQuery) (JobList, error)
}

// JobMutator issues one-shot mutating job requests.
type JobMutator interface {
	CancelJob(ctx context.Context, id string) error
	DeleteJob(ctx context.Context, id string) error
	RegenerateOutput(ctx context.Context, outputID string, preferences map[string]any) (RegenerateResponse, error)
}

// OutputFetcher retrieves generated outputs for a job.
type OutputFetcher interface {
	JobOutputs(ctx context.Context, jobID string) (JobOutputs, error)
}

// Ensure Client implements the narrow interfaces at compile time.
var (
	_ Authenticator = (*Client)(nil)
	_ JobLister     = (*Client)(nil)
	_ JobMutator    = (*Client)(nil)
	_ OutputFetcher = (*Client)(nil)
)

// Client talks to the repurposing HTTP API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	tokens         TokenSource
	onUnauthorized func()
}

const (
	defaultBaseURL   = "http://127.0.0.1:8000/api/v1"
	defaultUserAgent = "recast/0.1"
	requestTimeout   = 30 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource attaches a bearer token to every request.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// OnUnauthorized registers a hook fired whenever the API answers 401.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient builds a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var payload TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &payload); err != nil {
		return TokenResponse{}, err
	}
	return payload, nil
}

// Register creates an account and returns its access token.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (TokenResponse, error) {
	body := map[string]string{"email": email, "password": password, "full_name": fullName}
	var payload TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", body, &payload); err != nil {
		return TokenResponse{}, err
	}
	return payload, nil
}

// Logout notifies the server that token is no longer in use. The token is
// passed explicitly because the local session is cleared before this call.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodPost, &url.URL{Path: "/auth/logout"}, nil, "")
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}
	return c.send(req, nil)
}

// Me returns the user that owns the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var payload User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &payload); err != nil {
		return User{}, err
	}
	return payload, nil
}

// ListJobs retrieves one page of the caller's jobs.
func (c *Client) ListJobs(ctx context.Context, query JobQuery) (JobList, error) {
	query = query.Normalized()
	values := url.Values{}
	values.Set("page", strconv.Itoa(query.Page))
	values.Set("limit", strconv.Itoa(query.Limit))
	if status := strings.TrimSpace(string(query.Status)); status != "" {
		values.Set("status", status)
	}
	rel := &url.URL{Path: "/jobs", RawQuery: values.Encode()}
	var payload JobList
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return JobList{}, err
	}
	if payload.Items == nil {
		payload.Items = []Job{}
	}
	return payload, nil
}

// GetJob retrieves a single job.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	path, err := idPath("/jobs/%s", id)
	if err != nil {
		return Job{}, err
	}
	var payload Job
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return Job{}, err
	}
	return payload, nil
}

// CancelJob asks the server to cancel a pending or processing job.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	path, err := idPath("/jobs/%s/cancel", id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// DeleteJob permanently removes a job.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	path, err := idPath("/jobs/%s", id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// JobOutputs retrieves every platform output for a job.
func (c *Client) JobOutputs(ctx context.Context, jobID string) (JobOutputs, error) {
	path, err := idPath("/outputs/%s/all", jobID)
	if err != nil {
		return JobOutputs{}, err
	}
	var payload JobOutputs
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return JobOutputs{}, err
	}
	return payload, nil
}

// RegenerateOutput queues a new generation for a single output.
func (c *Client) RegenerateOutput(ctx context.Context, outputID string, preferences map[string]any) (RegenerateResponse, error) {
	path, err := idPath("/outputs/%s/regenerate", outputID)
	if err != nil {
		return RegenerateResponse{}, err
	}
	if preferences == nil {
		preferences = map[string]any{}
	}
	body := map[string]any{"preferences": preferences}
	var payload RegenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &payload); err != nil {
		return RegenerateResponse{}, err
	}
	return payload, nil
}

// Analytics retrieves the caller's usage summary.
func (c *Client) Analytics(ctx context.Context) (Analytics, error) {
	var payload Analytics
	if err := c.doJSON(ctx, http.MethodGet, "/analytics/", nil, &payload); err != nil {
		return Analytics{}, err
	}
	return payload, nil
}

// UploadContent sends a document for repurposing and returns the created job.
func (c *Client) UploadContent(ctx context.Context, upload UploadRequest) (UploadResponse, error) {
	if strings.TrimSpace(upload.FileName) == "" {
		return UploadResponse{}, fmt.Errorf("file name required")
	}
	platforms, err := json.Marshal(upload.Platforms)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("encode platforms: %w", err)
	}
	prefs := upload.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	preferences, err := json.Marshal(prefs)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("encode preferences: %w", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", upload.FileName)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(upload.File); err != nil {
		return UploadResponse{}, fmt.Errorf("write form file: %w", err)
	}
	if title := strings.TrimSpace(upload.Title); title != "" {
		if err := form.WriteField("title", title); err != nil {
			return UploadResponse{}, fmt.Errorf("write title: %w", err)
		}
	}
	if err := form.WriteField("platforms", string(platforms)); err != nil {
		return UploadResponse{}, fmt.Errorf("write platforms: %w", err)
	}
	if err := form.WriteField("preferences", string(preferences)); err != nil {
		return UploadResponse{}, fmt.Errorf("write preferences: %w", err)
	}
	if err := form.Close(); err != nil {
		return UploadResponse{}, fmt.Errorf("close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, &url.URL{Path: "/content/upload"}, &buf, form.FormDataContentType())
	if err != nil {
		return UploadResponse{}, err
	}
	var payload UploadResponse
	if err := c.send(req, &payload); err != nil {
		return UploadResponse{}, err
	}
	return payload, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, rel, reader, contentType)
	if err != nil {
		return err
	}
	return c.send(req, dest)
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType string) (*http.Request, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	reqURL := c.resolve(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) send(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		apiErr := &Error{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(body),
		}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// resolve joins rel onto the base path so "/jobs" under "/api/v1" becomes
// "/api/v1/jobs".
func (c *Client) resolve(rel *url.URL) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	u.RawQuery = rel.RawQuery
	return &u
}

func idPath(format, id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("invalid id %q: %w", id, err)
	}
	return fmt.Sprintf(format, parsed.String()), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
