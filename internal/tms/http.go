package tms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tmsbridge/internal/config"
	"tmsbridge/internal/services"
)

const maxErrorBody = 2 << 10

// Observer receives one callback per completed HTTP exchange.
type Observer interface {
	ObserveTMSRequest(operation, outcome string, duration time.Duration)
}

// HTTPError reports a non-2xx TMS response.
type HTTPError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tms %s returned %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("tms %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Unwrap exposes the taxonomy marker matching the status code.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return services.ErrConflict
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusGatewayTimeout:
		return services.ErrTimeout
	case e.StatusCode >= http.StatusInternalServerError, e.StatusCode == http.StatusTooManyRequests:
		return services.ErrTransient
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return services.ErrValidation
	default:
		return nil
	}
}

// HTTPClient implements Client over the TMS REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	projectID  string
	workflowID string
	userAgent  string
	httpClient *http.Client
	observer   Observer
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithProject sets the project and workflow sent with uploads.
func WithProject(projectID, workflowID string) Option {
	return func(c *HTTPClient) {
		c.projectID = strings.TrimSpace(projectID)
		c.workflowID = strings.TrimSpace(workflowID)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *HTTPClient) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithObserver reports request latency and outcome, typically to metrics.
func WithObserver(observer Observer) Option {
	return func(c *HTTPClient) {
		c.observer = observer
	}
}

// NewHTTPClient creates a client for baseURL authenticated with token.
func NewHTTPClient(baseURL, token string, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tms base url required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse tms base url: %w", err)
	}
	client := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(token),
		userAgent:  "tmsbridge",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds an HTTPClient from the [tms] section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*HTTPClient, error) {
	if cfg == nil {
		return nil, errors.New("tms client: config is required")
	}
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.TMSTimeout()}),
		WithProject(cfg.TMS.ProjectID, cfg.TMS.WorkflowID),
		WithUserAgent(cfg.TMS.UserAgent),
	}
	return NewHTTPClient(cfg.TMS.BaseURL, cfg.TMS.APIToken, append(base, opts...)...)
}

type uploadRequest struct {
	Title      string `json:"title,omitempty"`
	Content    []byte `json:"content"`
	Locale     string `json:"locale,omitempty"`
	JobID      string `json:"job_id,omitempty"`
	RevisionID string `json:"revision_id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) documentRequest(doc Document) uploadRequest {
	return uploadRequest{
		Title:      doc.Title,
		Content:    doc.Content,
		Locale:     doc.SourceLocale,
		JobID:      doc.JobID,
		RevisionID: doc.RevisionID,
		ProjectID:  c.projectID,
		WorkflowID: c.workflowID,
	}
}

// UploadDocument creates a TMS document and returns its id.
func (c *HTTPClient) UploadDocument(ctx context.Context, doc Document) (string, error) {
	var out uploadResponse
	if err := c.doJSON(ctx, OpUpload, http.MethodPost, "/api/documents", nil, c.documentRequest(doc), &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", fmt.Errorf("tms %s: response carried no document id", OpUpload)
	}
	return out.ID, nil
}

// GetDocumentStatus reports whether the document import finished.
func (c *HTTPClient) GetDocumentStatus(ctx context.Context, documentID string) (Status, error) {
	var out Status
	err := c.doJSON(ctx, OpDocumentStatus, http.MethodGet, documentPath(documentID, "status"), nil, nil, &out)
	return out, err
}

// AddTarget requests a translation of the document into locale.
func (c *HTTPClient) AddTarget(ctx context.Context, documentID, locale string) error {
	body := map[string]string{"locale": locale}
	return c.doJSON(ctx, OpAddTarget, http.MethodPost, documentPath(documentID, "translation"), nil, body, nil)
}

// GetTargetStatus reports one locale's progress and whether all of its
// phases are complete.
func (c *HTTPClient) GetTargetStatus(ctx context.Context, documentID, locale string) (Status, error) {
	var out Status
	err := c.doJSON(ctx, OpTargetStatus, http.MethodGet, documentPath(documentID, "translation", locale), nil, nil, &out)
	return out, err
}

// DownloadTarget returns the translated payload for locale.
func (c *HTTPClient) DownloadTarget(ctx context.Context, documentID, locale string) ([]byte, error) {
	query := url.Values{}
	query.Set("locale_code", locale)
	resp, err := c.do(ctx, OpDownload, http.MethodGet, documentPath(documentID, "content"), query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tms %s body: %w", OpDownload, err)
	}
	return payload, nil
}

// UpdateDocument replaces the source content of an existing document.
func (c *HTTPClient) UpdateDocument(ctx context.Context, documentID string, doc Document) error {
	return c.doJSON(ctx, OpUpdate, http.MethodPatch, documentPath(documentID), nil, c.documentRequest(doc), nil)
}

// CancelDocument cancels the document and all of its targets.
func (c *HTTPClient) CancelDocument(ctx context.Context, documentID string) error {
	return c.doJSON(ctx, OpCancel, http.MethodPost, documentPath(documentID, "cancel"), nil, nil, nil)
}

func documentPath(documentID string, parts ...string) string {
	segments := []string{"/api/documents", url.PathEscape(documentID)}
	for _, part := range parts {
		segments = append(segments, url.PathEscape(part))
	}
	return strings.Join(segments, "/")
}

func (c *HTTPClient) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode tms %s request: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}
	resp, err := c.do(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tms %s response: %w", op, err)
	}
	return nil
}

// do executes a request and returns the response only for 2xx statuses.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build tms %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.observe(op, "error", latency)
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: tms %s (latency=%v): %w", services.ErrTimeout, op, latency, err)
		}
		return nil, fmt.Errorf("tms %s (latency=%v): %w", op, latency, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.observe(op, fmt.Sprintf("%dxx", resp.StatusCode/100), latency)
		return nil, &HTTPError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	c.observe(op, "ok", latency)
	return resp, nil
}

func (c *HTTPClient) observe(op, outcome string, latency time.Duration) {
	if c.observer != nil {
		c.observer.ObserveTMSRequest(op, outcome, latency)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
