// Package checkapi is a client for the upstream check-processing service.
//
// Requests are never retried: every retry in the review workflow is initiated
// by the reviewer.
package checkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"check-review-gateway/internal/models"
)

const DefaultTimeout = 120 * time.Second

// ErrNotFound is returned when the upstream service answers 404.
var ErrNotFound = errors.New("not found")

// Client handles communication with the check-processing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetCheck fetches a single check.
func (c *Client) GetCheck(ctx context.Context, checkID int) (*models.Check, error) {
	var check models.Check
	if err := c.doJSON(ctx, http.MethodGet, c.checkURL(checkID), nil, &check); err != nil {
		return nil, fmt.Errorf("get check %d: %w", checkID, err)
	}
	return &check, nil
}

// UpdateCheck sends a partial update of a check.
func (c *Client) UpdateCheck(ctx context.Context, checkID int, fields map[string]any) (*models.Check, error) {
	var check models.Check
	if err := c.doJSON(ctx, http.MethodPut, c.checkURL(checkID), fields, &check); err != nil {
		return nil, fmt.Errorf("update check %d: %w", checkID, err)
	}
	return &check, nil
}

// SearchContacts looks up candidate contacts. An upstream {"error": ...} body is
// returned as a response with Error set, not as a Go error.
func (c *Client) SearchContacts(ctx context.Context, name, zip string) (*models.ContactSearchResponse, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("zip", zip)

	requestURL := fmt.Sprintf("%s/api/search_contacts?%s", c.baseURL, params.Encode())

	var result models.ContactSearchResponse
	if err := c.doDecode(ctx, http.MethodGet, requestURL, nil, "", &result); err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return &result, nil
}

// SubmitBatch submits a reviewed batch. The body carries force_submit only when
// force is set. Any JSON answer is returned regardless of status code; only
// network and decode failures are errors.
func (c *Client) SubmitBatch(ctx context.Context, batchID int, force bool) (*models.SubmitResponse, error) {
	requestURL := fmt.Sprintf("%s/api/submit/%d", c.baseURL, batchID)

	var (
		body        io.Reader
		contentType string
	)
	if force {
		payload, err := json.Marshal(map[string]bool{"force_submit": true})
		if err != nil {
			return nil, fmt.Errorf("encode submit body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	var result models.SubmitResponse
	if err := c.doDecode(ctx, http.MethodPost, requestURL, body, contentType, &result); err != nil {
		return nil, fmt.Errorf("submit batch %d: %w", batchID, err)
	}
	return &result, nil
}

// Upload posts a PDF to the processing service as a multipart form.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader, appealCode string) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("pdf_file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := writer.WriteField("appeal_code", appealCode); err != nil {
		return nil, fmt.Errorf("write appeal code: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var result models.UploadResponse
	if err := c.doDecode(ctx, http.MethodPost, c.baseURL+"/upload", &buf, writer.FormDataContentType(), &result); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return &result, nil
}

// ListBatches returns every batch known to the processing service.
func (c *Client) ListBatches(ctx context.Context) ([]models.Batch, error) {
	var batches []models.Batch
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/batches", nil, &batches); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// FindBatch returns the batch with the given id from the batch listing.
func (c *Client) FindBatch(ctx context.Context, batchID int) (*models.Batch, error) {
	batches, err := c.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		if batches[i].ID == batchID {
			return &batches[i], nil
		}
	}
	return nil, fmt.Errorf("batch %d: %w", batchID, ErrNotFound)
}

func (c *Client) DeleteBatch(ctx context.Context, batchID int) error {
	requestURL := fmt.Sprintf("%s/api/batch/%d", c.baseURL, batchID)
	if err := c.doJSON(ctx, http.MethodDelete, requestURL, nil, nil); err != nil {
		return fmt.Errorf("delete batch %d: %w", batchID, err)
	}
	return nil
}

func (c *Client) checkURL(checkID int) string {
	return c.baseURL + "/api/check/" + strconv.Itoa(checkID)
}

// doJSON sends an optional JSON payload and requires a 2xx answer.
func (c *Client) doJSON(ctx context.Context, method, requestURL string, payload any, result any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, data, err := c.send(ctx, method, requestURL, body, contentType)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

// doDecode decodes the JSON answer whatever the status code.
func (c *Client) doDecode(ctx context.Context, method, requestURL string, body io.Reader, contentType string, result any) error {
	resp, data, err := c.send(ctx, method, requestURL, body, contentType)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse json (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, requestURL string, body io.Reader, contentType string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, data, nil
}

// StatusError is a non-2xx answer from the processing service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return string(bytes.TrimSpace(data))
}

// IsPDF reports whether a filename carries the extension the processing
// service accepts.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
