// Package classifier talks to the remote ScanKey classifier backend.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	apperrors "go-scankey/internal/errors"
	"go-scankey/pkg/models"
)

const (
	analyzePath  = "/api/analyze-key"
	feedbackPath = "/api/feedback"
	healthPath   = "/health"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 8 << 20
	// maxErrorBodyChars bounds the raw body quoted in an error message.
	maxErrorBodyChars = 300

	userAgent = "ScanKey-Agent/1.0"
)

// Credentials resolves the backend location and API key at call time, so
// settings changed at runtime apply to the next request.
type Credentials interface {
	BaseURL(ctx context.Context) (string, error)
	APIKey(ctx context.Context) (string, error)
}

// Classifier is the set of backend calls the agent makes.
type Classifier interface {
	Analyze(ctx context.Context, req AnalyzeRequest) ([]byte, error)
	SendFeedback(ctx context.Context, payload models.FeedbackPayload) error
	Health(ctx context.Context) (*models.HealthStatus, error)
}

// AnalyzeRequest is one multipart upload of a key pair.
type AnalyzeRequest struct {
	Front models.ImageData
	Back  models.ImageData
	// DuplicateFields also sends the images as image_front / image_back.
	DuplicateFields bool
	Source          string
	WorkshopMode    bool
}

// HTTPClient implements Classifier over HTTP.
type HTTPClient struct {
	client *http.Client
	creds  Credentials
}

// NewHTTPClient creates a classifier client. Deadlines come from the caller's
// context, so the http.Client itself carries no timeout.
func NewHTTPClient(creds Credentials) *HTTPClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     60 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 << 10,
	}

	return NewHTTPClientWith(&http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("too many redirects (limit: 3)")
			}
			return nil
		},
	}, creds)
}

// NewHTTPClientWith uses a caller supplied http.Client, mostly for tests.
func NewHTTPClientWith(client *http.Client, creds Credentials) *HTTPClient {
	return &HTTPClient{client: client, creds: creds}
}

// Analyze uploads the images and returns the raw JSON body of a 2xx response.
func (c *HTTPClient) Analyze(ctx context.Context, req AnalyzeRequest) ([]byte, error) {
	if req.Front.Empty() || req.Back.Empty() {
		return nil, apperrors.NewValidationError("front and back images are required", nil)
	}

	body, contentType, err := encodeAnalyzeForm(req)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode upload", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	status, respBody, err := c.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !json.Valid(respBody) {
		return nil, apperrors.NewInvalidResponseError(status, fmt.Errorf("body is not JSON: %q", truncate(string(respBody))))
	}
	return respBody, nil
}

// SendFeedback posts one feedback payload.
func (c *HTTPClient) SendFeedback(ctx context.Context, payload models.FeedbackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("failed to encode feedback", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, feedbackPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	_, _, err = c.do(ctx, httpReq)
	return err
}

// Health queries the backend health endpoint. Both {"ok": true} and
// {"status": "ok"} bodies are understood.
func (c *HTTPClient) Health(ctx context.Context) (*models.HealthStatus, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var raw struct {
		OK           *bool   `json:"ok"`
		Status       *string `json:"status"`
		EngineLoaded *bool   `json:"engine_loaded"`
		EngineError  *string `json:"engine_error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewInvalidResponseError(status, err)
	}

	health := &models.HealthStatus{EngineLoaded: raw.EngineLoaded, EngineError: raw.EngineError}
	switch {
	case raw.OK != nil:
		health.OK = *raw.OK
	case raw.Status != nil:
		health.OK = strings.EqualFold(*raw.Status, "ok")
	default:
		health.OK = true
	}
	return health, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	base, err := c.creds.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, apperrors.NewConfigurationError("classifier base URL is not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid classifier URL", err)
	}
	req.Header.Set("User-Agent", userAgent)

	key, err := c.creds.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	if key = strings.TrimSpace(key); key != "" {
		req.Header.Set("x-api-key", key)
	}
	return req, nil
}

// do executes req and returns the body of a 2xx response, or a classified
// AppError for everything else.
func (c *HTTPClient) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, nil, apperrors.NewTimeoutError("request timed out", err)
		}
		return 0, nil, apperrors.FromTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return resp.StatusCode, nil, apperrors.NewTimeoutError("response timed out", err)
		}
		return resp.StatusCode, nil, apperrors.NewNetworkError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, body, apperrors.FromStatus(resp.StatusCode, ErrorMessage(body))
	}
	return resp.StatusCode, body, nil
}

// ErrorMessage extracts the most specific message from an error body:
// JSON detail, then error, then message, then the raw text. It returns ""
// when nothing usable is present.
func ErrorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg := messageValue(obj[key]); msg != "" {
				return msg
			}
		}
	}
	return truncate(trimmed)
}

func messageValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			return strings.TrimSpace(msg)
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return truncate(string(encoded))
}

func truncate(s string) string {
	if len(s) <= maxErrorBodyChars {
		return s
	}
	return s[:maxErrorBodyChars] + "..."
}

type formFile struct {
	field string
	img   models.ImageData
}

func encodeAnalyzeForm(req AnalyzeRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	files := []formFile{
		{"front", req.Front},
		{"back", req.Back},
	}
	if req.DuplicateFields {
		files = append(files, formFile{"image_front", req.Front}, formFile{"image_back", req.Back})
	}

	for _, f := range files {
		if err := writeImagePart(w, f.field, f.img); err != nil {
			return nil, "", err
		}
	}

	source := req.Source
	if source == "" {
		source = "app"
	}
	if err := w.WriteField("source", source); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("modo_taller", strconv.FormatBool(req.WorkshopMode)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeImagePart(w *multipart.Writer, field string, img models.ImageData) error {
	filename := img.Filename
	if filename == "" {
		filename = field + ".jpg"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(img.Bytes)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
