// Package ocr is a client for the Mistral OCR API.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/pkg/models"
)

// Config holds OCR client configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client talks to the OCR backend.
type Client struct {
	httpClient *http.Client
	config     Config
	limiter    *rate.Limiter
}

// New creates a new OCR client. A missing API key is reported on first use.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.mistral.ai/v1"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = "mistral-ocr-latest"
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.config.APIKey != ""
}

// Request is one transcription job.
type Request struct {
	Data          []byte
	Kind          models.Kind
	NameHint      string
	IncludeImages bool
	// ContentType and URL help identify image formats the bytes don't reveal.
	ContentType string
	URL         string
}

// Transcribe runs OCR on a document or image.
// Documents are uploaded first and then transcribed by file id; images are
// normalized to JPEG and sent inline.
func (c *Client) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if !c.HasCredential() {
		return nil, &apperr.ConfigurationError{Setting: "ocr.api_key", Message: "no API key configured"}
	}

	var doc document
	switch req.Kind {
	case models.KindDocument:
		fileID, err := c.upload(ctx, req.Data, req.NameHint)
		if err != nil {
			return nil, err
		}
		doc = document{Type: "file", FileID: fileID}
	case models.KindImage:
		jpegData, err := NormalizeImage(req.Data, req.ContentType, req.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize image: %w", err)
		}
		doc = document{
			Type:     "image_url",
			ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData),
		}
	default:
		return nil, fmt.Errorf("unsupported resource kind %q", req.Kind)
	}

	return c.process(ctx, doc, req.IncludeImages)
}

type uploadResponse struct {
	ID string `json:"id"`
}

// upload stores data in the backend's file store and returns its file id.
func (c *Client) upload(ctx context.Context, data []byte, name string) (string, error) {
	if name == "" {
		name = "document.pdf"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.WriteField("purpose", "ocr"); err != nil {
		return "", fmt.Errorf("failed to write purpose: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	respBody, err := c.do(ctx, "upload", "/files", w.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	var up uploadResponse
	if err := json.Unmarshal(respBody, &up); err != nil {
		return "", fmt.Errorf("failed to unmarshal upload response: %w", err)
	}
	if up.ID == "" {
		return "", &apperr.ProtocolError{Op: "upload", Field: "id"}
	}

	slog.Debug("uploaded document", "file_id", up.ID, "name", name, "size", len(data))
	return up.ID, nil
}

type document struct {
	Type     string `json:"type"`
	FileID   string `json:"file_id,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type ocrRequest struct {
	Model              string   `json:"model"`
	Document           document `json:"document"`
	IncludeImageBase64 bool     `json:"include_image_base64"`
}

func (c *Client) process(ctx context.Context, doc document, includeImages bool) (*Result, error) {
	payload, err := json.Marshal(ocrRequest{
		Model:              c.config.Model,
		Document:           doc,
		IncludeImageBase64: includeImages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.do(ctx, "ocr", "/ocr", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OCR response: %w", err)
	}
	if result.Pages == nil {
		return nil, &apperr.ProtocolError{Op: "ocr", Field: "pages"}
	}

	slog.Debug("OCR complete", "type", doc.Type, "pages", len(result.Pages))
	return &result, nil
}

// do sends a rate-limited, authenticated POST and returns the body of a 2xx
// response. Other statuses become BackendErrors.
func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperr.BackendError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
