// Package ocr implements the outbound client for the external OCR engine:
// a multipart form POST carrying the stored file plus its metadata, and a
// configurable mapping from the engine's JSON response to a job outcome.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/katsurao/ocrflow/internal/store"
)

// maxErrorBody caps how much of an error response body is embedded in the
// job's error_message.
const maxErrorBody = 2048

// Client submits jobs to the OCR endpoint. Construct once at startup; the
// underlying http.Client is safe for concurrent use by all workers.
type Client struct {
	endpoint string
	http     *http.Client
	mapping  Mapping
}

// Config holds the client construction parameters.
type Config struct {
	Endpoint string
	// Timeout bounds the total duration of one request, upload through
	// response body. The reference deployments run 300 to 1200 seconds.
	Timeout time.Duration
	Mapping Mapping
}

// New creates a Client. A zero Timeout defaults to 300s.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: timeout},
		mapping:  cfg.Mapping,
	}
}

// Request carries one job's file bytes and metadata to Submit.
type Request struct {
	FileName         string
	OriginalFileName string
	FileType         string
	FileSize         int64
	PageCount        *int32
	RangeStart       *int32
	RangeEnd         *int32
	Content          []byte
}

// Submit POSTs req as a multipart form and interprets the response through
// the configured mapping. A non-nil error means the request itself failed
// (network error or timeout); HTTP-level and body-level failures are reported
// in the Outcome so the caller can distinguish them.
func (c *Client) Submit(ctx context.Context, req Request) (Outcome, error) {
	body, contentType, err := buildForm(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Outcome{}, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck
		return Outcome{
			Kind:       KindHTTPError,
			HTTPStatus: resp.StatusCode,
			Body:       string(b),
		}, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("read response: %w", err)
	}
	return c.mapping.Interpret(respBody), nil
}

// buildForm assembles the multipart body. The file part carries an explicit
// content type by file_type; range fields are included only for page-oriented
// files that have a page count, matching what the engine expects.
func buildForm(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := req.OriginalFileName
	if filename == "" {
		filename = req.FileName
	}
	part, err := w.CreatePart(fileHeader(filename, req.FileType))
	if err != nil {
		return nil, "", fmt.Errorf("file part: %w", err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, "", fmt.Errorf("file part write: %w", err)
	}

	fields := map[string]string{
		"file_type": req.FileType,
		"file_size": strconv.FormatInt(req.FileSize, 10),
	}
	if req.FileType == store.FileTypePDF && req.PageCount != nil {
		if req.RangeStart != nil {
			fields["range_start"] = strconv.FormatInt(int64(*req.RangeStart), 10)
		}
		if req.RangeEnd != nil {
			fields["range_end"] = strconv.FormatInt(int64(*req.RangeEnd), 10)
		}
		fields["page_count"] = strconv.FormatInt(int64(*req.PageCount), 10)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func fileHeader(filename, fileType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if fileType == store.FileTypePDF {
		h.Set("Content-Type", "application/pdf")
	} else {
		h.Set("Content-Type", "image/*")
	}
	return h
}
