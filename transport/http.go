// ABOUTME: HTTP transport that POSTs a run submission and returns the streaming NDJSON response body.
// ABOUTME: Maps non-2xx responses to StatusError and wraps the body in an incremental UTF-8 decoder.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 2048

// StatusError is returned when the orchestrator answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stream request failed: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("stream request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTP opens streams against an orchestrator endpoint.
type HTTP struct {
	BaseURL        string
	Path           string
	AuthToken      string
	DefaultHeaders map[string]string
	Client         *http.Client
}

// NewHTTP returns an HTTP transport for baseURL+path. The client has no
// overall timeout because the response body is a long-lived stream; only
// connection setup is bounded.
func NewHTTP(baseURL, path string, connectTimeout time.Duration) *HTTP {
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = connectTimeout
	return &HTTP{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		Path:           path,
		DefaultHeaders: make(map[string]string),
		Client:         &http.Client{Transport: tr},
	}
}

// Open submits req and returns the response body once headers arrive.
func (h *HTTP) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	encoded, err := json.Marshal(req.Body())
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+h.Path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if h.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.AuthToken)
	}
	for k, v := range h.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return DecodeUTF8(resp.Body), nil
}
