package filesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/creditlens/internal/model"
)

// HTTPChannel talks to the companion server's /api/<resource> endpoint
type HTTPChannel struct {
	url        string
	httpClient *http.Client
}

type writeResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHTTPChannel creates a channel for resource on the server at baseURL.
// timeout bounds every request.
func NewHTTPChannel(baseURL string, resource Resource, timeout time.Duration) *HTTPChannel {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPChannel{
		url:        fmt.Sprintf("%s/api/%s", strings.TrimSuffix(baseURL, "/"), resource),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint this channel talks to
func (c *HTTPChannel) URL() string {
	return c.url
}

// Read fetches the companion file. A 404 reads as no file.
func (c *HTTPChannel) Read(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", model.ErrSyncUnavailable, c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", model.ErrSyncUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", model.ErrSyncUnavailable, c.url, resp.StatusCode)
	}
	return body, nil
}

// Write posts data as the new file content
func (c *HTTPChannel) Write(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %v", model.ErrSyncUnavailable, c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	var wr writeResponse
	_ = json.Unmarshal(body, &wr)

	if resp.StatusCode/100 != 2 || !wr.OK {
		msg := wr.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("%w: POST %s: HTTP %d: %s", model.ErrSyncUnavailable, c.url, resp.StatusCode, msg)
	}
	return nil
}
