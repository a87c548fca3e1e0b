// Package extract provides a client for the external document-structure
// extraction service, which turns a paper URL into the paper's own
// metadata plus its raw citation records.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/snooow1029/paper-master/internal/citation"
)

// DefaultTimeout bounds one extraction call. Extraction parses a full
// document, so it gets far more headroom than a lookup call.
const DefaultTimeout = 2 * time.Minute

// Common errors returned by the extraction client.
var (
	// ErrUnavailable indicates the extraction service could not be reached.
	ErrUnavailable = errors.New("extraction service unavailable")

	// ErrInvalidResponse indicates an unexpected extraction response.
	ErrInvalidResponse = errors.New("invalid response from extraction service")
)

// Result is the extraction output for one paper URL. Fields may be
// partially populated; extraction is best-effort.
type Result struct {
	Title     string              `json:"title"`
	Authors   []string            `json:"authors"`
	Year      int                 `json:"year,omitempty"`
	Abstract  string              `json:"abstract,omitempty"`
	Citations []citation.Citation `json:"citations"`
}

// Client calls the extraction service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an extraction client for the given service base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract asks the service to parse the paper at paperURL.
func (c *Client) Extract(ctx context.Context, paperURL string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"url": paperURL})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &result, nil
}
