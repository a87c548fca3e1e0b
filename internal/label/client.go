package label

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one labeling call; the service runs an LLM pass
// over both papers.
const DefaultTimeout = 3 * time.Minute

// Common errors returned by the labeling client.
var (
	// ErrUnavailable indicates the labeling service could not be reached.
	ErrUnavailable = errors.New("labeling service unavailable")

	// ErrInvalidResponse indicates an unexpected labeling response.
	ErrInvalidResponse = errors.New("invalid response from labeling service")
)

// PaperRef identifies one side of a labeling request.
type PaperRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Client calls the relationship-labeling service over HTTP.
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

// NewClient creates a labeling client for the given service base URL.
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

// LabelPair asks the service to characterize the relationship between two
// papers. Returns the edges it produced; an empty slice means the service
// found no labelable relationship.
func (c *Client) LabelPair(ctx context.Context, source, target PaperRef) ([]Edge, error) {
	body, err := json.Marshal(map[string]PaperRef{
		"source": source,
		"target": target,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/label", bytes.NewReader(body))
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

	var wrapper struct {
		Edges []Edge `json:"edges"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	// Malformed edges are absence of data, not an error.
	valid := wrapper.Edges[:0]
	for _, e := range wrapper.Edges {
		if e.Validate() == nil {
			valid = append(valid, e)
		}
	}
	return valid, nil
}
