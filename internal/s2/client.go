package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Semantic Scholar Academic Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout bounds each individual lookup call.
	DefaultTimeout = 10 * time.Second

	// DefaultMinInterval is the minimum delay between outbound calls.
	// Unauthenticated S2 access is shared-pool limited, so calls are
	// serialized with a generous gap.
	DefaultMinInterval = 1100 * time.Millisecond

	// DefaultPaperFields are the fields requested for paper lookups.
	DefaultPaperFields = "title,abstract,authors,year,venue,url,citationCount,referenceCount,externalIds"

	// DefaultSearchLimit caps title-search result pages.
	DefaultSearchLimit = 10

	// DefaultCitationsLimit caps citations listings.
	DefaultCitationsLimit = 50
)

// Client is a rate-limited HTTP client for the S2 Academic Graph API.
// The limiter serializes all outbound calls with a minimum inter-call
// delay, shared across every concurrently-resolving paper.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithMinInterval sets the minimum delay between outbound calls.
func WithMinInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a new S2 Academic Graph API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		baseURL:    BaseURL,
		timeout:    DefaultTimeout,
	}

	// Check for API key in environment
	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs one rate-limited GET against the API and decodes the body
// into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", ErrRateLimited)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// GetPaper fetches a paper by identifier. The identifier may be a prefixed
// external id ("ARXIV:2305.10403", "DOI:10.1038/...") or an opaque S2
// paper id.
func (c *Client) GetPaper(ctx context.Context, paperID string) (*Paper, error) {
	if paperID == "" {
		return nil, fmt.Errorf("%w: empty paper id", ErrNotFound)
	}
	q := url.Values{"fields": {DefaultPaperFields}}

	var paper Paper
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID), q, &paper); err != nil {
		return nil, err
	}
	if paper.PaperID == "" {
		return nil, fmt.Errorf("%w: empty record for %s", ErrNotFound, paperID)
	}
	return &paper, nil
}

// GetPaperByArXiv fetches a paper by canonical arXiv identifier.
func (c *Client) GetPaperByArXiv(ctx context.Context, arxivID string) (*Paper, error) {
	return c.GetPaper(ctx, "ARXIV:"+arxivID)
}

// SearchPaper searches by title, optionally narrowed by first-author name
// and publication year, and returns the best-ranked match.
func (c *Client) SearchPaper(ctx context.Context, title string, authors []string, year int) (*Paper, error) {
	query := title
	if len(authors) > 0 {
		query += " " + authors[0]
	}

	q := url.Values{
		"query":  {query},
		"fields": {DefaultPaperFields},
		"limit":  {strconv.Itoa(DefaultSearchLimit)},
	}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}

	var resp SearchResponse
	if err := c.get(ctx, "/paper/search", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no search results for %q", ErrNotFound, title)
	}
	return &resp.Data[0], nil
}

// GetCitations lists papers that cite the given paper.
func (c *Client) GetCitations(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	if limit <= 0 {
		limit = DefaultCitationsLimit
	}

	q := url.Values{
		"fields": {DefaultPaperFields},
		"limit":  {strconv.Itoa(limit)},
	}

	var resp CitationsResponse
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID)+"/citations", q, &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if entry.CitingPaper.PaperID != "" {
			papers = append(papers, entry.CitingPaper)
		}
	}
	return papers, nil
}
