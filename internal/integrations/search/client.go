// Package search queries the DuckDuckGo Instant Answer API for public
// information about a counterparty.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"aml-triage/internal/domain"
)

const (
	defaultBaseURL = "https://api.duckduckgo.com/"
	defaultTimeout = 10 * time.Second
)

// instantAnswer is the part of the Instant Answer payload we read.
type instantAnswer struct {
	RelatedTopics []domain.SearchSnippet `json:"RelatedTopics"`
}

// HTTPStatusError is returned for non-200 responses.
type HTTPStatusError struct {
	StatusCode int
	Query      string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("search: unexpected status %d for %q", e.StatusCode, e.Query)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client performs one GET per query.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if b := strings.TrimSpace(baseURL); b != "" {
			c.baseURL = b
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns the related topics for query. The query is NFC-normalized so
// visually identical names produce the same request.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchSnippet, error) {
	query = norm.NFC.String(strings.TrimSpace(query))

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("search: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, Query: query}
	}

	var payload instantAnswer
	if err := json.NewDecoder(io.LimitReader(res.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("search: decode response for %q: %w", query, err)
	}
	if payload.RelatedTopics == nil {
		return []domain.SearchSnippet{}, nil
	}
	return payload.RelatedTopics, nil
}
