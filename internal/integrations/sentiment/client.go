// Package sentiment classifies text with a hosted text-classification model
// exposed through a Hugging Face style inference endpoint.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"aml-triage/internal/domain"
	"aml-triage/internal/integrations/paramstore"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"
	defaultModel   = "distilbert-base-uncased-finetuned-sst-2-english"
	defaultTimeout = 10 * time.Second
	tokenParamName = "/sentiment-token"
)

type classifyRequest struct {
	Inputs  string          `json:"inputs"`
	Options classifyOptions `json:"options"`
}

type classifyOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// HTTPStatusError captures non-2xx responses from the inference endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("sentiment: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the inference endpoint for one model. Without a static key or a
// Parameter Store prefix it sends unauthenticated requests, which suits a
// self-hosted inference server.
type Client struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	getter      paramstore.Getter
	paramPrefix string

	keyMu  sync.Mutex
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if b := strings.TrimSpace(baseURL); b != "" {
			c.baseURL = b
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
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

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// NewClient builds a Client. When ps is non-nil the token is read lazily from
// "{paramPrefix}/sentiment-token".
func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		getter:      ps,
		paramPrefix: strings.TrimRight(strings.TrimSpace(paramPrefix), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if ps != nil && c.apiKey == "" && c.paramPrefix == "" {
		return nil, errors.New("sentiment: parameter prefix must not be empty")
	}
	return c, nil
}

// resolveAPIKey caches only a successfully fetched token.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" || c.getter == nil {
		return c.apiKey, nil
	}
	key, err := paramstore.FetchToken(ctx, c.getter, c.paramPrefix+tokenParamName)
	if err != nil {
		return "", fmt.Errorf("sentiment: %w", err)
	}
	c.apiKey = key
	return key, nil
}

func modelURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/models/" + model
}

// Classify returns the label scores for text in the order the model ranked them.
func (c *Client) Classify(ctx context.Context, text string) ([]domain.SentimentScore, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(classifyRequest{
		Inputs:  text,
		Options: classifyOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("sentiment: marshal request: %w", err)
	}

	url := modelURL(c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sentiment: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sentiment: read response body: %w", err)
	}
	return decodeScores(raw)
}

// decodeScores accepts both the flat and the per-input nested list shapes.
func decodeScores(raw []byte) ([]domain.SentimentScore, error) {
	var nested [][]domain.SentimentScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, errors.New("sentiment: empty response")
		}
		return nested[0], nil
	}
	var flat []domain.SentimentScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("sentiment: decode response: %w", err)
	}
	if len(flat) == 0 {
		return nil, errors.New("sentiment: empty response")
	}
	return flat, nil
}
