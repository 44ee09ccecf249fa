package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"
)

const (
	structuredEndpoint = "search/structured"
	freeTextEndpoint   = "search/text"
)

// HTTPClient talks to the search backend over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates a client for the backend rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) SearchStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	var resp StructuredResponse
	if err := c.post(ctx, structuredEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) SearchFreeText(ctx context.Context, req FreeTextRequest) (*FreeTextResponse, error) {
	var resp FreeTextResponse
	if err := c.post(ctx, freeTextEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// endpointURL joins the endpoint onto the configured base URL.
func (c *HTTPClient) endpointURL(endpoint string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid search url %q: %w", c.baseURL, err)
	}
	u.Path = path.Join("/", u.Path, endpoint)
	return u.String(), nil
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, in, out any) error {
	target, err := c.endpointURL(endpoint)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to call search backend", zap.String("url", target), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Search backend returned non-OK status", zap.String("url", target), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode search response", zap.String("url", target), zap.Error(err))
		return fmt.Errorf("%w: decode response: %v", ErrBackendUnavailable, err)
	}
	return nil
}
