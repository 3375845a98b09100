package turbopuffer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/wikipuff/wikipuff/internal/types"
)

// Client is an HTTP client for the turbopuffer namespace API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	config      *Config
}

type Config struct {
	BaseURL        string
	APIKey         string
	Namespace      string
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// NewConfigFromTypes builds a client config from application configuration.
func NewConfigFromTypes(cfg *types.Config) *Config {
	return &Config{
		BaseURL:        cfg.TurbopufferBaseURL,
		APIKey:         cfg.TurbopufferAPIKey,
		Namespace:      cfg.TurbopufferNamespace,
		RateLimit:      cfg.TurbopufferRateLimit,
		RateBurst:      cfg.TurbopufferRateBurst,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
	}
}

func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10.0
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	return &Client{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		config:      cfg,
	}, nil
}

// Namespace returns the namespace this client operates on.
func (c *Client) Namespace() string {
	return c.config.Namespace
}

// do executes one API call with rate limiting and bounded retry. Retry uses
// exponential backoff with jitter and only re-attempts errors classified as
// retryable (throttling, 5xx, network timeouts).
func (c *Client) do(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return NewAPIError(types.ErrorTypeValidation, fmt.Sprintf("failed to marshal request body: %v", err))
		}
	}

	attempts := uint(c.config.MaxRetries) + 1

	operation := func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit error: %w", err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
		if err != nil {
			return NewAPIError(types.ErrorTypeValidation, fmt.Sprintf("failed to build request: %v", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return ClassifyConnectionError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return NewAPIError(types.ErrorTypeResponse, fmt.Sprintf("failed to read response body: %v", err))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return ClassifyHTTPError(resp.StatusCode, string(body))
		}

		if respBody != nil {
			if err := json.Unmarshal(body, respBody); err != nil {
				return NewAPIError(types.ErrorTypeResponse, fmt.Sprintf("failed to decode response: %v", err))
			}
		}
		return nil
	}

	err := retry.Do(
		operation,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxJitter(c.config.RetryDelay/2),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.IsRetryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("Retrying %s %s after error (attempt %d/%d): %v", method, path, n+1, attempts, err)
		}),
	)
	return err
}

// Ping verifies connectivity and credentials by listing namespaces.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Namespaces []struct {
			ID string `json:"id"`
		} `json:"namespaces"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/namespaces?page_size=1", nil, &out); err != nil {
		return fmt.Errorf("turbopuffer ping failed: %w", err)
	}
	return nil
}

func queryPath(namespace string) string {
	return "/v2/namespaces/" + strings.TrimSpace(namespace) + "/query"
}

func writePath(namespace string) string {
	return "/v2/namespaces/" + strings.TrimSpace(namespace)
}
