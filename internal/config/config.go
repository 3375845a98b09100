package config

import (
	"fmt"
	"net/url"
	"strings"

	env "github.com/netflix/go-env"

	"github.com/wikipuff/wikipuff/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if err := validateBackendConfig(config); err != nil {
		return fmt.Errorf("backend configuration validation failed: %w", err)
	}

	if config.ServerPort < 1 || config.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if config.ServerReadTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT must be greater than 0")
	}
	if config.ServerWriteTimeout <= 0 {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if config.ServerShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}

	if config.DefaultTopK < 1 {
		config.DefaultTopK = 20
	}
	if config.DefaultTopK > 1000 {
		config.DefaultTopK = 1000
	}

	// Clamp enrichment fan-out to a sane range
	if config.EnrichConcurrency < 1 {
		config.EnrichConcurrency = 1
	}
	if config.EnrichConcurrency > 64 {
		config.EnrichConcurrency = 64
	}
	if config.EnrichTimeout <= 0 {
		return fmt.Errorf("ENRICH_TIMEOUT must be greater than 0")
	}

	if config.UploadBatchSize < 1 {
		config.UploadBatchSize = 1
	}
	if config.UploadConcurrency < 1 {
		config.UploadConcurrency = 1
	}
	if config.UploadConcurrency > 32 {
		config.UploadConcurrency = 32
	}
	if config.VectorDimension < 1 {
		return fmt.Errorf("VECTOR_DIMENSION must be greater than 0")
	}

	return nil
}

// validateBackendConfig validates turbopuffer-specific configuration
func validateBackendConfig(config *Config) error {
	// The API key is deliberately NOT required here: the server starts without
	// one and reports a configuration error per request, so a misconfigured
	// deployment still serves a diagnosable 500 instead of crash-looping.

	if config.TurbopufferBaseURL == "" {
		return fmt.Errorf("TURBOPUFFER_BASE_URL is required")
	}

	parsedURL, err := url.Parse(config.TurbopufferBaseURL)
	if err != nil {
		return fmt.Errorf("invalid TURBOPUFFER_BASE_URL format: %w", err)
	}
	if parsedURL.Scheme == "" {
		return fmt.Errorf("TURBOPUFFER_BASE_URL must include scheme (http:// or https://)")
	}
	if !strings.HasPrefix(parsedURL.Scheme, "http") {
		return fmt.Errorf("TURBOPUFFER_BASE_URL scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("TURBOPUFFER_BASE_URL must include a valid host")
	}

	if config.TurbopufferNamespace == "" {
		return fmt.Errorf("TURBOPUFFER_NAMESPACE cannot be empty")
	}

	if config.TurbopufferRateLimit <= 0 {
		return fmt.Errorf("TURBOPUFFER_RATE_LIMIT must be greater than 0")
	}
	if config.TurbopufferRateLimit > 1000 {
		return fmt.Errorf("TURBOPUFFER_RATE_LIMIT cannot exceed 1000 requests/second")
	}
	if config.TurbopufferRateBurst <= 0 {
		return fmt.Errorf("TURBOPUFFER_RATE_BURST must be greater than 0")
	}

	if config.RequestTimeout <= 0 {
		return fmt.Errorf("TURBOPUFFER_REQUEST_TIMEOUT must be greater than 0")
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("TURBOPUFFER_MAX_RETRIES cannot be negative")
	}
	if config.MaxRetries > 10 {
		return fmt.Errorf("TURBOPUFFER_MAX_RETRIES cannot exceed 10")
	}
	if config.RetryDelay <= 0 {
		return fmt.Errorf("TURBOPUFFER_RETRY_DELAY must be greater than 0")
	}

	return nil
}
