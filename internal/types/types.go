package types

import "time"

// Config holds all application configuration loaded from environment variables
type Config struct {
	// Turbopuffer backend configuration
	TurbopufferAPIKey    string        `json:"-" env:"TURBOPUFFER_API_KEY"`
	TurbopufferBaseURL   string        `json:"turbopuffer_base_url" env:"TURBOPUFFER_BASE_URL,default=https://api.turbopuffer.com"`
	TurbopufferNamespace string        `json:"turbopuffer_namespace" env:"TURBOPUFFER_NAMESPACE,default=nomic-wiki"`
	TurbopufferRateLimit float64       `json:"turbopuffer_rate_limit" env:"TURBOPUFFER_RATE_LIMIT,default=10.0"`
	TurbopufferRateBurst int           `json:"turbopuffer_rate_burst" env:"TURBOPUFFER_RATE_BURST,default=20"`
	RequestTimeout       time.Duration `json:"request_timeout" env:"TURBOPUFFER_REQUEST_TIMEOUT,default=30s"`
	MaxRetries           int           `json:"max_retries" env:"TURBOPUFFER_MAX_RETRIES,default=3"`
	RetryDelay           time.Duration `json:"retry_delay" env:"TURBOPUFFER_RETRY_DELAY,default=1s"`

	// HTTP server configuration
	ServerHost            string        `json:"server_host" env:"SERVER_HOST,default=0.0.0.0"`
	ServerPort            int           `json:"server_port" env:"SERVER_PORT,default=8080"`
	ServerReadTimeout     time.Duration `json:"server_read_timeout" env:"SERVER_READ_TIMEOUT,default=30s"`
	ServerWriteTimeout    time.Duration `json:"server_write_timeout" env:"SERVER_WRITE_TIMEOUT,default=60s"`
	ServerIdleTimeout     time.Duration `json:"server_idle_timeout" env:"SERVER_IDLE_TIMEOUT,default=120s"`
	ServerShutdownTimeout time.Duration `json:"server_shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT,default=30s"`

	// Search defaults
	DefaultTopK int `json:"default_top_k" env:"SEARCH_DEFAULT_TOP_K,default=20"`

	// Preview image enrichment
	EnrichConcurrency int           `json:"enrich_concurrency" env:"ENRICH_CONCURRENCY,default=8"`
	EnrichTimeout     time.Duration `json:"enrich_timeout" env:"ENRICH_TIMEOUT,default=5s"`

	// External embedding service (used by the query command, not the server)
	EmbeddingURL string `json:"embedding_url" env:"EMBEDDING_URL,default=http://localhost:8000"`

	// Upload defaults
	UploadBatchSize   int `json:"upload_batch_size" env:"UPLOAD_BATCH_SIZE,default=1000"`
	UploadConcurrency int `json:"upload_concurrency" env:"UPLOAD_CONCURRENCY,default=8"`
	VectorDimension   int `json:"vector_dimension" env:"VECTOR_DIMENSION,default=768"`
}

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeNetworkTimeout ErrorType = "network_timeout"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeBackend        ErrorType = "backend"
	ErrorTypeResponse       ErrorType = "response"
	ErrorTypeUnknown        ErrorType = "unknown"
)
