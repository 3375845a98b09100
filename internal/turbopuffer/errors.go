package turbopuffer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wikipuff/wikipuff/internal/types"
)

// APIError is a classified error from a backend call. Callers use Retryable
// to decide whether a retry can help; the boundary layer reports Message.
type APIError struct {
	Type       types.ErrorType `json:"type"`
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	Retryable  bool            `json:"retryable"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (HTTP %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

func NewAPIError(errType types.ErrorType, message string) *APIError {
	return &APIError{
		Type:      errType,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now(),
	}
}

// ClassifyHTTPError maps a non-2xx backend response onto an APIError. The
// turbopuffer API reports errors as {"error": "...", "status": "error"}; the
// raw body is used when that shape does not parse.
func ClassifyHTTPError(statusCode int, body string) *APIError {
	message := body
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &APIError{
			Type:       types.ErrorTypeConfiguration,
			Message:    fmt.Sprintf("authentication failed: %s", message),
			StatusCode: statusCode,
			Retryable:  false,
			Timestamp:  time.Now(),
		}
	case http.StatusNotFound:
		return &APIError{
			Type:       types.ErrorTypeValidation,
			Message:    fmt.Sprintf("namespace or endpoint not found: %s", message),
			StatusCode: statusCode,
			Retryable:  false,
			Timestamp:  time.Now(),
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &APIError{
			Type:       types.ErrorTypeValidation,
			Message:    fmt.Sprintf("malformed query: %s", message),
			StatusCode: statusCode,
			Retryable:  false,
			Timestamp:  time.Now(),
		}
	case http.StatusTooManyRequests:
		return &APIError{
			Type:       types.ErrorTypeRateLimit,
			Message:    "rate limited by backend",
			StatusCode: statusCode,
			Retryable:  true,
			Timestamp:  time.Now(),
		}
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &APIError{
			Type:       types.ErrorTypeBackend,
			Message:    fmt.Sprintf("backend server error: %s", message),
			StatusCode: statusCode,
			Retryable:  true,
			Timestamp:  time.Now(),
		}
	default:
		return &APIError{
			Type:       types.ErrorTypeUnknown,
			Message:    fmt.Sprintf("unexpected HTTP error: %s", message),
			StatusCode: statusCode,
			Retryable:  statusCode >= 500,
			Timestamp:  time.Now(),
		}
	}
}

// ClassifyConnectionError maps transport-level failures onto an APIError.
func ClassifyConnectionError(err error) *APIError {
	errMsg := err.Error()

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return &APIError{
			Type:      types.ErrorTypeNetworkTimeout,
			Message:   fmt.Sprintf("backend request timed out: %v", err),
			Retryable: true,
			Timestamp: time.Now(),
		}
	}

	if strings.Contains(errMsg, "connection refused") {
		return &APIError{
			Type:      types.ErrorTypeConfiguration,
			Message:   fmt.Sprintf("backend connection refused: %v", err),
			Retryable: false,
			Timestamp: time.Now(),
		}
	}

	if strings.Contains(errMsg, "no such host") {
		return &APIError{
			Type:      types.ErrorTypeConfiguration,
			Message:   fmt.Sprintf("backend host not found: %v", err),
			Retryable: false,
			Timestamp: time.Now(),
		}
	}

	return &APIError{
		Type:      types.ErrorTypeUnknown,
		Message:   fmt.Sprintf("connection error: %v", err),
		Retryable: true,
		Timestamp: time.Now(),
	}
}
