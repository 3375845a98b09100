package search

import (
	"fmt"
	"strings"
)

// Mode identifies one of the supported search intents.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeFulltext Mode = "fulltext"
	ModePhrase   Mode = "phrase"
	ModeHybrid   Mode = "hybrid"
)

// Query is the sum type over search modes. Each variant carries only the
// fields its mode uses, so a stale field from another mode cannot leak into a
// backend call.
type Query interface {
	Mode() Mode
	Validate() error
}

// SemanticQuery ranks by cosine distance against a caller-supplied vector.
type SemanticQuery struct {
	Vector []float64
	TopK   int
}

// FulltextQuery ranks by BM25 over the title attribute.
type FulltextQuery struct {
	Query string
	TopK  int
}

// PhraseQuery filters for titles containing every whitespace-delimited token
// of the query, order-insensitive.
type PhraseQuery struct {
	Query string
	TopK  int
}

// HybridQuery runs the fulltext and semantic retrievals concurrently and
// fuses the two rankings.
type HybridQuery struct {
	Query  string
	Vector []float64
	TopK   int
}

func (q *SemanticQuery) Mode() Mode { return ModeSemantic }
func (q *FulltextQuery) Mode() Mode { return ModeFulltext }
func (q *PhraseQuery) Mode() Mode   { return ModePhrase }
func (q *HybridQuery) Mode() Mode   { return ModeHybrid }

func (q *SemanticQuery) Validate() error {
	if len(q.Vector) == 0 {
		return NewValidationError("vector", "semantic mode requires a non-empty vector")
	}
	return validateTopK(q.TopK)
}

func (q *FulltextQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return NewValidationError("query", "fulltext mode requires a non-empty query")
	}
	return validateTopK(q.TopK)
}

func (q *PhraseQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return NewValidationError("query", "phrase mode requires a non-empty query")
	}
	return validateTopK(q.TopK)
}

func (q *HybridQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return NewValidationError("query", "hybrid mode requires a non-empty query")
	}
	if len(q.Vector) == 0 {
		return NewValidationError("vector", "hybrid mode requires a non-empty vector")
	}
	return validateTopK(q.TopK)
}

func validateTopK(topK int) error {
	if topK < 0 {
		return NewValidationError("top_k", "top_k must be a positive integer")
	}
	return nil
}

// ValidationError reports a malformed request field for the declared mode.
// The boundary maps it to HTTP 400; no backend call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
