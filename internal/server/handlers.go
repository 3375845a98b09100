package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wikipuff/wikipuff/internal/search"
)

// searchRequestBody is the wire shape of a search request. `search_type` is a
// legacy alias for `mode` kept for older frontends; `mode` wins when both are
// present.
type searchRequestBody struct {
	Mode       string    `json:"mode"`
	SearchType string    `json:"search_type"`
	Query      string    `json:"query"`
	Vector     []float64 `json:"vector"`
	TopK       *int      `json:"top_k"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

const missingCredentialMessage = "server configuration error: TURBOPUFFER_API_KEY is not set"

// handleSearch handles POST /api/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	if s.dispatcher == nil {
		s.writeError(w, http.StatusInternalServerError, missingCredentialMessage, "")
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON request body", "")
		return
	}

	query, err := buildQuery(&body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	results, err := s.dispatcher.Dispatch(r.Context(), query)
	if err != nil {
		var validationErr *search.ValidationError
		if errors.As(err, &validationErr) {
			s.writeError(w, http.StatusBadRequest, validationErr.Error(), "")
			return
		}

		var retrievalErr *search.RetrievalError
		if errors.As(err, &retrievalErr) {
			s.logger.Printf("Search request failed: %v", retrievalErr)
			s.writeError(w, http.StatusInternalServerError, "search backend request failed", retrievalErr.Error())
			return
		}

		s.logger.Printf("Unexpected search error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, results)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	status := map[string]string{"status": "ok"}
	if s.dispatcher == nil {
		status["status"] = "degraded"
		status["reason"] = missingCredentialMessage
	}
	s.writeJSON(w, http.StatusOK, status)
}

// buildQuery maps the wire body onto the mode's query variant. Fields that
// do not belong to the resolved mode are never copied.
func buildQuery(body *searchRequestBody) (search.Query, error) {
	mode := body.Mode
	if mode == "" {
		mode = body.SearchType
	}
	if mode == "" {
		mode = string(search.ModeFulltext)
	}

	topK := 0
	if body.TopK != nil {
		if *body.TopK <= 0 {
			return nil, search.NewValidationError("top_k", "top_k must be a positive integer")
		}
		topK = *body.TopK
	}

	switch search.Mode(mode) {
	case search.ModeSemantic:
		return &search.SemanticQuery{Vector: body.Vector, TopK: topK}, nil
	case search.ModeFulltext:
		return &search.FulltextQuery{Query: body.Query, TopK: topK}, nil
	case search.ModePhrase:
		return &search.PhraseQuery{Query: body.Query, TopK: topK}, nil
	case search.ModeHybrid:
		return &search.HybridQuery{Query: body.Query, Vector: body.Vector, TopK: topK}, nil
	default:
		return nil, search.NewValidationError("mode", "unsupported mode \""+mode+"\"")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, details string) {
	s.writeJSON(w, status, &errorResponse{Error: message, Details: details})
}
