package turbopuffer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/wikipuff/wikipuff/internal/types"
)

// Hit is one normalized result row from a ranked-retrieval call. Dist carries
// the BM25 score or cosine distance depending on the query shape; it is zero
// for pure filter queries, which are unranked.
type Hit struct {
	ID    string  `json:"id"`
	Dist  float64 `json:"dist"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
}

// docID accepts both string and numeric document identifiers on the wire.
type docID string

func (d *docID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*d = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = docID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = docID(n.String())
	return nil
}

// queryRequest is the wire shape of a v2 query. A fresh value is built for
// every call so no field from a previous query shape can leak into the next
// one; only the fields for the active shape are ever populated.
type queryRequest struct {
	RankBy            []interface{} `json:"rank_by,omitempty"`
	Filters           []interface{} `json:"filters,omitempty"`
	TopK              int           `json:"top_k"`
	IncludeAttributes []string      `json:"include_attributes"`
}

type queryRow struct {
	ID    docID   `json:"id"`
	Dist  float64 `json:"$dist"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
}

type queryResponse struct {
	Rows []queryRow `json:"rows"`
}

// resultAttributes are the only attributes ever requested; document bodies
// stay on the backend.
func resultAttributes() []string {
	return []string{"title", "url"}
}

// QueryBM25 runs a full-text BM25 query ranked by the title attribute.
func (c *Client) QueryBM25(ctx context.Context, query string, topK int) ([]Hit, error) {
	if query == "" {
		return nil, NewAPIError(types.ErrorTypeValidation, "query string cannot be empty")
	}

	req := &queryRequest{
		RankBy:            []interface{}{"title", "BM25", query},
		TopK:              topK,
		IncludeAttributes: resultAttributes(),
	}
	return c.runQuery(ctx, "BM25", req)
}

// QueryVector runs an ANN query over the stored vectors. The namespace is
// configured with cosine distance, so lower values are closer.
func (c *Client) QueryVector(ctx context.Context, vector []float64, topK int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, NewAPIError(types.ErrorTypeValidation, "vector cannot be empty")
	}

	req := &queryRequest{
		RankBy:            []interface{}{"vector", "ANN", vector},
		TopK:              topK,
		IncludeAttributes: resultAttributes(),
	}
	return c.runQuery(ctx, "vector", req)
}

// QueryTitleTokens runs a token-containment filter query: every
// whitespace-delimited token must appear in the title attribute, in any
// order. Results are unranked.
func (c *Client) QueryTitleTokens(ctx context.Context, query string, topK int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, NewAPIError(types.ErrorTypeValidation, "query string cannot be empty")
	}

	req := &queryRequest{
		Filters:           []interface{}{"title", "ContainsAllTokens", query},
		TopK:              topK,
		IncludeAttributes: resultAttributes(),
	}
	return c.runQuery(ctx, "token filter", req)
}

func (c *Client) runQuery(ctx context.Context, kind string, req *queryRequest) ([]Hit, error) {
	if req.TopK <= 0 {
		req.TopK = 20
	}
	if req.TopK > 1000 {
		req.TopK = 1000
	}

	startTime := time.Now()
	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, queryPath(c.config.Namespace), req, &resp); err != nil {
		return nil, fmt.Errorf("%s query failed: %w", kind, err)
	}

	hits := make([]Hit, len(resp.Rows))
	for i, row := range resp.Rows {
		hits[i] = Hit{
			ID:    string(row.ID),
			Dist:  row.Dist,
			Title: row.Title,
			URL:   row.URL,
		}
	}

	log.Printf("%s query completed in %v, %d hits", kind, time.Since(startTime), len(hits))
	return hits, nil
}
