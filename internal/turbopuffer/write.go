package turbopuffer

import (
	"context"
	"fmt"
	"net/http"
)

// Document is one row to upsert into the namespace.
type Document struct {
	ID     string
	Vector []float64
	Title  string
	URL    string
}

type writeRequest struct {
	UpsertColumns  map[string]interface{} `json:"upsert_columns,omitempty"`
	DeleteByFilter []interface{}          `json:"delete_by_filter,omitempty"`
	DistanceMetric string                 `json:"distance_metric,omitempty"`
	Schema         map[string]interface{} `json:"schema,omitempty"`
}

type writeResponse struct {
	Status       string `json:"status"`
	RowsAffected int    `json:"rows_affected"`
}

// UpsertBatch writes one batch of documents in columnar form. The first write
// establishes the namespace schema: cosine distance for vectors and full-text
// search over the title attribute.
func (c *Client) UpsertBatch(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(docs))
	vectors := make([][]float64, len(docs))
	titles := make([]string, len(docs))
	urls := make([]string, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return 0, fmt.Errorf("document at index %d has no id", i)
		}
		if len(doc.Vector) == 0 {
			return 0, fmt.Errorf("document %s has no vector", doc.ID)
		}
		ids[i] = doc.ID
		vectors[i] = doc.Vector
		titles[i] = doc.Title
		urls[i] = doc.URL
	}

	req := &writeRequest{
		UpsertColumns: map[string]interface{}{
			"id":     ids,
			"vector": vectors,
			"title":  titles,
			"url":    urls,
		},
		DistanceMetric: "cosine_distance",
		Schema: map[string]interface{}{
			"title": map[string]interface{}{
				"type":             "string",
				"full_text_search": true,
			},
		},
	}

	var resp writeResponse
	if err := c.do(ctx, http.MethodPost, writePath(c.config.Namespace), req, &resp); err != nil {
		return 0, fmt.Errorf("upsert failed: %w", err)
	}
	return len(docs), nil
}

// DeleteAll removes every row in the namespace. A missing namespace is not an
// error; the upload path clears before the first write and the namespace may
// simply not exist yet.
func (c *Client) DeleteAll(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, writePath(c.config.Namespace), nil, nil)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete namespace failed: %w", err)
	}
	return nil
}
