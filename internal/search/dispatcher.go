package search

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/wikipuff/wikipuff/internal/fusion"
	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

var tracer = otel.Tracer("wikipuff/search")

// Retriever is the ranked-retrieval backend surface the dispatcher needs.
// *turbopuffer.Client satisfies it; tests substitute a stub.
type Retriever interface {
	QueryBM25(ctx context.Context, query string, topK int) ([]turbopuffer.Hit, error)
	QueryVector(ctx context.Context, vector []float64, topK int) ([]turbopuffer.Hit, error)
	QueryTitleTokens(ctx context.Context, query string, topK int) ([]turbopuffer.Hit, error)
}

// Enricher resolves a result URL to a preview image URL, or "" when none
// could be found. Implementations never fail.
type Enricher interface {
	Fetch(ctx context.Context, url string) string
}

// Result is the final output unit for one hit. OGImage is null (not absent)
// when no preview image was found. Distance carries the backend score or
// distance for ranked single-mode queries and the fusion score for hybrid;
// phrase results are unranked and carry none.
type Result struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	OGImage  *string  `json:"ogImage"`
	Distance *float64 `json:"distance,omitempty"`
}

// RetrievalError wraps a failed backend call for the boundary to report.
type RetrievalError struct {
	Message string
	Err     error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// DispatcherConfig holds dispatch tuning knobs.
type DispatcherConfig struct {
	DefaultTopK       int
	EnrichConcurrency int
}

// Dispatcher routes a validated query to the right retrieval calls, fuses
// hybrid rankings, and enriches final results with preview images.
type Dispatcher struct {
	retriever         Retriever
	enricher          Enricher
	fusionEngine      *fusion.Engine
	defaultTopK       int
	enrichConcurrency int
}

func NewDispatcher(retriever Retriever, enricher Enricher, cfg *DispatcherConfig) (*Dispatcher, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}
	if enricher == nil {
		return nil, fmt.Errorf("enricher cannot be nil")
	}

	defaultTopK := 20
	enrichConcurrency := 8
	if cfg != nil {
		if cfg.DefaultTopK > 0 {
			defaultTopK = cfg.DefaultTopK
		}
		if cfg.EnrichConcurrency > 0 {
			enrichConcurrency = cfg.EnrichConcurrency
		}
	}

	return &Dispatcher{
		retriever:         retriever,
		enricher:          enricher,
		fusionEngine:      fusion.NewEngine(fusion.DefaultRankConstant),
		defaultTopK:       defaultTopK,
		enrichConcurrency: enrichConcurrency,
	}, nil
}

// Dispatch validates the query for its declared mode, issues the retrieval
// calls, and returns the enriched result list in rank order. Hybrid
// sub-queries run concurrently with join semantics: if either fails the whole
// request fails and the other result is discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, query Query) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "search.dispatch")
	defer span.End()

	if query == nil {
		err := NewValidationError("", "request cannot be empty")
		span.SetStatus(codes.Error, "invalid_request")
		return nil, err
	}

	if err := query.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return nil, err
	}

	topK := d.topK(query)
	span.SetAttributes(
		attribute.String("search.mode", string(query.Mode())),
		attribute.Int("search.top_k", topK),
	)

	startTime := time.Now()
	var results []Result
	var err error

	switch q := query.(type) {
	case *SemanticQuery:
		results, err = d.dispatchSemantic(ctx, q, topK)
	case *FulltextQuery:
		results, err = d.dispatchFulltext(ctx, q, topK)
	case *PhraseQuery:
		results, err = d.dispatchPhrase(ctx, q, topK)
	case *HybridQuery:
		results, err = d.dispatchHybrid(ctx, q, topK)
	default:
		err = NewValidationError("mode", fmt.Sprintf("unsupported mode %q", query.Mode()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval_failed")
		return nil, err
	}

	d.enrichAll(ctx, results)

	log.Printf("Search dispatch completed: mode=%s, results=%d, took=%v",
		query.Mode(), len(results), time.Since(startTime))
	span.SetAttributes(attribute.Int("search.results", len(results)))
	span.SetStatus(codes.Ok, "search_completed")
	return results, nil
}

func (d *Dispatcher) topK(query Query) int {
	var topK int
	switch q := query.(type) {
	case *SemanticQuery:
		topK = q.TopK
	case *FulltextQuery:
		topK = q.TopK
	case *PhraseQuery:
		topK = q.TopK
	case *HybridQuery:
		topK = q.TopK
	}
	if topK <= 0 {
		return d.defaultTopK
	}
	return topK
}

func (d *Dispatcher) dispatchSemantic(ctx context.Context, q *SemanticQuery, topK int) ([]Result, error) {
	hits, err := d.retriever.QueryVector(ctx, q.Vector, topK)
	if err != nil {
		return nil, &RetrievalError{Message: "vector search failed", Err: err}
	}
	return resultsFromHits(hits, true), nil
}

func (d *Dispatcher) dispatchFulltext(ctx context.Context, q *FulltextQuery, topK int) ([]Result, error) {
	hits, err := d.retriever.QueryBM25(ctx, strings.TrimSpace(q.Query), topK)
	if err != nil {
		return nil, &RetrievalError{Message: "fulltext search failed", Err: err}
	}
	return resultsFromHits(hits, true), nil
}

func (d *Dispatcher) dispatchPhrase(ctx context.Context, q *PhraseQuery, topK int) ([]Result, error) {
	hits, err := d.retriever.QueryTitleTokens(ctx, strings.TrimSpace(q.Query), topK)
	if err != nil {
		return nil, &RetrievalError{Message: "phrase search failed", Err: err}
	}
	// Token-containment results are unranked, so no distance is reported.
	return resultsFromHits(hits, false), nil
}

func (d *Dispatcher) dispatchHybrid(ctx context.Context, q *HybridQuery, topK int) ([]Result, error) {
	var bm25Hits, vectorHits []turbopuffer.Hit

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := d.retriever.QueryBM25(gCtx, strings.TrimSpace(q.Query), topK)
		if err != nil {
			return &RetrievalError{Message: "hybrid fulltext sub-query failed", Err: err}
		}
		bm25Hits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := d.retriever.QueryVector(gCtx, q.Vector, topK)
		if err != nil {
			return &RetrievalError{Message: "hybrid vector sub-query failed", Err: err}
		}
		vectorHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := d.fusionEngine.Fuse(bm25Hits, vectorHits)
	fused = fusion.Truncate(fused, topK)

	results := make([]Result, len(fused))
	for i, hit := range fused {
		score := hit.FusionScore
		results[i] = Result{
			ID:       hit.ID,
			Title:    hit.Title,
			URL:      hit.URL,
			Distance: &score,
		}
	}
	return results, nil
}

func resultsFromHits(hits []turbopuffer.Hit, ranked bool) []Result {
	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			ID:    hit.ID,
			Title: hit.Title,
			URL:   hit.URL,
		}
		if ranked {
			dist := hit.Dist
			results[i].Distance = &dist
		}
	}
	return results
}

// enrichAll fans out one preview-image fetch per result, bounded by a
// semaphore, and waits for all of them. Enrichment never fails a result; a
// miss leaves OGImage null.
func (d *Dispatcher) enrichAll(ctx context.Context, results []Result) {
	if len(results) == 0 {
		return
	}

	semaphore := make(chan struct{}, d.enrichConcurrency)
	var wg sync.WaitGroup

	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if img := d.enricher.Fetch(ctx, results[idx].URL); img != "" {
				results[idx].OGImage = &img
			}
		}(i)
	}

	wg.Wait()
}
