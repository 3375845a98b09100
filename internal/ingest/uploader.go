package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

// BatchWriter is the namespace write surface the uploader needs.
// *turbopuffer.Client satisfies it.
type BatchWriter interface {
	UpsertBatch(ctx context.Context, docs []turbopuffer.Document) (int, error)
	DeleteAll(ctx context.Context) error
}

// Uploader ingests a corpus into the backend namespace: a TSV metadata file
// (id, title, url per line) paired positionally with JSON vector shard files.
type Uploader struct {
	writer      BatchWriter
	batchSize   int
	concurrency int
	dimension   int
}

// Result summarizes one upload run.
type Result struct {
	TotalDocs     int
	UploadedDocs  int64
	FailedBatches int64
	Duration      time.Duration
}

func NewUploader(writer BatchWriter, batchSize, concurrency, dimension int) (*Uploader, error) {
	if writer == nil {
		return nil, fmt.Errorf("writer cannot be nil")
	}
	if batchSize < 1 {
		batchSize = 1000
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if dimension < 1 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	return &Uploader{
		writer:      writer,
		batchSize:   batchSize,
		concurrency: concurrency,
		dimension:   dimension,
	}, nil
}

// Run loads metadata and vectors, optionally clears the namespace, and
// upserts everything in concurrent batches. Batches that fail after the
// client's own retries are counted and logged but do not abort the run.
func (u *Uploader) Run(ctx context.Context, metadataPath, vectorDir string, clearFirst bool) (*Result, error) {
	startTime := time.Now()

	docs, err := u.loadCorpus(metadataPath, vectorDir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Result{Duration: time.Since(startTime)}, nil
	}

	if clearFirst {
		log.Printf("Clearing namespace before upload...")
		if err := u.writer.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear namespace: %w", err)
		}
	}

	batches := chunk(docs, u.batchSize)
	log.Printf("Uploading %d documents in %d batches (concurrency: %d)", len(docs), len(batches), u.concurrency)

	semaphore := make(chan struct{}, u.concurrency)
	var wg sync.WaitGroup
	var uploaded, failed int64

	for i, batch := range batches {
		wg.Add(1)
		go func(idx int, b []turbopuffer.Document) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			n, err := u.writer.UpsertBatch(ctx, b)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Printf("Batch %d/%d failed: %v", idx+1, len(batches), err)
				return
			}

			total := atomic.AddInt64(&uploaded, int64(n))
			percent := (total * 100) / int64(len(docs))
			if percent%10 == 0 || total == int64(len(docs)) {
				log.Printf("Upload progress: %d%% (%d/%d documents)", percent, total, len(docs))
			}
		}(i, batch)
	}
	wg.Wait()

	result := &Result{
		TotalDocs:     len(docs),
		UploadedDocs:  atomic.LoadInt64(&uploaded),
		FailedBatches: atomic.LoadInt64(&failed),
		Duration:      time.Since(startTime),
	}
	log.Printf("Upload finished: %d/%d documents in %v (%d failed batches)",
		result.UploadedDocs, result.TotalDocs, result.Duration, result.FailedBatches)
	return result, nil
}

// loadCorpus reads the TSV metadata and the vector shards and pairs them by
// position. Row counts must match exactly; a mismatch means the corpus and
// vectors are out of sync and uploading would mislabel every document after
// the divergence.
func (u *Uploader) loadCorpus(metadataPath, vectorDir string) ([]turbopuffer.Document, error) {
	rows, err := readMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	vectors, err := readVectorShards(vectorDir)
	if err != nil {
		return nil, err
	}

	if len(rows) != len(vectors) {
		return nil, fmt.Errorf("metadata has %d rows but vector shards hold %d vectors", len(rows), len(vectors))
	}

	docs := make([]turbopuffer.Document, len(rows))
	for i, row := range rows {
		if len(vectors[i]) != u.dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vectors[i]), u.dimension)
		}
		docs[i] = turbopuffer.Document{
			ID:     row.id,
			Title:  row.title,
			URL:    row.url,
			Vector: vectors[i],
		}
	}
	return docs, nil
}

type metadataRow struct {
	id, title, url string
}

func readMetadata(path string) ([]metadataRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rows []metadataRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("metadata line %d has %d fields, expected 3 (id, title, url)", lineNo, len(fields))
		}
		rows = append(rows, metadataRow{id: fields[0], title: fields[1], url: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	return rows, nil
}

// readVectorShards reads every *.json file in dir in name order. Each shard
// is a JSON array of float arrays; shards concatenate in file-name order, so
// shard names must sort the same way the metadata rows do.
func readVectorShards(dir string) ([][]float64, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list vector shards: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no vector shard files found in %s", dir)
	}
	sort.Strings(paths)

	var vectors [][]float64
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read vector shard %s: %w", path, err)
		}
		var shard [][]float64
		if err := json.Unmarshal(data, &shard); err != nil {
			return nil, fmt.Errorf("failed to parse vector shard %s: %w", path, err)
		}
		vectors = append(vectors, shard...)
	}
	return vectors, nil
}

func chunk(docs []turbopuffer.Document, size int) [][]turbopuffer.Document {
	var batches [][]turbopuffer.Document
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
	}
	return batches
}
