package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

type fakeWriter struct {
	mu          sync.Mutex
	batches     [][]turbopuffer.Document
	deleteCalls int
	failBatch   int // 1-based index of a batch to fail, 0 = never
}

func (f *fakeWriter) UpsertBatch(ctx context.Context, docs []turbopuffer.Document) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, docs)
	if f.failBatch > 0 && len(f.batches) == f.failBatch {
		return 0, fmt.Errorf("simulated batch failure")
	}
	return len(docs), nil
}

func (f *fakeWriter) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return nil
}

// writeCorpus lays out a TSV metadata file and vector shards for n documents
// with the given dimension, split across two shard files.
func writeCorpus(t *testing.T, n, dimension int) (string, string) {
	t.Helper()
	dir := t.TempDir()

	metadataPath := filepath.Join(dir, "metadata.tsv")
	var metadata string
	vectors := make([][]float64, n)
	for i := 0; i < n; i++ {
		metadata += fmt.Sprintf("%d\tTitle %d\thttps://en.wikipedia.org/wiki/Page_%d\n", i, i, i)
		vec := make([]float64, dimension)
		for j := range vec {
			vec[j] = float64(i) + float64(j)/100
		}
		vectors[i] = vec
	}
	require.NoError(t, os.WriteFile(metadataPath, []byte(metadata), 0o644))

	vectorDir := filepath.Join(dir, "vectors")
	require.NoError(t, os.Mkdir(vectorDir, 0o755))
	half := n / 2
	writeShard(t, filepath.Join(vectorDir, "shard_000.json"), vectors[:half])
	writeShard(t, filepath.Join(vectorDir, "shard_001.json"), vectors[half:])

	return metadataPath, vectorDir
}

func writeShard(t *testing.T, path string, vectors [][]float64) {
	t.Helper()
	data := "["
	for i, vec := range vectors {
		if i > 0 {
			data += ","
		}
		data += "["
		for j, v := range vec {
			if j > 0 {
				data += ","
			}
			data += fmt.Sprintf("%g", v)
		}
		data += "]"
	}
	data += "]"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestUploaderRunUploadsAllDocuments(t *testing.T) {
	metadataPath, vectorDir := writeCorpus(t, 10, 4)
	writer := &fakeWriter{}

	uploader, err := NewUploader(writer, 3, 2, 4)
	require.NoError(t, err)

	result, err := uploader.Run(context.Background(), metadataPath, vectorDir, false)
	require.NoError(t, err)

	assert.Equal(t, 10, result.TotalDocs)
	assert.Equal(t, int64(10), result.UploadedDocs)
	assert.Equal(t, int64(0), result.FailedBatches)
	assert.Equal(t, 0, writer.deleteCalls)

	// 10 docs in batches of 3: 3+3+3+1.
	assert.Len(t, writer.batches, 4)

	var ids []string
	for _, batch := range writer.batches {
		for _, doc := range batch {
			ids = append(ids, doc.ID)
			assert.Len(t, doc.Vector, 4)
		}
	}
	sort.Strings(ids)
	assert.Len(t, ids, 10)
}

func TestUploaderRunClearsNamespaceFirst(t *testing.T) {
	metadataPath, vectorDir := writeCorpus(t, 4, 2)
	writer := &fakeWriter{}

	uploader, err := NewUploader(writer, 10, 1, 2)
	require.NoError(t, err)

	_, err = uploader.Run(context.Background(), metadataPath, vectorDir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, writer.deleteCalls)
}

func TestUploaderRunCountsFailedBatches(t *testing.T) {
	metadataPath, vectorDir := writeCorpus(t, 6, 2)
	writer := &fakeWriter{failBatch: 1}

	uploader, err := NewUploader(writer, 3, 1, 2)
	require.NoError(t, err)

	result, err := uploader.Run(context.Background(), metadataPath, vectorDir, false)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.FailedBatches)
	assert.Equal(t, int64(3), result.UploadedDocs)
}

func TestUploaderRejectsRowCountMismatch(t *testing.T) {
	metadataPath, vectorDir := writeCorpus(t, 6, 2)

	// Add one extra metadata row so counts diverge.
	f, err := os.OpenFile(metadataPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("999\tExtra\thttps://en.wikipedia.org/wiki/Extra\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	uploader, err := NewUploader(&fakeWriter{}, 3, 1, 2)
	require.NoError(t, err)

	_, err = uploader.Run(context.Background(), metadataPath, vectorDir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata has 7 rows")
}

func TestUploaderRejectsDimensionMismatch(t *testing.T) {
	metadataPath, vectorDir := writeCorpus(t, 4, 3)

	uploader, err := NewUploader(&fakeWriter{}, 3, 1, 8)
	require.NoError(t, err)

	_, err = uploader.Run(context.Background(), metadataPath, vectorDir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension 3, expected 8")
}

func TestUploaderRejectsMalformedMetadataLine(t *testing.T) {
	dir := t.TempDir()
	metadataPath := filepath.Join(dir, "metadata.tsv")
	require.NoError(t, os.WriteFile(metadataPath, []byte("1\tonly-two-fields\n"), 0o644))

	vectorDir := filepath.Join(dir, "vectors")
	require.NoError(t, os.Mkdir(vectorDir, 0o755))
	writeShard(t, filepath.Join(vectorDir, "shard_000.json"), [][]float64{{0.1, 0.2}})

	uploader, err := NewUploader(&fakeWriter{}, 3, 1, 2)
	require.NoError(t, err)

	_, err = uploader.Run(context.Background(), metadataPath, vectorDir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 (id, title, url)")
}

func TestUploaderRejectsMissingVectorShards(t *testing.T) {
	dir := t.TempDir()
	metadataPath := filepath.Join(dir, "metadata.tsv")
	require.NoError(t, os.WriteFile(metadataPath, []byte("1\tA\thttps://example.org/a\n"), 0o644))
	vectorDir := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(vectorDir, 0o755))

	uploader, err := NewUploader(&fakeWriter{}, 3, 1, 2)
	require.NoError(t, err)

	_, err = uploader.Run(context.Background(), metadataPath, vectorDir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vector shard files")
}

func TestNewUploaderValidation(t *testing.T) {
	_, err := NewUploader(nil, 10, 1, 2)
	require.Error(t, err)

	_, err = NewUploader(&fakeWriter{}, 10, 1, 0)
	require.Error(t, err)
}
