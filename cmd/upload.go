package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wikipuff/wikipuff/internal/config"
	"github.com/wikipuff/wikipuff/internal/ingest"
	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

var (
	uploadMetadataPath string
	uploadVectorDir    string
	uploadClear        bool
	uploadBatchSize    int
	uploadWorkers      int
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Batch-upload a corpus into the backend namespace",
	Long: `Upload a corpus into the configured turbopuffer namespace. The corpus is a
TSV metadata file (id, title, url) paired positionally with JSON vector
shard files, uploaded in concurrent batches.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadMetadataPath, "metadata", "", "path to the TSV metadata file (required)")
	uploadCmd.Flags().StringVar(&uploadVectorDir, "vector-dir", "", "directory containing JSON vector shard files (required)")
	uploadCmd.Flags().BoolVar(&uploadClear, "clear", false, "clear the namespace before uploading")
	uploadCmd.Flags().IntVar(&uploadBatchSize, "batch-size", 0, "documents per upsert batch (default from configuration)")
	uploadCmd.Flags().IntVar(&uploadWorkers, "workers", 0, "concurrent upload workers (default from configuration)")
	_ = uploadCmd.MarkFlagRequired("metadata")
	_ = uploadCmd.MarkFlagRequired("vector-dir")
}

func runUpload(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.TurbopufferAPIKey == "" {
		return fmt.Errorf("TURBOPUFFER_API_KEY is not set")
	}

	batchSize := cfg.UploadBatchSize
	if uploadBatchSize > 0 {
		batchSize = uploadBatchSize
	}
	workers := cfg.UploadConcurrency
	if uploadWorkers > 0 {
		workers = uploadWorkers
	}

	client, err := turbopuffer.NewClient(turbopuffer.NewConfigFromTypes(cfg))
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	uploader, err := ingest.NewUploader(client, batchSize, workers, cfg.VectorDimension)
	if err != nil {
		return fmt.Errorf("failed to create uploader: %w", err)
	}

	result, err := uploader.Run(context.Background(), uploadMetadataPath, uploadVectorDir, uploadClear)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	if result.FailedBatches > 0 {
		return fmt.Errorf("upload completed with %d failed batches (%d/%d documents uploaded)",
			result.FailedBatches, result.UploadedDocs, result.TotalDocs)
	}

	fmt.Printf("Uploaded %d documents to namespace %q in %v\n", result.UploadedDocs, client.Namespace(), result.Duration)
	return nil
}
