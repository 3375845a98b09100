package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wikipuff/wikipuff/internal/config"
	"github.com/wikipuff/wikipuff/internal/embedding"
	"github.com/wikipuff/wikipuff/internal/search"
)

var (
	queryMode string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a one-shot search from the terminal",
	Long: `Run a single search against the configured namespace. For semantic and
hybrid modes the query text is embedded via the external embedding service
(EMBEDDING_URL) before dispatch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryMode, "mode", string(search.ModeFulltext), "search mode: semantic, fulltext, phrase or hybrid")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of results (default from configuration)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print results as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.TurbopufferAPIKey == "" {
		return fmt.Errorf("TURBOPUFFER_API_KEY is not set")
	}

	text := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	query, err := buildCLIQuery(ctx, cfg, text)
	if err != nil {
		return err
	}

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}

	results, err := dispatcher.Dispatch(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%2d. %s\n    %s\n", i+1, result.Title, result.URL)
		if result.Distance != nil {
			fmt.Printf("    score: %.5f\n", *result.Distance)
		}
		if result.OGImage != nil {
			fmt.Printf("    image: %s\n", *result.OGImage)
		}
	}
	return nil
}

func buildCLIQuery(ctx context.Context, cfg *config.Config, text string) (search.Query, error) {
	mode := search.Mode(queryMode)

	var vector []float64
	if mode == search.ModeSemantic || mode == search.ModeHybrid {
		embedClient := embedding.NewClient(cfg.EmbeddingURL, cfg.RequestTimeout)
		var err error
		vector, err = embedClient.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	switch mode {
	case search.ModeSemantic:
		return &search.SemanticQuery{Vector: vector, TopK: queryTopK}, nil
	case search.ModeFulltext:
		return &search.FulltextQuery{Query: text, TopK: queryTopK}, nil
	case search.ModePhrase:
		return &search.PhraseQuery{Query: text, TopK: queryTopK}, nil
	case search.ModeHybrid:
		return &search.HybridQuery{Query: text, Vector: vector, TopK: queryTopK}, nil
	default:
		return nil, fmt.Errorf("unsupported mode %q", queryMode)
	}
}
