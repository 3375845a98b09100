package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wikipuff/wikipuff/internal/config"
	"github.com/wikipuff/wikipuff/internal/ogimage"
	"github.com/wikipuff/wikipuff/internal/search"
	"github.com/wikipuff/wikipuff/internal/server"
	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}

	srv := server.NewServer(&server.Config{
		Host:            cfg.ServerHost,
		Port:            cfg.ServerPort,
		ReadTimeout:     cfg.ServerReadTimeout,
		WriteTimeout:    cfg.ServerWriteTimeout,
		IdleTimeout:     cfg.ServerIdleTimeout,
		ShutdownTimeout: cfg.ServerShutdownTimeout,
	}, dispatcher, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// buildDispatcher wires the backend client, enricher and dispatcher. A
// missing API key yields a nil dispatcher: the server still starts and
// reports the configuration error on each request.
func buildDispatcher(cfg *config.Config) (*search.Dispatcher, error) {
	if cfg.TurbopufferAPIKey == "" {
		log.Printf("Warning: TURBOPUFFER_API_KEY is not set; search requests will fail with a configuration error")
		return nil, nil
	}

	client, err := turbopuffer.NewClient(turbopuffer.NewConfigFromTypes(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	fetcher := ogimage.NewFetcher(cfg.EnrichTimeout)

	dispatcher, err := search.NewDispatcher(client, fetcher, &search.DispatcherConfig{
		DefaultTopK:       cfg.DefaultTopK,
		EnrichConcurrency: cfg.EnrichConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	return dispatcher, nil
}
