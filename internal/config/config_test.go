package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}

	if cfg.TurbopufferBaseURL != "https://api.turbopuffer.com" {
		t.Errorf("expected default base URL, got %q", cfg.TurbopufferBaseURL)
	}
	if cfg.TurbopufferNamespace != "nomic-wiki" {
		t.Errorf("expected default namespace, got %q", cfg.TurbopufferNamespace)
	}
	if cfg.DefaultTopK != 20 {
		t.Errorf("expected default top_k 20, got %d", cfg.DefaultTopK)
	}
	if cfg.EnrichTimeout != 5*time.Second {
		t.Errorf("expected 5s enrich timeout, got %v", cfg.EnrichTimeout)
	}
	if cfg.EnrichConcurrency != 8 {
		t.Errorf("expected enrich concurrency 8, got %d", cfg.EnrichConcurrency)
	}
	if cfg.VectorDimension != 768 {
		t.Errorf("expected vector dimension 768, got %d", cfg.VectorDimension)
	}
}

func TestLoadAllowsMissingAPIKey(t *testing.T) {
	t.Setenv("TURBOPUFFER_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("a missing API key must not fail configuration loading: %v", err)
	}
	if cfg.TurbopufferAPIKey != "" {
		t.Errorf("expected empty API key, got %q", cfg.TurbopufferAPIKey)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("TURBOPUFFER_NAMESPACE", "custom-ns")
	t.Setenv("SEARCH_DEFAULT_TOP_K", "50")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.TurbopufferNamespace != "custom-ns" {
		t.Errorf("expected namespace override, got %q", cfg.TurbopufferNamespace)
	}
	if cfg.DefaultTopK != 50 {
		t.Errorf("expected top_k 50, got %d", cfg.DefaultTopK)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.ServerPort)
	}
}

func TestLoadRejectsInvalidBaseURL(t *testing.T) {
	cases := map[string]string{
		"missing scheme": "api.turbopuffer.com",
		"bad scheme":     "ftp://api.turbopuffer.com",
		"empty host":     "https://",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("TURBOPUFFER_BASE_URL", raw)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for base URL %q", raw)
			}
		})
	}
}

func TestLoadRejectsInvalidServerPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadRejectsExcessiveRetries(t *testing.T) {
	t.Setenv("TURBOPUFFER_MAX_RETRIES", "11")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for retries above the cap")
	}
}

func TestLoadClampsTopKAndConcurrency(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_TOP_K", "5000")
	t.Setenv("ENRICH_CONCURRENCY", "500")
	t.Setenv("UPLOAD_CONCURRENCY", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.DefaultTopK != 1000 {
		t.Errorf("expected top_k clamped to 1000, got %d", cfg.DefaultTopK)
	}
	if cfg.EnrichConcurrency != 64 {
		t.Errorf("expected enrich concurrency clamped to 64, got %d", cfg.EnrichConcurrency)
	}
	if cfg.UploadConcurrency != 32 {
		t.Errorf("expected upload concurrency clamped to 32, got %d", cfg.UploadConcurrency)
	}
}
