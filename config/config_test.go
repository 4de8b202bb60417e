package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docdiff.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadConfig_MergesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
log_level: debug
compare:
  workers: 8
  retention: 2h
  semantic:
    threshold: 0.8
embedding:
  endpoint: http://localhost:11434
  model: nomic-embed-text
api:
  rate_limits:
    "POST /api/v1/comparisons":
      max_requests: 10
      window_seconds: 60
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.Compare.Workers != 8 || cfg.Compare.Retention != 2*time.Hour {
		t.Errorf("overrides: %+v", cfg)
	}
	if cfg.Compare.Semantic.Threshold != 0.8 || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("nested overrides: %+v %+v", cfg.Compare.Semantic, cfg.Embedding)
	}
	if lim := cfg.API.RateLimits["POST /api/v1/comparisons"]; lim.MaxRequests != 10 {
		t.Errorf("rate limit: %+v", cfg.API.RateLimits)
	}
	// Untouched sections keep their defaults.
	if cfg.Extraction.MinNativeChars != 100 || !cfg.OCR.Enabled || cfg.Guard.BreakerThreshold != 5 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("level: %v", lvl)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := LoadConfig(writeConfig(t, "listen: [")); err == nil {
		t.Error("bad yaml should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative workers", func(c *Config) { c.Compare.Workers = -1 }, "compare.workers"},
		{"threshold range", func(c *Config) { c.Compare.Semantic.Threshold = 1.5 }, "compare.semantic.threshold"},
		{"scorer order", func(c *Config) {
			c.Compare.Scorer.HighBelow = 0.9
			c.Compare.Scorer.MediumBelow = 0.5
		}, "high_below"},
		{"bad endpoint", func(c *Config) { c.Detector.Endpoint = "localhost:9000" }, "detector.endpoint"},
		{"half tls pair", func(c *Config) { c.MCP.TLSCert = "cert.pem" }, "mcp.tls_cert"},
		{"upload below file size", func(c *Config) { c.API.MaxUploadBytes = 1 << 20 }, "max_upload_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
