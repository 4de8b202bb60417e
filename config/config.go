// Package config loads the docdiff service configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docdiff/api"
	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/compare"
	"github.com/hazyhaar/docdiff/detector"
	"github.com/hazyhaar/docdiff/docpipe"
	"github.com/hazyhaar/docdiff/embedding"
	"github.com/hazyhaar/docdiff/entities"
	"github.com/hazyhaar/docdiff/render"
)

// Config holds the full docdiff configuration.
type Config struct {
	Listen          string        `yaml:"listen"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	API        api.Config     `yaml:"api"`
	Compare    compare.Config `yaml:"compare"`
	Extraction docpipe.Config `yaml:"extraction"`
	Render     render.Config  `yaml:"render"`

	Embedding embedding.Config       `yaml:"embedding"`
	Detector  detector.Config        `yaml:"detector"`
	Entities  entities.HTTPConfig    `yaml:"entities"`
	OCR       OCRConfig              `yaml:"ocr"`
	Guard     capability.GuardConfig `yaml:"guard"`

	MCP MCPConfig `yaml:"mcp"`
}

// MCPConfig enables the MCP-over-QUIC listener. Without a certificate pair
// an ephemeral self-signed one is generated. FilesRoot confines the file
// paths MCP tools accept.
type MCPConfig struct {
	QUICAddr  string `yaml:"quic_addr"`
	TLSCert   string `yaml:"tls_cert"`
	TLSKey    string `yaml:"tls_key"`
	FilesRoot string `yaml:"files_root"`
}

// OCRConfig configures the Tesseract engine.
type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
}

// DefaultConfig returns sane defaults. Remote capabilities are disabled
// until an endpoint is configured.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8090",
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
		API: api.Config{
			MaxUploadBytes: 201 << 20,
		},
		Compare: compare.Config{
			Workers:   4,
			Retention: 24 * time.Hour,
		},
		Extraction: docpipe.Config{
			MaxFileSize:    100 << 20,
			MinNativeChars: 100,
		},
		Render: render.Config{MaxPages: 200},
		OCR: OCRConfig{
			Enabled:   true,
			Languages: []string{"eng"},
		},
		Guard: capability.GuardConfig{
			Timeout:          30 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Compare.Workers < 0 {
		return fmt.Errorf("compare.workers must be >= 0")
	}
	if c.Compare.Retention < 0 {
		return fmt.Errorf("compare.retention must be >= 0")
	}
	for name, v := range map[string]float64{
		"compare.semantic.threshold":      c.Compare.Semantic.Threshold,
		"compare.visual.change_threshold": c.Compare.Visual.ChangeThreshold,
		"compare.scorer.high_below":       c.Compare.Scorer.HighBelow,
		"compare.scorer.medium_below":     c.Compare.Scorer.MediumBelow,
		"detector.min_confidence":         c.Detector.MinConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if s := c.Compare.Scorer; s.HighBelow > 0 && s.MediumBelow > 0 && s.HighBelow > s.MediumBelow {
		return fmt.Errorf("compare.scorer.high_below must not exceed medium_below")
	}
	if c.Extraction.MaxFileSize < 0 {
		return fmt.Errorf("extraction.max_file_size must be >= 0")
	}
	if c.API.MaxUploadBytes > 0 && c.Extraction.MaxFileSize > 0 && c.API.MaxUploadBytes < c.Extraction.MaxFileSize {
		return fmt.Errorf("api.max_upload_bytes (%d) is below extraction.max_file_size (%d)", c.API.MaxUploadBytes, c.Extraction.MaxFileSize)
	}
	for name, endpoint := range map[string]string{
		"embedding.endpoint": c.Embedding.Endpoint,
		"detector.endpoint":  c.Detector.Endpoint,
		"entities.endpoint":  c.Entities.Endpoint,
	} {
		if endpoint == "" {
			continue
		}
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s: invalid URL %q", name, endpoint)
		}
	}
	if (c.MCP.TLSCert == "") != (c.MCP.TLSKey == "") {
		return fmt.Errorf("mcp.tls_cert and mcp.tls_key must be set together")
	}
	for key, lim := range c.API.RateLimits {
		if lim.MaxRequests <= 0 || lim.WindowSeconds <= 0 {
			return fmt.Errorf("api.rate_limits[%q]: max_requests and window_seconds must be > 0", key)
		}
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
