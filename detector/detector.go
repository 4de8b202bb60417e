// Package detector is an HTTP client for an object-detection service (a
// YOLO model behind a web wrapper, for instance). Each page is posted as a
// PNG; the service answers with the objects it found.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/safeio"
)

const maxResponseBytes = 4 << 20

// Config configures the client.
type Config struct {
	// Endpoint receives POST image/png and answers
	// {"detections": [{"class", "confidence", "bbox": {...}}]}.
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	// MinConfidence drops weaker detections. Default: 0 (keep all).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Client implements capability.Detector.
type Client struct {
	endpoint string
	minConf  float64
	http     *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		minConf:  cfg.MinConfidence,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Detect posts img and returns the detections above the confidence floor.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]docmodel.Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, c.endpoint, safeio.Snippet(resp.Body))
	}

	var out struct {
		Detections []docmodel.Detection `json:"detections"`
	}
	data, err := safeio.ReadAll(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	kept := out.Detections[:0]
	for _, d := range out.Detections {
		if d.Confidence >= c.minConf {
			kept = append(kept, d)
		}
	}
	return kept, nil
}
