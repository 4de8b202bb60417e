// Package embedding is a client for OpenAI-compatible /v1/embeddings servers
// (vLLM, Ollama, text-embeddings-inference, OpenAI). It implements the
// Embedder capability used by the semantic engine and the importance scorer.
//
// Usage:
//
//	emb := embedding.New(embedding.Config{
//	    Endpoint: "http://localhost:8003",
//	    Model:    "multilingual-e5-large",
//	})
//	vecs, err := emb.EmbedBatch(ctx, sentences)
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/docdiff/safeio"
)

// maxResponseBytes bounds one embeddings response.
const maxResponseBytes = 64 << 20

// Config configures the client.
type Config struct {
	// Endpoint is the server base URL. Empty disables semantic features.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is sent with every request.
	Model string `json:"model" yaml:"model"`

	// BatchSize is the maximum number of texts per request. Default: 32.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Client talks to one embedding server.
type Client struct {
	endpoint  string
	model     string
	batchSize int
	http      *http.Client
	logger    *slog.Logger

	mu  sync.Mutex
	dim int
}

// New creates a Client. Callers check Config.Enabled first.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Dimension returns the vector size seen so far, 0 before the first call.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

// EmbedBatch embeds texts in order, splitting into BatchSize requests.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.post(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}
		copy(out[start:end], vecs)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, safeio.Snippet(resp.Body))
	}

	var er embedResponse
	data, err := safeio.ReadAll(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, &er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	c.mu.Lock()
	if c.dim == 0 {
		c.dim = len(vecs[0])
		c.logger.Info("embedding dimension detected", "dimension", c.dim, "model", er.Model)
	}
	c.mu.Unlock()
	return vecs, nil
}
