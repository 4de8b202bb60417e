package entities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/safeio"
)

const maxResponseBytes = 8 << 20

// HTTPConfig configures a remote NER service.
type HTTPConfig struct {
	// Endpoint receives POST {"text": ...} and answers
	// {"entities": [{"label", "text", "start", "end"}]}.
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// HTTPRecognizer calls a remote NER service, for example a spaCy model
// behind a small web wrapper.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
}

// NewHTTP creates an HTTPRecognizer.
func NewHTTP(cfg HTTPConfig) *HTTPRecognizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Recognize sends text to the service.
func (r *HTTPRecognizer) Recognize(ctx context.Context, text string) ([]docmodel.Entity, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", r.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, r.endpoint, safeio.Snippet(resp.Body))
	}

	var out struct {
		Entities []docmodel.Entity `json:"entities"`
	}
	data, err := safeio.ReadAll(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	return out.Entities, nil
}
