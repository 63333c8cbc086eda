package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"vectorchat/internal/domain"
	"vectorchat/internal/embedding"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "text-embedding-3-small"
	DefaultBatchSize = 64

	providerName = "openai"
)

// Client is an OpenAI-compatible embeddings client.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	dimension int
	batchSize int
	client    *http.Client
	logger    *log.Logger
}

// Config configures the embeddings client. APIKey is required.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
	Logger    *log.Logger
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(domain.ErrConfiguration, "openai embeddings: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = embedding.DimensionFor(cfg.Model)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: t},
		logger:    logger,
	}, nil
}

// Model returns the configured embedding model.
func (c *Client) Model() string { return c.model }

// Dimension returns the dimensionality of the configured model.
func (c *Client) Dimension() int { return c.dimension }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds texts in request batches and returns the vectors in input
// order. Any failed batch fails the whole call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, batch []string) ([][]float32, error) {
	data, err := json.Marshal(embeddingRequest{Model: c.model, Input: batch})
	if err != nil {
		return nil, domain.NewProviderError(providerName, "embeddings", errors.Wrap(err, "encode request"))
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewProviderError(providerName, "embeddings", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "embeddings", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "embeddings", errors.Wrap(err, "read response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewStatusError(providerName, "embeddings", resp.StatusCode, string(body))
	}

	var out embeddingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.NewProviderError(providerName, "embeddings", errors.Wrap(err, "decode response"))
	}
	if len(out.Data) != len(batch) {
		return nil, domain.NewProviderError(providerName, "embeddings",
			errors.Errorf("got %d embeddings for %d inputs", len(out.Data), len(batch)))
	}

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	c.logger.Debug("embedded batch", "model", c.model, "size", len(batch))
	return vecs, nil
}
