// Package embedding talks to an Ollama-compatible embedding endpoint.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/hsn0918/plagiarism/internal/clients/base"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// Embedder generates embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Health(ctx context.Context) error
}

// Request is the /api/embed request body. Input is either a string or
// a list of strings.
type Request struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

// Response covers both response shapes the endpoint is known to return.
type Response struct {
	Embeddings [][]float32 `json:"embeddings,omitempty"`
	Embedding  []float32   `json:"embedding,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Client implements Embedder against /api/embed.
type Client struct {
	http      *base.HTTPClient
	model     string
	dims      int
	batchSize int
}

// NewClient creates an embedding client from config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:      base.NewHTTPClient("embedding", cfg.Embedding.ServiceConfig),
		model:     cfg.Embedding.Model,
		dims:      cfg.Embedding.Dims,
		batchSize: cfg.Embedding.BatchSize,
	}
}

// Embed generates a single normalized embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp Response
	if err := c.http.Post(ctx, "/api/embed", Request{Model: c.model, Input: text}, &resp); err != nil {
		return nil, err
	}

	var vec []float32
	switch {
	case len(resp.Embeddings) > 0:
		vec = resp.Embeddings[0]
	case len(resp.Embedding) > 0:
		vec = resp.Embedding
	default:
		return nil, fmt.Errorf("embedding: empty response for model %s", c.model)
	}

	if err := c.validate(vec); err != nil {
		return nil, err
	}
	return normalize(vec), nil
}

// EmbedBatch generates normalized embeddings for all texts, splitting
// the work into batches. A failed batch falls back to per-text calls so
// one bad element does not sink the whole request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	size := c.batchSize
	if size <= 0 {
		size = 32
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := c.embedBatchOnce(ctx, batch)
		if err != nil {
			logger.GetLogger().Warn("batch embedding failed, falling back to individual calls",
				zap.Int("batch_size", len(batch)), zap.Error(err))
			for _, text := range batch {
				vec, err := c.Embed(ctx, text)
				if err != nil {
					return nil, err
				}
				out = append(out, vec)
			}
			continue
		}
		out = append(out, vecs...)
	}

	return out, nil
}

func (c *Client) embedBatchOnce(ctx context.Context, batch []string) ([][]float32, error) {
	var resp Response
	if err := c.http.Post(ctx, "/api/embed", Request{Model: c.model, Input: batch}, &resp); err != nil {
		return nil, err
	}

	var vecs [][]float32
	switch {
	case len(resp.Embeddings) > 0:
		vecs = resp.Embeddings
	case len(resp.Embedding) > 0:
		vecs = [][]float32{resp.Embedding}
	}

	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(vecs), len(batch))
	}

	out := make([][]float32, len(vecs))
	for i, vec := range vecs {
		if err := c.validate(vec); err != nil {
			return nil, err
		}
		out[i] = normalize(vec)
	}
	return out, nil
}

// Health checks the service by listing its models.
func (c *Client) Health(ctx context.Context) error {
	var resp tagsResponse
	if err := c.http.Get(ctx, "/api/tags", nil, &resp); err != nil {
		return err
	}
	return nil
}

func (c *Client) validate(vec []float32) error {
	if len(vec) != c.dims {
		return fmt.Errorf("embedding: dimension mismatch: got %d, want %d", len(vec), c.dims)
	}
	return nil
}

// normalize scales vec to unit L2 norm. Zero vectors are returned as-is.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
