package embedding

import "context"

// Cache stores embedding vectors keyed by their input text. Lookups
// and writes are best effort.
type Cache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	PutEmbedding(ctx context.Context, text string, vec []float32)
}

// CachedEmbedder fronts an Embedder with a vector cache so repeated
// chunks skip the embedding service.
type CachedEmbedder struct {
	inner Embedder
	cache Cache
}

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner Embedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed returns the cached vector or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.GetEmbedding(ctx, text); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.PutEmbedding(ctx, text, vec)
	return vec, nil
}

// EmbedBatch serves cache hits directly and batches only the misses.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.GetEmbedding(ctx, text); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			c.cache.PutEmbedding(ctx, missTexts[j], vec)
		}
	}

	return out, nil
}

// Health delegates to the wrapped embedder.
func (c *CachedEmbedder) Health(ctx context.Context) error {
	return c.inner.Health(ctx)
}
