package redis

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// Cache TTLs. Embeddings are deterministic per model so a day is safe;
// parsed PDFs are immutable per object content.
const (
	EmbeddingCacheTTL = 24 * time.Hour
	ParsedPdfCacheTTL = 7 * 24 * time.Hour
)

// CacheService caches embedding vectors and parsed PDF markdown. A nil
// *CacheService is valid and behaves as an always-miss cache, so the
// service runs without Redis.
type CacheService struct {
	client *Client
}

// NewCacheService wraps a redis client. client may be nil.
func NewCacheService(client *Client) *CacheService {
	return &CacheService{client: client}
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

func parsedPdfKey(pdfData []byte) string {
	sum := md5.Sum(pdfData)
	return "pdfparse:" + hex.EncodeToString(sum[:])
}

// GetEmbedding returns a cached vector for the text, if any.
func (c *CacheService) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	var vec []float32
	found, err := c.client.GetJSON(ctx, embeddingKey(text), &vec)
	if err != nil {
		logger.GetLogger().Warn("embedding cache read failed", zap.Error(err))
		return nil, false
	}
	return vec, found && len(vec) > 0
}

// PutEmbedding stores a vector for the text.
func (c *CacheService) PutEmbedding(ctx context.Context, text string, vec []float32) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.SetJSON(ctx, embeddingKey(text), vec, EmbeddingCacheTTL); err != nil {
		logger.GetLogger().Warn("embedding cache write failed", zap.Error(err))
	}
}

// GetParsedPdf returns cached markdown for a PDF, keyed by its bytes.
func (c *CacheService) GetParsedPdf(ctx context.Context, pdfData []byte) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	md, found, err := c.client.Get(ctx, parsedPdfKey(pdfData))
	if err != nil {
		logger.GetLogger().Warn("pdf cache read failed", zap.Error(err))
		return "", false
	}
	return md, found
}

// PutParsedPdf stores the markdown produced for a PDF.
func (c *CacheService) PutParsedPdf(ctx context.Context, pdfData []byte, markdown string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, parsedPdfKey(pdfData), markdown, ParsedPdfCacheTTL); err != nil {
		logger.GetLogger().Warn("pdf cache write failed", zap.Error(err))
	}
}

// Health reports cache availability. A nil cache is healthy by
// definition since it is optional.
func (c *CacheService) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Health(ctx)
}
