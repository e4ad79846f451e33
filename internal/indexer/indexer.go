// Package indexer ingests documents into the vector store: plain text
// uploads and PDFs pulled from object storage.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hsn0918/plagiarism/internal/adapters"
	"github.com/hsn0918/plagiarism/internal/chunking"
	"github.com/hsn0918/plagiarism/internal/clients/embedding"
	"github.com/hsn0918/plagiarism/internal/clients/pdfparse"
	"github.com/hsn0918/plagiarism/internal/logger"
	"github.com/hsn0918/plagiarism/internal/pdf"
	"github.com/hsn0918/plagiarism/internal/redis"
	"github.com/hsn0918/plagiarism/internal/storage"
	"go.uber.org/zap"
)

const previewLength = 200

// UploadResult reports one document upload. Failures are carried in
// the result rather than an error so batch streams keep going.
type UploadResult struct {
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	ChunksCreated int    `json:"chunks_created"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Error         string `json:"error,omitempty"`
}

// PdfChunkInfo summarizes one indexed PDF chunk.
type PdfChunkInfo struct {
	ChunkID        string `json:"chunk_id"`
	SectionTitle   string `json:"section_title"`
	ContentPreview string `json:"content_preview"`
	ElementType    string `json:"element_type"`
	Position       int    `json:"position"`
	WordCount      int    `json:"word_count"`
}

// PdfProcessingMetadata describes how a PDF was processed.
type PdfProcessingMetadata struct {
	TotalPages       int    `json:"total_pages"`
	TotalElements    int    `json:"total_elements"`
	TotalChunks      int    `json:"total_chunks"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	PdfTitle         string `json:"pdf_title"`
}

// PdfUploadResult reports a PDF indexing run.
type PdfUploadResult struct {
	Success            bool                  `json:"success"`
	DocumentID         string                `json:"document_id"`
	Title              string                `json:"title"`
	TotalChunks        int                   `json:"total_chunks"`
	Chunks             []PdfChunkInfo        `json:"chunks"`
	ProcessingMetadata PdfProcessingMetadata `json:"processing_metadata"`
	ErrorMessage       string                `json:"error_message,omitempty"`
}

// Indexer builds and stores documents.
type Indexer struct {
	store     adapters.VectorStore
	embedder  embedding.Embedder
	objects   storage.ObjectStore
	parser    pdfparse.Parser
	extractor *pdf.Extractor
	cache     *redis.CacheService
	chunker   *chunking.Chunker
}

// New wires an Indexer.
func New(
	store adapters.VectorStore,
	embedder embedding.Embedder,
	objects storage.ObjectStore,
	parser pdfparse.Parser,
	extractor *pdf.Extractor,
	cache *redis.CacheService,
	chunker *chunking.Chunker,
) *Indexer {
	return &Indexer{
		store:     store,
		embedder:  embedder,
		objects:   objects,
		parser:    parser,
		extractor: extractor,
		cache:     cache,
		chunker:   chunker,
	}
}

// UploadText chunks, embeds and indexes a plain text document. With no
// language given (or "auto") the language is detected from the content.
func (ix *Indexer) UploadText(ctx context.Context, title, content string, metadata map[string]string, language, documentID string) UploadResult {
	docID := documentID
	if docID == "" {
		docID = uuid.New().String()
	}

	if language == "" || language == "auto" {
		language = chunking.DetectLanguage(content)
	}

	chunks := ix.chunker.ChunkText(content)
	if len(chunks) == 0 {
		return UploadResult{
			DocumentID: docID,
			Title:      title,
			Success:    false,
			Message:    "Document content too short to process",
		}
	}

	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkTexts[i] = c.Text
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, chunkTexts)
	if err != nil {
		logger.GetLogger().Error("embedding failed during upload",
			zap.String("document_id", docID), zap.Error(err))
		return UploadResult{
			DocumentID: docID,
			Title:      title,
			Success:    false,
			Message:    "Failed to embed document",
			Error:      err.Error(),
		}
	}

	docChunks := make([]adapters.DocumentChunk, len(chunks))
	for i, c := range chunks {
		docChunks[i] = adapters.DocumentChunk{
			ChunkID:   fmt.Sprintf("%s_chunk_%d", docID, i),
			Text:      c.Text,
			Embedding: embeddings[i],
			Position:  c.Position,
			WordCount: c.WordCount,
		}
	}

	doc := &adapters.Document{
		DocumentID: docID,
		Title:      title,
		Content:    content,
		Language:   language,
		Metadata:   metadata,
		Chunks:     docChunks,
	}

	if err := ix.store.IndexDocument(ctx, doc); err != nil {
		return UploadResult{
			DocumentID: docID,
			Title:      title,
			Success:    false,
			Message:    "Failed to index document",
			Error:      err.Error(),
		}
	}

	return UploadResult{
		DocumentID:    docID,
		Title:         title,
		ChunksCreated: len(docChunks),
		Success:       true,
		Message:       fmt.Sprintf("Successfully uploaded with %d chunks", len(docChunks)),
	}
}

// UploadPdfFromObjectStore downloads a PDF from object storage, parses
// it into section chunks and indexes them.
func (ix *Indexer) UploadPdfFromObjectStore(ctx context.Context, bucket, objectPath, documentID, title string, metadata map[string]string, language string) PdfUploadResult {
	start := time.Now()

	exists, err := ix.objects.Exists(ctx, bucket, objectPath)
	if err != nil {
		return pdfUploadError(documentID, fmt.Sprintf("failed to check object: %v", err))
	}
	if !exists {
		return pdfUploadError(documentID, fmt.Sprintf("object not found: %s/%s", bucket, objectPath))
	}

	pdfData, err := ix.objects.GetBytes(ctx, bucket, objectPath)
	if err != nil {
		return pdfUploadError(documentID, fmt.Sprintf("failed to download object: %v", err))
	}

	markdown, err := ix.parsedMarkdown(ctx, pdfData)
	if err != nil {
		return pdfUploadError(documentID, fmt.Sprintf("failed to parse pdf: %v", err))
	}

	docID := documentID
	if docID == "" {
		docID = uuid.New().String()
	}

	result, err := ix.extractor.Process(markdown, docID, objectPath)
	if err != nil {
		return pdfUploadError(docID, err.Error())
	}
	if len(result.Chunks) == 0 {
		return pdfUploadError(docID, "no content extracted from pdf")
	}

	if title == "" {
		title = result.DocumentTitle
	}

	chunkTexts := make([]string, len(result.Chunks))
	contentParts := make([]string, len(result.Chunks))
	for i, c := range result.Chunks {
		chunkTexts[i] = c.Text
		contentParts[i] = fmt.Sprintf("## %s\n%s", c.SectionTitle, c.Text)
	}
	content := strings.Join(contentParts, "\n\n")

	if language == "" || language == "auto" {
		language = chunking.DetectLanguage(content)
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, chunkTexts)
	if err != nil {
		return pdfUploadError(docID, fmt.Sprintf("failed to embed pdf chunks: %v", err))
	}

	mergedMeta := make(map[string]string, len(metadata)+len(result.PdfMetadata)+3)
	for k, v := range result.PdfMetadata {
		mergedMeta[k] = v
	}
	for k, v := range metadata {
		mergedMeta[k] = v
	}
	mergedMeta["source_bucket"] = bucket
	mergedMeta["source_path"] = objectPath
	mergedMeta["pdf_pages"] = fmt.Sprintf("%d", result.TotalPages)

	docChunks := make([]adapters.DocumentChunk, len(result.Chunks))
	chunksInfo := make([]PdfChunkInfo, len(result.Chunks))
	for i, c := range result.Chunks {
		docChunks[i] = adapters.DocumentChunk{
			ChunkID:      c.ChunkID,
			Text:         c.Text,
			Embedding:    embeddings[i],
			Position:     c.Position,
			WordCount:    c.WordCount,
			SectionTitle: c.SectionTitle,
			ElementType:  string(c.ElementType),
		}
		chunksInfo[i] = PdfChunkInfo{
			ChunkID:        c.ChunkID,
			SectionTitle:   c.SectionTitle,
			ContentPreview: preview(c.Text),
			ElementType:    string(c.ElementType),
			Position:       c.Position,
			WordCount:      c.WordCount,
		}
	}

	doc := &adapters.Document{
		DocumentID: docID,
		Title:      title,
		Content:    content,
		Language:   language,
		Metadata:   mergedMeta,
		Chunks:     docChunks,
	}
	if err := ix.store.IndexDocument(ctx, doc); err != nil {
		return pdfUploadError(docID, fmt.Sprintf("failed to index document: %v", err))
	}

	logger.GetLogger().Info("indexed pdf from object store",
		zap.String("document_id", docID),
		zap.String("object", bucket+"/"+objectPath),
		zap.Int("chunks", len(docChunks)))

	return PdfUploadResult{
		Success:     true,
		DocumentID:  docID,
		Title:       title,
		TotalChunks: len(docChunks),
		Chunks:      chunksInfo,
		ProcessingMetadata: PdfProcessingMetadata{
			TotalPages:       result.TotalPages,
			TotalElements:    result.TotalElements,
			TotalChunks:      len(docChunks),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			PdfTitle:         result.DocumentTitle,
		},
	}
}

// parsedMarkdown serves the parse from cache when the same PDF bytes
// were seen before.
func (ix *Indexer) parsedMarkdown(ctx context.Context, pdfData []byte) (string, error) {
	if md, ok := ix.cache.GetParsedPdf(ctx, pdfData); ok {
		return md, nil
	}
	md, err := ix.parser.ParsePDF(ctx, pdfData)
	if err != nil {
		return "", err
	}
	ix.cache.PutParsedPdf(ctx, pdfData, md)
	return md, nil
}

func pdfUploadError(docID, msg string) PdfUploadResult {
	return PdfUploadResult{
		Success:      false,
		DocumentID:   docID,
		ErrorMessage: msg,
	}
}

// preview cuts on a rune boundary so multibyte text stays valid UTF-8.
func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength])
}
