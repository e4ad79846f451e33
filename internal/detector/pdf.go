package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hsn0918/plagiarism/internal/clients/analyzer"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// PdfCheckMetadata carries the stage timings and corpus counters for a
// PDF check.
type PdfCheckMetadata struct {
	ProcessingTimeMs    int64  `json:"processing_time_ms"`
	PdfExtractionTimeMs int64  `json:"pdf_extraction_time_ms"`
	EmbeddingTimeMs     int64  `json:"embedding_time_ms"`
	SearchTimeMs        int64  `json:"search_time_ms"`
	TotalPages          int    `json:"total_pages"`
	TotalChunks         int    `json:"total_chunks"`
	ChunksAnalyzed      int    `json:"chunks_analyzed"`
	DocumentsSearched   int    `json:"documents_searched"`
	ModelUsed           string `json:"model_used"`
}

// PdfResult is a complete PDF check. Failures are reported in the
// result so callers can stream them as responses.
type PdfResult struct {
	Success              bool             `json:"success"`
	RequestID            string           `json:"request_id"`
	DocumentTitle        string           `json:"document_title"`
	PlagiarismPercentage float64          `json:"plagiarism_percentage"`
	Severity             string           `json:"severity"`
	Explanation          string           `json:"explanation"`
	Matches              []Match          `json:"matches"`
	ChunkAnalysis        []ChunkAnalysis  `json:"chunk_analysis"`
	Metadata             PdfCheckMetadata `json:"metadata"`
	AIAnalysis           *analyzer.Result `json:"ai_analysis,omitempty"`
	ErrorMessage         string           `json:"error_message,omitempty"`
}

// CheckPdfFromObjectStore downloads a PDF from object storage, extracts
// its text and runs the same check pipeline as Check, with per-stage
// timings.
func (d *Detector) CheckPdfFromObjectStore(ctx context.Context, bucket, objectPath string, opts Options) *PdfResult {
	start := time.Now()
	requestID := uuid.New().String()
	opts = d.resolve(opts)

	exists, err := d.objects.Exists(ctx, bucket, objectPath)
	if err != nil {
		return pdfCheckError(requestID, start, fmt.Sprintf("failed to check object: %v", err))
	}
	if !exists {
		return pdfCheckError(requestID, start, fmt.Sprintf("Object not found: %s/%s", bucket, objectPath))
	}

	pdfData, err := d.objects.GetBytes(ctx, bucket, objectPath)
	if err != nil {
		return pdfCheckError(requestID, start, fmt.Sprintf("failed to download object: %v", err))
	}

	extractionStart := time.Now()
	markdown, err := d.parsedMarkdown(ctx, pdfData)
	if err != nil {
		return pdfCheckError(requestID, start, fmt.Sprintf("failed to parse pdf: %v", err))
	}
	extracted, err := d.extractor.Process(markdown, requestID, objectPath)
	if err != nil {
		return pdfCheckError(requestID, start, err.Error())
	}
	extractionTime := time.Since(extractionStart)

	if len(extracted.Chunks) == 0 {
		result := pdfCheckError(requestID, start, "no content extracted from pdf")
		result.DocumentTitle = extracted.DocumentTitle
		return result
	}

	inputs := make([]inputChunk, len(extracted.Chunks))
	texts := make([]string, len(extracted.Chunks))
	for i, c := range extracted.Chunks {
		inputs[i] = inputChunk{
			Text:      c.Text,
			WordCount: c.WordCount,
			StartChar: c.Position * 100,
			EndChar:   (c.Position + 1) * 100,
		}
		texts[i] = c.Text
	}

	embeddingStart := time.Now()
	embeddings, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return pdfCheckError(requestID, start, fmt.Sprintf("failed to embed pdf chunks: %v", err))
	}
	embeddingTime := time.Since(embeddingStart)

	searchStart := time.Now()
	allMatches, chunkAnalyses, err := d.searchAndAnalyze(ctx, inputs, embeddings, opts)
	if err != nil {
		return pdfCheckError(requestID, start, err.Error())
	}
	searchTime := time.Since(searchStart)

	basePercentage := d.calculateBasePercentage(inputs, chunkAnalyses)

	finalPercentage := basePercentage
	severity := d.thresholds.SeverityFromPercentage(basePercentage)
	explanation := generateExplanation(basePercentage, len(allMatches))
	var aiResult *analyzer.Result

	if opts.IncludeAIAnalysis && d.explainer != nil && len(allMatches) > 0 {
		fullText := strings.Join(texts, "\n\n")
		ai := d.runAIAnalysis(ctx, fullText, allMatches, basePercentage)
		aiResult = &ai
		finalPercentage = ai.PlagiarismPercentage
		severity = ai.Severity
		explanation = ai.Explanation
	}

	logger.GetLogger().Info("pdf check completed",
		zap.String("request_id", requestID),
		zap.String("object", bucket+"/"+objectPath),
		zap.Float64("percentage", finalPercentage),
		zap.String("severity", severity))

	return &PdfResult{
		Success:              true,
		RequestID:            requestID,
		DocumentTitle:        extracted.DocumentTitle,
		PlagiarismPercentage: finalPercentage,
		Severity:             severity,
		Explanation:          explanation,
		Matches:              deduplicateMatches(allMatches),
		ChunkAnalysis:        chunkAnalyses,
		AIAnalysis:           aiResult,
		Metadata: PdfCheckMetadata{
			ProcessingTimeMs:    time.Since(start).Milliseconds(),
			PdfExtractionTimeMs: extractionTime.Milliseconds(),
			EmbeddingTimeMs:     embeddingTime.Milliseconds(),
			SearchTimeMs:        searchTime.Milliseconds(),
			TotalPages:          extracted.TotalPages,
			TotalChunks:         len(extracted.Chunks),
			ChunksAnalyzed:      len(chunkAnalyses),
			DocumentsSearched:   d.documentCount(ctx),
			ModelUsed:           d.modelName,
		},
	}
}

// parsedMarkdown serves the parse from cache when the same PDF bytes
// were seen before.
func (d *Detector) parsedMarkdown(ctx context.Context, pdfData []byte) (string, error) {
	if md, ok := d.cache.GetParsedPdf(ctx, pdfData); ok {
		return md, nil
	}
	md, err := d.parser.ParsePDF(ctx, pdfData)
	if err != nil {
		return "", err
	}
	d.cache.PutParsedPdf(ctx, pdfData, md)
	return md, nil
}

func pdfCheckError(requestID string, start time.Time, msg string) *PdfResult {
	return &PdfResult{
		Success:       false,
		RequestID:     requestID,
		Severity:      config.SeveritySafe,
		Matches:       []Match{},
		ChunkAnalysis: []ChunkAnalysis{},
		ErrorMessage:  msg,
		Metadata: PdfCheckMetadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}
}
