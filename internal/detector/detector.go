// Package detector runs the plagiarism check pipeline: chunk, embed,
// search, hybrid rescore, aggregate, explain.
package detector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hsn0918/plagiarism/internal/adapters"
	"github.com/hsn0918/plagiarism/internal/chunking"
	"github.com/hsn0918/plagiarism/internal/clients/analyzer"
	"github.com/hsn0918/plagiarism/internal/clients/embedding"
	"github.com/hsn0918/plagiarism/internal/clients/pdfparse"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/lexical"
	"github.com/hsn0918/plagiarism/internal/logger"
	"github.com/hsn0918/plagiarism/internal/pdf"
	"github.com/hsn0918/plagiarism/internal/redis"
	"github.com/hsn0918/plagiarism/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VectorSearcher is the slice of the vector store the detector needs.
type VectorSearcher interface {
	KnnSearch(ctx context.Context, q adapters.KnnQuery) ([]adapters.SearchResult, error)
	GetDocumentCount(ctx context.Context) (int, error)
}

// Options tunes one check. Zero values fall back to configured
// defaults.
type Options struct {
	MinSimilarity     float64
	TopK              int
	IncludeAIAnalysis bool
	ExcludeDocIDs     []string
}

// Match is one confirmed overlap between the input and a stored chunk.
// SimilarityScore is the hybrid score; SemanticScore keeps the raw
// embedding similarity it was derived from.
type Match struct {
	DocumentID      string  `json:"document_id"`
	DocumentTitle   string  `json:"document_title"`
	MatchedText     string  `json:"matched_text"`
	InputText       string  `json:"input_text"`
	SimilarityScore float64 `json:"similarity_score"`
	SemanticScore   float64 `json:"semantic_score"`
	PositionStart   int     `json:"position_start"`
	PositionEnd     int     `json:"position_end"`
	ChunkIndex      int     `json:"chunk_index"`
	MatchedChunkID  string  `json:"matched_chunk_id"`
	HasCitation     bool    `json:"has_citation"`
}

// ChunkAnalysis is the verdict for one input chunk.
type ChunkAnalysis struct {
	ChunkIndex     int     `json:"chunk_index"`
	Text           string  `json:"text"`
	MaxSimilarity  float64 `json:"max_similarity"`
	Status         string  `json:"status"`
	BestMatchDocID string  `json:"best_match_doc_id,omitempty"`
	BestMatchTitle string  `json:"best_match_title,omitempty"`
	Matches        []Match `json:"matches,omitempty"`
}

// Result is a complete text check.
type Result struct {
	RequestID            string           `json:"request_id"`
	PlagiarismPercentage float64          `json:"plagiarism_percentage"`
	Severity             string           `json:"severity"`
	Explanation          string           `json:"explanation"`
	Matches              []Match          `json:"matches"`
	ChunkAnalysis        []ChunkAnalysis  `json:"chunk_analysis"`
	ProcessingTimeMs     int64            `json:"processing_time_ms"`
	ChunksAnalyzed       int              `json:"chunks_analyzed"`
	DocumentsSearched    int              `json:"documents_searched"`
	AIAnalysis           *analyzer.Result `json:"ai_analysis,omitempty"`
}

// Detector is the check engine.
type Detector struct {
	search     VectorSearcher
	embedder   embedding.Embedder
	explainer  analyzer.Analyzer
	objects    storage.ObjectStore
	parser     pdfparse.Parser
	extractor  *pdf.Extractor
	cache      *redis.CacheService
	chunker    *chunking.Chunker
	searchCfg  config.SearchConfig
	thresholds config.Thresholds
	modelName  string
}

// New wires a Detector. explainer may be nil to disable AI analysis
// entirely.
func New(
	search VectorSearcher,
	embedder embedding.Embedder,
	explainer analyzer.Analyzer,
	objects storage.ObjectStore,
	parser pdfparse.Parser,
	extractor *pdf.Extractor,
	cache *redis.CacheService,
	chunker *chunking.Chunker,
	cfg *config.Config,
) *Detector {
	return &Detector{
		search:     search,
		embedder:   embedder,
		explainer:  explainer,
		objects:    objects,
		parser:     parser,
		extractor:  extractor,
		cache:      cache,
		chunker:    chunker,
		searchCfg:  cfg.Search,
		thresholds: cfg.Thresholds,
		modelName:  cfg.Embedding.Model,
	}
}

// inputChunk is the common shape text and PDF chunks are analyzed in.
type inputChunk struct {
	Text      string
	WordCount int
	StartChar int
	EndChar   int
}

func (d *Detector) resolve(opts Options) Options {
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = d.searchCfg.MinScoreThreshold
	}
	if opts.TopK <= 0 {
		opts.TopK = d.searchCfg.TopKResults
	}
	return opts
}

// Check runs the full pipeline over a block of text.
func (d *Detector) Check(ctx context.Context, text string, opts Options) (*Result, error) {
	start := time.Now()
	requestID := uuid.New().String()
	opts = d.resolve(opts)

	chunks := d.chunker.ChunkText(text)
	logger.GetLogger().Info("split text into chunks",
		zap.String("request_id", requestID), zap.Int("chunks", len(chunks)))

	if len(chunks) == 0 {
		return d.emptyResult(requestID, start), nil
	}

	inputs := make([]inputChunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = inputChunk{Text: c.Text, WordCount: c.WordCount, StartChar: c.StartChar, EndChar: c.EndChar}
		texts[i] = c.Text
	}

	embeddings, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed input chunks: %w", err)
	}

	allMatches, chunkAnalyses, err := d.searchAndAnalyze(ctx, inputs, embeddings, opts)
	if err != nil {
		return nil, err
	}

	basePercentage := d.calculateBasePercentage(inputs, chunkAnalyses)

	finalPercentage := basePercentage
	severity := d.thresholds.SeverityFromPercentage(basePercentage)
	explanation := generateExplanation(basePercentage, len(allMatches))
	var aiResult *analyzer.Result

	if opts.IncludeAIAnalysis && d.explainer != nil && len(allMatches) > 0 {
		ai := d.runAIAnalysis(ctx, text, allMatches, basePercentage)
		aiResult = &ai
		finalPercentage = ai.PlagiarismPercentage
		severity = ai.Severity
		explanation = ai.Explanation
	}

	return &Result{
		RequestID:            requestID,
		PlagiarismPercentage: finalPercentage,
		Severity:             severity,
		Explanation:          explanation,
		Matches:              deduplicateMatches(allMatches),
		ChunkAnalysis:        chunkAnalyses,
		ProcessingTimeMs:     time.Since(start).Milliseconds(),
		ChunksAnalyzed:       len(chunks),
		DocumentsSearched:    d.documentCount(ctx),
		AIAnalysis:           aiResult,
	}, nil
}

// searchAndAnalyze fans the per-chunk kNN search and hybrid rescore
// out over a bounded worker group. The first failure cancels the rest;
// there are no partial results.
func (d *Detector) searchAndAnalyze(ctx context.Context, inputs []inputChunk, embeddings [][]float32, opts Options) ([]Match, []ChunkAnalysis, error) {
	chunkAnalyses := make([]ChunkAnalysis, len(inputs))
	matchesByChunk := make([][]Match, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	limit := d.searchCfg.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)

	for i := range inputs {
		i := i
		g.Go(func() error {
			results, err := d.search.KnnSearch(gctx, adapters.KnnQuery{
				Embedding:     embeddings[i],
				TopK:          opts.TopK,
				MinScore:      opts.MinSimilarity,
				ExcludeDocIDs: opts.ExcludeDocIDs,
				MaxPerSource:  d.searchCfg.MaxResultsPerSource,
			})
			if err != nil {
				return fmt.Errorf("vector search for chunk %d failed: %w", i, err)
			}

			analysis, matches := d.analyzeChunk(i, inputs[i], results)
			chunkAnalyses[i] = analysis
			matchesByChunk[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var allMatches []Match
	for _, ms := range matchesByChunk {
		allMatches = append(allMatches, ms...)
	}
	return allMatches, chunkAnalyses, nil
}

// analyzeChunk rescoring: each semantic hit is blended with the
// lexical score before any of it counts as a match.
func (d *Detector) analyzeChunk(index int, chunk inputChunk, results []adapters.SearchResult) (ChunkAnalysis, []Match) {
	if len(results) == 0 {
		return ChunkAnalysis{
			ChunkIndex:    index,
			Text:          chunk.Text,
			MaxSimilarity: 0,
			Status:        config.SeveritySafe,
		}, nil
	}

	matches := make([]Match, len(results))
	best := 0
	for i, r := range results {
		combined, details := lexical.CombinedSimilarity(
			r.SimilarityScore, chunk.Text, r.MatchedText,
			d.searchCfg.SemanticWeight, d.searchCfg.LexicalWeight)

		matches[i] = Match{
			DocumentID:      r.DocumentID,
			DocumentTitle:   r.DocumentTitle,
			MatchedText:     r.MatchedText,
			InputText:       chunk.Text,
			SimilarityScore: combined,
			SemanticScore:   r.SimilarityScore,
			PositionStart:   chunk.StartChar,
			PositionEnd:     chunk.EndChar,
			ChunkIndex:      index,
			MatchedChunkID:  r.ChunkID,
			HasCitation:     details.HasCitation,
		}
		if combined > matches[best].SimilarityScore {
			best = i
		}
	}

	maxSim := matches[best].SimilarityScore
	return ChunkAnalysis{
		ChunkIndex:     index,
		Text:           chunk.Text,
		MaxSimilarity:  maxSim,
		Status:         d.thresholds.Severity(maxSim),
		BestMatchDocID: matches[best].DocumentID,
		BestMatchTitle: matches[best].DocumentTitle,
		Matches:        matches,
	}, matches
}

// calculateBasePercentage weights each chunk's word count by its best
// similarity; chunks under the low threshold contribute nothing.
func (d *Detector) calculateBasePercentage(inputs []inputChunk, analyses []ChunkAnalysis) float64 {
	if len(inputs) == 0 || len(analyses) == 0 {
		return 0
	}

	totalWords := 0
	for _, c := range inputs {
		totalWords += c.WordCount
	}
	if totalWords == 0 {
		return 0
	}

	plagiarizedWeighted := 0.0
	for i, a := range analyses {
		if a.MaxSimilarity >= d.thresholds.Low {
			plagiarizedWeighted += float64(inputs[i].WordCount) * a.MaxSimilarity
		}
	}

	return plagiarizedWeighted / float64(totalWords) * 100
}

func (d *Detector) runAIAnalysis(ctx context.Context, text string, matches []Match, basePercentage float64) analyzer.Result {
	limit := len(matches)
	if limit > 10 {
		limit = 10
	}
	summaries := make([]analyzer.MatchSummary, limit)
	for i, m := range matches[:limit] {
		summaries[i] = analyzer.MatchSummary{
			DocumentTitle:   m.DocumentTitle,
			SimilarityScore: m.SimilarityScore,
			MatchedText:     m.MatchedText,
		}
	}
	return d.explainer.Analyze(ctx, text, summaries, basePercentage)
}

// deduplicateMatches keeps the highest-scoring match per stored chunk,
// sorted by score descending. Different chunks of the same document
// survive as separate matches.
func deduplicateMatches(matches []Match) []Match {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SimilarityScore > sorted[j].SimilarityScore
	})

	seen := make(map[string]struct{}, len(sorted))
	unique := make([]Match, 0, len(sorted))
	for _, m := range sorted {
		if _, ok := seen[m.MatchedChunkID]; ok {
			continue
		}
		seen[m.MatchedChunkID] = struct{}{}
		unique = append(unique, m)
	}
	return unique
}

func (d *Detector) documentCount(ctx context.Context) int {
	count, err := d.search.GetDocumentCount(ctx)
	if err != nil {
		logger.GetLogger().Warn("failed to get document count", zap.Error(err))
		return 0
	}
	return count
}

func (d *Detector) emptyResult(requestID string, start time.Time) *Result {
	return &Result{
		RequestID:            requestID,
		PlagiarismPercentage: 0,
		Severity:             config.SeveritySafe,
		Explanation:          "Văn bản quá ngắn hoặc không hợp lệ để phân tích.",
		Matches:              []Match{},
		ChunkAnalysis:        []ChunkAnalysis{},
		ProcessingTimeMs:     time.Since(start).Milliseconds(),
	}
}

// generateExplanation is the deterministic Vietnamese summary used when
// AI analysis is off or unavailable.
func generateExplanation(percentage float64, matchCount int) string {
	switch {
	case percentage >= 95:
		return fmt.Sprintf("Phát hiện đạo văn nghiêm trọng. Tìm thấy %d đoạn trùng khớp cao với tài liệu trong database.", matchCount)
	case percentage >= 85:
		return fmt.Sprintf("Phát hiện đạo văn mức cao. %d đoạn văn có độ tương đồng cao.", matchCount)
	case percentage >= 70:
		return fmt.Sprintf("Nghi ngờ đạo văn. %d đoạn văn có nội dung tương tự với các nguồn khác.", matchCount)
	case percentage >= 50:
		return fmt.Sprintf("Có %d đoạn có thể trùng ý tưởng với các tài liệu khác.", matchCount)
	default:
		return "Văn bản an toàn, không phát hiện đạo văn đáng kể."
	}
}
