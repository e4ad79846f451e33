package detector

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/hsn0918/plagiarism/internal/adapters"
	"github.com/hsn0918/plagiarism/internal/chunking"
	"github.com/hsn0918/plagiarism/internal/clients/analyzer"
	"github.com/hsn0918/plagiarism/internal/config"
)

// fakeEmbedder encodes the batch index into the vector so the fake
// searcher can key results off it.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (fakeEmbedder) Health(_ context.Context) error { return nil }

type fakeSearcher struct {
	results  map[int][]adapters.SearchResult
	docCount int
}

func (f *fakeSearcher) KnnSearch(_ context.Context, q adapters.KnnQuery) ([]adapters.SearchResult, error) {
	return f.results[int(q.Embedding[0])], nil
}

func (f *fakeSearcher) GetDocumentCount(_ context.Context) (int, error) {
	return f.docCount, nil
}

type fakeAnalyzer struct {
	result analyzer.Result
	called bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ []analyzer.MatchSummary, _ float64) analyzer.Result {
	f.called = true
	return f.result
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Search = config.SearchConfig{
		TopKResults:         10,
		MinScoreThreshold:   0.5,
		MaxResultsPerSource: 3,
		Concurrency:         4,
		SemanticWeight:      0.5,
		LexicalWeight:       0.5,
	}
	cfg.Thresholds = config.Thresholds{Critical: 0.95, High: 0.85, Medium: 0.70, Low: 0.50}
	cfg.Embedding.Model = "test-embed"
	return cfg
}

func newTestDetector(searcher VectorSearcher, explainer analyzer.Analyzer) *Detector {
	return New(searcher, fakeEmbedder{}, explainer, nil, nil, nil, nil,
		chunking.NewChunker(250, 50, 50), testConfig())
}

func TestCheckEmptyText(t *testing.T) {
	d := newTestDetector(&fakeSearcher{}, nil)

	result, err := d.Check(context.Background(), "   ", Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Severity != config.SeveritySafe {
		t.Errorf("severity = %q, want SAFE", result.Severity)
	}
	if result.PlagiarismPercentage != 0 {
		t.Errorf("percentage = %v, want 0", result.PlagiarismPercentage)
	}
	if result.ChunksAnalyzed != 0 {
		t.Errorf("chunks analyzed = %d, want 0", result.ChunksAnalyzed)
	}
	if result.RequestID == "" {
		t.Error("request id missing")
	}
}

func TestCheckNoMatches(t *testing.T) {
	d := newTestDetector(&fakeSearcher{docCount: 12}, nil)

	result, err := d.Check(context.Background(), "a perfectly original sentence about nothing in particular", Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Severity != config.SeveritySafe {
		t.Errorf("severity = %q, want SAFE", result.Severity)
	}
	if len(result.Matches) != 0 {
		t.Errorf("matches = %d, want 0", len(result.Matches))
	}
	if len(result.ChunkAnalysis) != 1 {
		t.Fatalf("chunk analyses = %d, want 1", len(result.ChunkAnalysis))
	}
	if result.ChunkAnalysis[0].Status != config.SeveritySafe {
		t.Errorf("chunk status = %q, want SAFE", result.ChunkAnalysis[0].Status)
	}
	if result.DocumentsSearched != 12 {
		t.Errorf("documents searched = %d, want 12", result.DocumentsSearched)
	}
	if !strings.Contains(result.Explanation, "an toàn") {
		t.Errorf("explanation = %q, want safe wording", result.Explanation)
	}
}

func TestCheckIdenticalTextIsCritical(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog near the river bank"
	searcher := &fakeSearcher{
		docCount: 3,
		results: map[int][]adapters.SearchResult{
			0: {{
				DocumentID:      "doc-1",
				ChunkID:         "doc-1_chunk_0",
				DocumentTitle:   "Source Paper",
				MatchedText:     text,
				SimilarityScore: 0.96,
			}},
		},
	}
	d := newTestDetector(searcher, nil)

	result, err := d.Check(context.Background(), text, Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	// identical text: lexical score 1.0, combined = 0.96*0.5 + 1.0*0.5
	wantCombined := 0.98
	if len(result.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(result.Matches))
	}
	m := result.Matches[0]
	if math.Abs(m.SimilarityScore-wantCombined) > 1e-9 {
		t.Errorf("combined score = %v, want %v", m.SimilarityScore, wantCombined)
	}
	if m.SemanticScore != 0.96 {
		t.Errorf("semantic score = %v, want 0.96", m.SemanticScore)
	}
	if m.HasCitation {
		t.Error("unexpected citation flag")
	}

	wantPct := wantCombined * 100
	if math.Abs(result.PlagiarismPercentage-wantPct) > 1e-9 {
		t.Errorf("percentage = %v, want %v", result.PlagiarismPercentage, wantPct)
	}
	if result.Severity != config.SeverityCritical {
		t.Errorf("severity = %q, want CRITICAL", result.Severity)
	}
	if !strings.Contains(result.Explanation, "nghiêm trọng") {
		t.Errorf("explanation = %q, want critical wording", result.Explanation)
	}
	if result.ChunkAnalysis[0].BestMatchDocID != "doc-1" {
		t.Errorf("best match = %q, want doc-1", result.ChunkAnalysis[0].BestMatchDocID)
	}
}

func TestCheckAIAnalysisOverrides(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog near the river bank"
	searcher := &fakeSearcher{
		results: map[int][]adapters.SearchResult{
			0: {{
				DocumentID:      "doc-1",
				ChunkID:         "doc-1_chunk_0",
				DocumentTitle:   "Source Paper",
				MatchedText:     text,
				SimilarityScore: 0.96,
			}},
		},
	}
	explainer := &fakeAnalyzer{result: analyzer.Result{
		PlagiarismPercentage: 42,
		Severity:             config.SeverityLow,
		Explanation:          "reviewed",
		Confidence:           0.9,
	}}
	d := newTestDetector(searcher, explainer)

	result, err := d.Check(context.Background(), text, Options{IncludeAIAnalysis: true})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !explainer.called {
		t.Fatal("analyzer was not invoked")
	}
	if result.PlagiarismPercentage != 42 {
		t.Errorf("percentage = %v, want 42", result.PlagiarismPercentage)
	}
	if result.Severity != config.SeverityLow {
		t.Errorf("severity = %q, want LOW", result.Severity)
	}
	if result.Explanation != "reviewed" {
		t.Errorf("explanation = %q, want %q", result.Explanation, "reviewed")
	}
	if result.AIAnalysis == nil || result.AIAnalysis.Confidence != 0.9 {
		t.Error("ai analysis result not attached")
	}
}

func TestCheckAIAnalysisSkippedWithoutMatches(t *testing.T) {
	explainer := &fakeAnalyzer{result: analyzer.Result{PlagiarismPercentage: 99}}
	d := newTestDetector(&fakeSearcher{}, explainer)

	result, err := d.Check(context.Background(), "original words nobody has written before", Options{IncludeAIAnalysis: true})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if explainer.called {
		t.Error("analyzer invoked with no matches")
	}
	if result.AIAnalysis != nil {
		t.Error("unexpected ai analysis on clean text")
	}
}

func TestDeduplicateMatches(t *testing.T) {
	matches := []Match{
		{MatchedChunkID: "a", SimilarityScore: 0.6},
		{MatchedChunkID: "b", SimilarityScore: 0.9},
		{MatchedChunkID: "a", SimilarityScore: 0.8},
	}

	unique := deduplicateMatches(matches)
	if len(unique) != 2 {
		t.Fatalf("unique matches = %d, want 2", len(unique))
	}
	if unique[0].MatchedChunkID != "b" {
		t.Errorf("first match = %q, want b", unique[0].MatchedChunkID)
	}
	if unique[1].MatchedChunkID != "a" || unique[1].SimilarityScore != 0.8 {
		t.Errorf("kept %v for chunk a, want the 0.8 score", unique[1].SimilarityScore)
	}
}

func TestCalculateBasePercentage(t *testing.T) {
	d := newTestDetector(&fakeSearcher{}, nil)

	inputs := []inputChunk{
		{WordCount: 100},
		{WordCount: 100},
	}
	analyses := []ChunkAnalysis{
		{MaxSimilarity: 0.9},
		{MaxSimilarity: 0.3}, // below low threshold, contributes nothing
	}

	got := d.calculateBasePercentage(inputs, analyses)
	want := 45.0 // 100*0.9 / 200 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("base percentage = %v, want %v", got, want)
	}

	if d.calculateBasePercentage(nil, nil) != 0 {
		t.Error("empty input should score 0")
	}
}

func TestGenerateExplanation(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{96, "nghiêm trọng"},
		{86, "mức cao"},
		{72, "Nghi ngờ"},
		{55, "trùng ý tưởng"},
		{10, "an toàn"},
	}
	for _, tt := range tests {
		got := generateExplanation(tt.percentage, 3)
		if !strings.Contains(got, tt.want) {
			t.Errorf("generateExplanation(%v) = %q, want substring %q", tt.percentage, got, tt.want)
		}
	}
}
