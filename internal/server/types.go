package server

import (
	"github.com/hsn0918/plagiarism/internal/detector"
	"github.com/hsn0918/plagiarism/internal/indexer"
)

// procedurePrefix is the Connect RPC route prefix for every method.
const procedurePrefix = "/plagiarism.v1.PlagiarismService/"

// CheckOptions tunes a single check request. Absent fields fall back
// to server defaults.
type CheckOptions struct {
	MinSimilarity     float64  `json:"min_similarity,omitempty"`
	TopK              int      `json:"top_k,omitempty"`
	IncludeAIAnalysis bool     `json:"include_ai_analysis,omitempty"`
	ExcludeDocs       []string `json:"exclude_docs,omitempty"`
}

// CheckTextRequest submits raw text for a plagiarism check.
type CheckTextRequest struct {
	Text    string        `json:"text"`
	Options *CheckOptions `json:"options,omitempty"`
}

// MatchPosition locates a match inside the submitted text.
type MatchPosition struct {
	Start      int `json:"start"`
	End        int `json:"end"`
	ChunkIndex int `json:"chunk_index"`
}

// MatchInfo is one reported overlap with a stored document.
type MatchInfo struct {
	DocumentID      string        `json:"document_id"`
	DocumentTitle   string        `json:"document_title"`
	MatchedText     string        `json:"matched_text"`
	InputText       string        `json:"input_text"`
	SimilarityScore float64       `json:"similarity_score"`
	Position        MatchPosition `json:"position"`
}

// ChunkInfo is the per-chunk verdict.
type ChunkInfo struct {
	ChunkIndex     int     `json:"chunk_index"`
	Text           string  `json:"text"`
	MaxSimilarity  float64 `json:"max_similarity"`
	Status         string  `json:"status"`
	BestMatchDocID string  `json:"best_match_doc_id,omitempty"`
}

// CheckMetadata summarizes a text check run.
type CheckMetadata struct {
	ProcessingTimeMs  int64 `json:"processing_time_ms"`
	ChunksAnalyzed    int   `json:"chunks_analyzed"`
	DocumentsSearched int   `json:"documents_searched"`
}

// CheckTextResponse is the full text check verdict.
type CheckTextResponse struct {
	RequestID            string        `json:"request_id"`
	PlagiarismPercentage float64       `json:"plagiarism_percentage"`
	Severity             string        `json:"severity"`
	Explanation          string        `json:"explanation"`
	Matches              []MatchInfo   `json:"matches"`
	Chunks               []ChunkInfo   `json:"chunks"`
	Metadata             CheckMetadata `json:"metadata"`
}

// UploadTextRequest indexes one plain text document. It is also the
// streamed element of BatchUpload.
type UploadTextRequest struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Language   string            `json:"language,omitempty"`
	DocumentID string            `json:"document_id,omitempty"`
}

// UploadTextResponse reports one upload.
type UploadTextResponse struct {
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	ChunksCreated int    `json:"chunks_created"`
	Message       string `json:"message"`
	Success       bool   `json:"success"`
}

// BatchUploadResult is the per-document outcome of a batch upload.
type BatchUploadResult struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// BatchUploadResponse closes a client-streamed batch upload.
type BatchUploadResponse struct {
	TotalDocuments int                 `json:"total_documents"`
	Successful     int                 `json:"successful"`
	Failed         int                 `json:"failed"`
	Results        []BatchUploadResult `json:"results"`
}

// GetDocumentRequest fetches a stored document.
type GetDocumentRequest struct {
	DocumentID     string `json:"document_id"`
	IncludeContent bool   `json:"include_content,omitempty"`
	IncludeChunks  bool   `json:"include_chunks,omitempty"`
}

// DocumentChunkInfo is one stored chunk of a document.
type DocumentChunkInfo struct {
	ChunkID   string `json:"chunk_id"`
	Text      string `json:"text"`
	Position  int    `json:"position"`
	WordCount int    `json:"word_count"`
}

// DocumentInfo is the stored document view.
type DocumentInfo struct {
	DocumentID string              `json:"document_id"`
	Title      string              `json:"title"`
	Content    string              `json:"content,omitempty"`
	Language   string              `json:"language"`
	Metadata   map[string]string   `json:"metadata,omitempty"`
	ChunkCount int                 `json:"chunk_count"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
	Chunks     []DocumentChunkInfo `json:"chunks,omitempty"`
}

// GetDocumentResponse wraps the lookup result.
type GetDocumentResponse struct {
	Found    bool          `json:"found"`
	Document *DocumentInfo `json:"document,omitempty"`
}

// DeleteDocumentRequest removes a document and its chunks.
type DeleteDocumentRequest struct {
	DocumentID string `json:"document_id"`
}

// DeleteDocumentResponse reports the deletion.
type DeleteDocumentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SearchDocumentsRequest is a metadata and text search over the corpus.
type SearchDocumentsRequest struct {
	Query   string            `json:"query,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
}

// DocumentSummary is the search listing view of a document.
type DocumentSummary struct {
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title"`
	Language   string            `json:"language"`
	ChunkCount int               `json:"chunk_count"`
	CreatedAt  string            `json:"created_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchDocumentsResponse lists matching documents.
type SearchDocumentsResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
}

// HealthRequest probes the service.
type HealthRequest struct{}

// ComponentHealth is the status of one dependency.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// HealthResponse aggregates dependency health.
type HealthResponse struct {
	Healthy    bool                       `json:"healthy"`
	Components map[string]ComponentHealth `json:"components"`
}

// IndexPdfRequest indexes a PDF already stored in object storage.
type IndexPdfRequest struct {
	BucketName string            `json:"bucket_name"`
	ObjectPath string            `json:"object_path"`
	DocumentID string            `json:"document_id,omitempty"`
	Title      string            `json:"title,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Language   string            `json:"language,omitempty"`
}

// IndexPdfResponse reports a PDF indexing run.
type IndexPdfResponse struct {
	Success            bool                          `json:"success"`
	DocumentID         string                        `json:"document_id"`
	Title              string                        `json:"title"`
	TotalChunks        int                           `json:"total_chunks"`
	Chunks             []indexer.PdfChunkInfo        `json:"chunks,omitempty"`
	ProcessingMetadata indexer.PdfProcessingMetadata `json:"processing_metadata"`
	ErrorMessage       string                        `json:"error_message,omitempty"`
}

// CheckPdfRequest checks a PDF stored in object storage.
type CheckPdfRequest struct {
	BucketName string        `json:"bucket_name"`
	ObjectPath string        `json:"object_path"`
	Options    *CheckOptions `json:"options,omitempty"`
}

// CheckPdfResponse is the full PDF check verdict.
type CheckPdfResponse struct {
	Success              bool                      `json:"success"`
	RequestID            string                    `json:"request_id"`
	DocumentTitle        string                    `json:"document_title"`
	PlagiarismPercentage float64                   `json:"plagiarism_percentage"`
	Severity             string                    `json:"severity"`
	Explanation          string                    `json:"explanation"`
	Matches              []MatchInfo               `json:"matches"`
	Chunks               []ChunkInfo               `json:"chunks"`
	Metadata             detector.PdfCheckMetadata `json:"metadata"`
	ErrorMessage         string                    `json:"error_message,omitempty"`
}

func toDetectorOptions(opts *CheckOptions) detector.Options {
	if opts == nil {
		return detector.Options{}
	}
	return detector.Options{
		MinSimilarity:     opts.MinSimilarity,
		TopK:              opts.TopK,
		IncludeAIAnalysis: opts.IncludeAIAnalysis,
		ExcludeDocIDs:     opts.ExcludeDocs,
	}
}

func toMatchInfos(matches []detector.Match) []MatchInfo {
	out := make([]MatchInfo, len(matches))
	for i, m := range matches {
		out[i] = MatchInfo{
			DocumentID:      m.DocumentID,
			DocumentTitle:   m.DocumentTitle,
			MatchedText:     m.MatchedText,
			InputText:       m.InputText,
			SimilarityScore: m.SimilarityScore,
			Position: MatchPosition{
				Start:      m.PositionStart,
				End:        m.PositionEnd,
				ChunkIndex: m.ChunkIndex,
			},
		}
	}
	return out
}

func toChunkInfos(analyses []detector.ChunkAnalysis) []ChunkInfo {
	out := make([]ChunkInfo, len(analyses))
	for i, a := range analyses {
		out[i] = ChunkInfo{
			ChunkIndex:     a.ChunkIndex,
			Text:           a.Text,
			MaxSimilarity:  a.MaxSimilarity,
			Status:         a.Status,
			BestMatchDocID: a.BestMatchDocID,
		}
	}
	return out
}
