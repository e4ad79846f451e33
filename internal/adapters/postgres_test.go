package adapters

import (
	"strings"
	"testing"
	"time"
)

// Document ids are caller-chosen strings ("doc-2024-thesis-01"), so
// the schema must not force UUID typing on them.
func TestSchemaUsesTextDocumentIDs(t *testing.T) {
	if !strings.Contains(createDocumentsSQL, "id TEXT PRIMARY KEY") {
		t.Error("documents.id must be TEXT")
	}
	if !strings.Contains(createChunksSQL, "document_id TEXT NOT NULL") {
		t.Error("document_chunks.document_id must be TEXT")
	}
	for _, sql := range []string{createDocumentsSQL, createChunksSQL, knnSearchSQL} {
		if strings.Contains(strings.ToLower(sql), "uuid") {
			t.Errorf("schema statement still references uuid:\n%s", sql)
		}
	}
}

func TestKnnExclusionCastIsText(t *testing.T) {
	if !strings.Contains(knnSearchSQL, "$2::text[]") {
		t.Error("exclusion filter must cast to text[] so arbitrary ids survive")
	}
}

type recordingObserver struct {
	operations []string
}

func (r *recordingObserver) ObserveVectorQuery(operation string, _ time.Duration) {
	r.operations = append(r.operations, operation)
}

func TestObserveRecordsOperation(t *testing.T) {
	obs := &recordingObserver{}
	s := &PostgresVectorStore{}
	s.SetQueryObserver(obs)

	s.observe("knn_search", time.Now())
	s.observe("search_documents", time.Now())

	if len(obs.operations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs.operations))
	}
	if obs.operations[0] != "knn_search" || obs.operations[1] != "search_documents" {
		t.Errorf("unexpected operations: %v", obs.operations)
	}
}

func TestObserveWithoutObserver(t *testing.T) {
	s := &PostgresVectorStore{}
	// Must be a no-op, not a panic.
	s.observe("knn_search", time.Now())
}

func TestLimitResultsPerSource(t *testing.T) {
	results := []SearchResult{
		{DocumentID: "a", ChunkID: "a1", SimilarityScore: 0.9},
		{DocumentID: "a", ChunkID: "a2", SimilarityScore: 0.8},
		{DocumentID: "b", ChunkID: "b1", SimilarityScore: 0.7},
		{DocumentID: "a", ChunkID: "a3", SimilarityScore: 0.6},
	}

	tests := []struct {
		name         string
		maxPerSource int
		wantChunks   []string
	}{
		{"cap of two", 2, []string{"a1", "a2", "b1"}},
		{"cap of one", 1, []string{"a1", "b1"}},
		{"zero disables cap", 0, []string{"a1", "a2", "b1", "a3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]SearchResult, len(results))
			copy(in, results)
			got := limitResultsPerSource(in, tt.maxPerSource)
			if len(got) != len(tt.wantChunks) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.wantChunks))
			}
			for i, want := range tt.wantChunks {
				if got[i].ChunkID != want {
					t.Errorf("result %d = %s, want %s", i, got[i].ChunkID, want)
				}
			}
		})
	}
}
