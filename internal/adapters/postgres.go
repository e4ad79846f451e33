// Package adapters implements document and vector storage on
// PostgreSQL with pgvector.
package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hsn0918/plagiarism/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// DocumentChunk is a stored chunk with its embedding.
type DocumentChunk struct {
	ChunkID      string    `json:"chunk_id"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding,omitempty"`
	Position     int       `json:"position"`
	WordCount    int       `json:"word_count"`
	SectionTitle string    `json:"section_title,omitempty"`
	ElementType  string    `json:"element_type,omitempty"`
}

// Document is a stored document with optional chunks.
type Document struct {
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Language   string            `json:"language"`
	Metadata   map[string]string `json:"metadata"`
	ChunkCount int               `json:"chunk_count"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Chunks     []DocumentChunk   `json:"chunks,omitempty"`
}

// SearchResult is one kNN hit.
type SearchResult struct {
	DocumentID      string            `json:"document_id"`
	ChunkID         string            `json:"chunk_id"`
	DocumentTitle   string            `json:"document_title"`
	MatchedText     string            `json:"matched_text"`
	SimilarityScore float64           `json:"similarity_score"`
	Position        int               `json:"position"`
	Metadata        map[string]string `json:"metadata"`
}

// KnnQuery parameterizes a vector search.
type KnnQuery struct {
	Embedding     []float32
	TopK          int
	MinScore      float64
	ExcludeDocIDs []string
	MaxPerSource  int
}

// VectorStore is the document and vector search interface.
type VectorStore interface {
	CreateIndex(ctx context.Context, force bool) error
	IndexDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, documentID string, includeChunks bool) (*Document, error)
	DeleteDocument(ctx context.Context, documentID string) (bool, error)
	SearchDocuments(ctx context.Context, query string, filters map[string]string, limit, offset int) ([]Document, int, error)
	KnnSearch(ctx context.Context, q KnnQuery) ([]SearchResult, error)
	GetDocumentCount(ctx context.Context) (int, error)
	Health(ctx context.Context) error
	Close()
}

// QueryObserver receives timings for vector store queries.
type QueryObserver interface {
	ObserveVectorQuery(operation string, duration time.Duration)
}

// Document ids are caller-chosen strings, so the id columns are TEXT
// rather than UUID. The exclusion cast below must stay text[] for the
// same reason.
const (
	createDocumentsSQL = `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'unknown',
		metadata JSONB DEFAULT '{}',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	createChunksSQL = `
	CREATE TABLE IF NOT EXISTS document_chunks (
		chunk_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		document_title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		embedding vector(%d),
		position INTEGER NOT NULL,
		word_count INTEGER NOT NULL DEFAULT 0,
		section_title TEXT NOT NULL DEFAULT '',
		element_type TEXT NOT NULL DEFAULT '',
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	knnSearchSQL = `
	SELECT c.chunk_id, c.document_id, c.document_title, c.text,
		1 - (c.embedding <=> $1) AS similarity, c.position, c.metadata
	FROM document_chunks c
	WHERE $2::text[] IS NULL OR NOT (c.document_id = ANY($2::text[]))
	ORDER BY c.embedding <=> $1
	LIMIT $3`
)

// PostgresVectorStore implements VectorStore on pgx + pgvector.
type PostgresVectorStore struct {
	pool     *pgxpool.Pool
	dims     int
	observer QueryObserver
}

// SetQueryObserver registers a timing observer for search queries.
func (s *PostgresVectorStore) SetQueryObserver(o QueryObserver) {
	s.observer = o
}

func (s *PostgresVectorStore) observe(operation string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveVectorQuery(operation, time.Since(start))
	}
}

// NewPostgresVectorStore connects to Postgres and ensures the schema
// exists.
func NewPostgresVectorStore(ctx context.Context, dsn string, dims int) (*PostgresVectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	store := &PostgresVectorStore{pool: pool, dims: dims}
	if err := store.CreateIndex(ctx, false); err != nil {
		pool.Close()
		return nil, err
	}

	logger.GetLogger().Info("connected to postgres vector store", zap.Int("dims", dims))
	return store, nil
}

// CreateIndex creates the extension, tables and the HNSW cosine index.
// With force set, existing tables are dropped first.
func (s *PostgresVectorStore) CreateIndex(ctx context.Context, force bool) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	if force {
		logger.GetLogger().Warn("dropping existing document tables")
		if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS document_chunks; DROP TABLE IF EXISTS documents;"); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}

	if _, err := s.pool.Exec(ctx, createDocumentsSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(createChunksSQL, s.dims)); err != nil {
		return fmt.Errorf("failed to create document_chunks table: %w", err)
	}

	createIndexes := `
	CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
		ON document_chunks USING hnsw (embedding vector_cosine_ops);
	CREATE INDEX IF NOT EXISTS document_chunks_document_id_idx
		ON document_chunks (document_id);
	CREATE INDEX IF NOT EXISTS documents_created_at_idx
		ON documents (created_at DESC);`
	if _, err := s.pool.Exec(ctx, createIndexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// IndexDocument stores the document and its chunks in one transaction.
// Re-indexing an existing id replaces its chunks.
func (s *PostgresVectorStore) IndexDocument(ctx context.Context, doc *Document) error {
	metadataJSON, err := sonic.Marshal(orEmpty(doc.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, title, content, language, metadata, chunk_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			language = EXCLUDED.language,
			metadata = EXCLUDED.metadata,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = NOW()`,
		doc.DocumentID, doc.Title, doc.Content, doc.Language, metadataJSON, len(doc.Chunks))
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	if _, err = tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", doc.DocumentID); err != nil {
		return fmt.Errorf("failed to clear old chunks: %w", err)
	}

	for _, chunk := range doc.Chunks {
		_, err = tx.Exec(ctx, `
			INSERT INTO document_chunks
				(chunk_id, document_id, document_title, text, embedding, position, word_count, section_title, element_type, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			chunk.ChunkID, doc.DocumentID, doc.Title, chunk.Text,
			pgvector.NewVector(chunk.Embedding), chunk.Position, chunk.WordCount,
			chunk.SectionTitle, chunk.ElementType, metadataJSON)
		if err != nil {
			return fmt.Errorf("failed to store chunk %s: %w", chunk.ChunkID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	logger.GetLogger().Info("indexed document",
		zap.String("document_id", doc.DocumentID), zap.Int("chunks", len(doc.Chunks)))
	return nil
}

// GetDocument fetches a document by id, optionally with its chunks in
// position order. Returns (nil, nil) when the document does not exist.
func (s *PostgresVectorStore) GetDocument(ctx context.Context, documentID string, includeChunks bool) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, content, language, metadata, chunk_count, created_at, updated_at
		FROM documents WHERE id = $1`, documentID)

	doc, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if includeChunks {
		chunks, err := s.getDocumentChunks(ctx, documentID)
		if err != nil {
			return nil, err
		}
		doc.Chunks = chunks
	}

	return doc, nil
}

func (s *PostgresVectorStore) getDocumentChunks(ctx context.Context, documentID string) ([]DocumentChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, text, position, word_count, section_title, element_type
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY position ASC
		LIMIT 1000`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []DocumentChunk
	for rows.Next() {
		var c DocumentChunk
		if err := rows.Scan(&c.ChunkID, &c.Text, &c.Position, &c.WordCount, &c.SectionTitle, &c.ElementType); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document; chunks go with it via the FK
// cascade. Returns false when the id was not present.
func (s *PostgresVectorStore) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", documentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.GetLogger().Warn("document not found for delete", zap.String("document_id", documentID))
		return false, nil
	}
	logger.GetLogger().Info("deleted document", zap.String("document_id", documentID))
	return true, nil
}

// SearchDocuments lists documents matching an optional text query over
// title/content and metadata equality filters, newest first. The second
// return value is the total match count before pagination.
func (s *PostgresVectorStore) SearchDocuments(ctx context.Context, query string, filters map[string]string, limit, offset int) ([]Document, int, error) {
	defer s.observe("search_documents", time.Now())

	var conds []string
	var args []interface{}

	if query != "" {
		args = append(args, "%"+query+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}
	if len(filters) > 0 {
		filterJSON, err := sonic.Marshal(filters)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal filters: %w", err)
		}
		args = append(args, filterJSON)
		conds = append(conds, fmt.Sprintf("metadata @> $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	args = append(args, limit, offset)
	listQuery := fmt.Sprintf(`
		SELECT id, title, content, language, metadata, chunk_count, created_at, updated_at
		FROM documents%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, total, rows.Err()
}

// KnnSearch finds the chunks nearest to the query embedding by cosine
// distance, drops hits under MinScore and caps hits per source
// document.
func (s *PostgresVectorStore) KnnSearch(ctx context.Context, q KnnQuery) ([]SearchResult, error) {
	defer s.observe("knn_search", time.Now())

	var exclude []string
	if len(q.ExcludeDocIDs) > 0 {
		exclude = q.ExcludeDocIDs
	}

	rows, err := s.pool.Query(ctx, knnSearchSQL,
		pgvector.NewVector(q.Embedding), exclude, q.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var metadataJSON []byte
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.DocumentTitle, &r.MatchedText,
			&r.SimilarityScore, &r.Position, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		if r.SimilarityScore < 0 {
			r.SimilarityScore = 0
		} else if r.SimilarityScore > 1 {
			r.SimilarityScore = 1
		}
		if r.SimilarityScore < q.MinScore {
			continue
		}

		r.Metadata = unmarshalMetadata(metadataJSON)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}

	return limitResultsPerSource(results, q.MaxPerSource), nil
}

// limitResultsPerSource keeps at most maxPerSource hits per document so
// one source cannot dominate the match list.
func limitResultsPerSource(results []SearchResult, maxPerSource int) []SearchResult {
	if maxPerSource <= 0 {
		return results
	}
	counts := make(map[string]int)
	filtered := results[:0]
	for _, r := range results {
		if counts[r.DocumentID] < maxPerSource {
			filtered = append(filtered, r)
			counts[r.DocumentID]++
		}
	}
	return filtered
}

// GetDocumentCount returns the total number of indexed documents.
func (s *PostgresVectorStore) GetDocumentCount(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Health pings the database.
func (s *PostgresVectorStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresVectorStore) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var metadataJSON []byte
	err := row.Scan(&doc.DocumentID, &doc.Title, &doc.Content, &doc.Language,
		&metadataJSON, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Metadata = unmarshalMetadata(metadataJSON)
	return &doc, nil
}

func unmarshalMetadata(data []byte) map[string]string {
	out := make(map[string]string)
	if len(data) == 0 {
		return out
	}
	if err := sonic.Unmarshal(data, &out); err != nil {
		logger.GetLogger().Warn("failed to unmarshal metadata", zap.Error(err))
	}
	return out
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
