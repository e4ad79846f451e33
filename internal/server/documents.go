package server

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"
)

const defaultSearchLimit = 10

// GetDocument fetches a stored document by id.
func (s *PlagiarismServer) GetDocument(
	ctx context.Context,
	req *connect.Request[GetDocumentRequest],
) (*connect.Response[GetDocumentResponse], error) {
	if req.Msg.DocumentID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("document_id is required"))
	}

	doc, err := s.store.GetDocument(ctx, req.Msg.DocumentID, req.Msg.IncludeChunks)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to get document: %w", err))
	}
	if doc == nil {
		return connect.NewResponse(&GetDocumentResponse{Found: false}), nil
	}

	info := &DocumentInfo{
		DocumentID: doc.DocumentID,
		Title:      doc.Title,
		Language:   doc.Language,
		Metadata:   doc.Metadata,
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  doc.UpdatedAt.Format(time.RFC3339),
	}
	if req.Msg.IncludeContent {
		info.Content = doc.Content
	}
	if req.Msg.IncludeChunks {
		info.Chunks = make([]DocumentChunkInfo, len(doc.Chunks))
		for i, c := range doc.Chunks {
			info.Chunks[i] = DocumentChunkInfo{
				ChunkID:   c.ChunkID,
				Text:      c.Text,
				Position:  c.Position,
				WordCount: c.WordCount,
			}
		}
	}

	return connect.NewResponse(&GetDocumentResponse{Found: true, Document: info}), nil
}

// DeleteDocument removes a document and its chunks.
func (s *PlagiarismServer) DeleteDocument(
	ctx context.Context,
	req *connect.Request[DeleteDocumentRequest],
) (*connect.Response[DeleteDocumentResponse], error) {
	if req.Msg.DocumentID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("document_id is required"))
	}

	deleted, err := s.store.DeleteDocument(ctx, req.Msg.DocumentID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to delete document: %w", err))
	}

	resp := &DeleteDocumentResponse{Success: deleted, Message: "Document deleted"}
	if !deleted {
		resp.Message = "Document not found"
	}
	return connect.NewResponse(resp), nil
}

// SearchDocuments lists documents matching a text query and metadata
// filters.
func (s *PlagiarismServer) SearchDocuments(
	ctx context.Context,
	req *connect.Request[SearchDocumentsRequest],
) (*connect.Response[SearchDocumentsResponse], error) {
	limit := req.Msg.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	offset := req.Msg.Offset
	if offset < 0 {
		offset = 0
	}

	docs, total, err := s.store.SearchDocuments(ctx, req.Msg.Query, req.Msg.Filters, limit, offset)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to search documents: %w", err))
	}

	summaries := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		summaries[i] = DocumentSummary{
			DocumentID: d.DocumentID,
			Title:      d.Title,
			Language:   d.Language,
			ChunkCount: d.ChunkCount,
			CreatedAt:  d.CreatedAt.Format(time.RFC3339),
			Metadata:   d.Metadata,
		}
	}

	return connect.NewResponse(&SearchDocumentsResponse{
		Documents: summaries,
		Total:     total,
	}), nil
}
