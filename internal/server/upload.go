package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"connectrpc.com/connect"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// UploadText indexes a single text document.
func (s *PlagiarismServer) UploadText(
	ctx context.Context,
	req *connect.Request[UploadTextRequest],
) (*connect.Response[UploadTextResponse], error) {
	if req.Msg.Title == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("title is required"))
	}
	if req.Msg.Content == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("content is required"))
	}

	result := s.indexer.UploadText(ctx, req.Msg.Title, req.Msg.Content, req.Msg.Metadata, req.Msg.Language, req.Msg.DocumentID)
	s.observeIndexed(result.Success)

	return connect.NewResponse(&UploadTextResponse{
		DocumentID:    result.DocumentID,
		Title:         result.Title,
		ChunksCreated: result.ChunksCreated,
		Message:       result.Message,
		Success:       result.Success,
	}), nil
}

// BatchUpload indexes a client-streamed sequence of documents. One bad
// document does not stop the stream; failures land in the per-document
// results.
func (s *PlagiarismServer) BatchUpload(
	ctx context.Context,
	stream *connect.ClientStream[UploadTextRequest],
) (*connect.Response[BatchUploadResponse], error) {
	var results []BatchUploadResult
	successful := 0

	for stream.Receive() {
		msg := stream.Msg()
		result := s.indexer.UploadText(ctx, msg.Title, msg.Content, msg.Metadata, msg.Language, msg.DocumentID)
		s.observeIndexed(result.Success)

		entry := BatchUploadResult{
			DocumentID: result.DocumentID,
			Title:      result.Title,
			Success:    result.Success,
		}
		if !result.Success {
			entry.Error = result.Message
			if result.Error != "" {
				entry.Error = result.Error
			}
		} else {
			successful++
		}
		results = append(results, entry)
	}
	if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("batch stream failed: %w", err))
	}

	logger.GetLogger().Info("batch upload completed",
		zap.Int("total", len(results)),
		zap.Int("successful", successful))

	return connect.NewResponse(&BatchUploadResponse{
		TotalDocuments: len(results),
		Successful:     successful,
		Failed:         len(results) - successful,
		Results:        results,
	}), nil
}

// IndexPdfFromObject indexes a PDF stored in object storage.
func (s *PlagiarismServer) IndexPdfFromObject(
	ctx context.Context,
	req *connect.Request[IndexPdfRequest],
) (*connect.Response[IndexPdfResponse], error) {
	if req.Msg.BucketName == "" || req.Msg.ObjectPath == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("bucket_name and object_path are required"))
	}

	result := s.indexer.UploadPdfFromObjectStore(ctx, req.Msg.BucketName, req.Msg.ObjectPath,
		req.Msg.DocumentID, req.Msg.Title, req.Msg.Metadata, req.Msg.Language)
	s.observeIndexed(result.Success)

	return connect.NewResponse(&IndexPdfResponse{
		Success:            result.Success,
		DocumentID:         result.DocumentID,
		Title:              result.Title,
		TotalChunks:        result.TotalChunks,
		Chunks:             result.Chunks,
		ProcessingMetadata: result.ProcessingMetadata,
		ErrorMessage:       result.ErrorMessage,
	}), nil
}

func (s *PlagiarismServer) observeIndexed(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	s.metrics.DocumentsIndexed.WithLabelValues(status).Inc()
}
