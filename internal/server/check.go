package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// CheckText runs a plagiarism check on raw text.
func (s *PlagiarismServer) CheckText(
	ctx context.Context,
	req *connect.Request[CheckTextRequest],
) (*connect.Response[CheckTextResponse], error) {
	if strings.TrimSpace(req.Msg.Text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("text is required"))
	}

	start := time.Now()
	result, err := s.detector.Check(ctx, req.Msg.Text, toDetectorOptions(req.Msg.Options))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("check failed: %w", err))
	}
	s.metrics.ObserveCheck(result.Severity, time.Since(start))

	logger.GetLogger().Info("text check completed",
		zap.String("request_id", result.RequestID),
		zap.Float64("percentage", result.PlagiarismPercentage),
		zap.String("severity", result.Severity))

	return connect.NewResponse(&CheckTextResponse{
		RequestID:            result.RequestID,
		PlagiarismPercentage: result.PlagiarismPercentage,
		Severity:             result.Severity,
		Explanation:          result.Explanation,
		Matches:              toMatchInfos(result.Matches),
		Chunks:               toChunkInfos(result.ChunkAnalysis),
		Metadata: CheckMetadata{
			ProcessingTimeMs:  result.ProcessingTimeMs,
			ChunksAnalyzed:    result.ChunksAnalyzed,
			DocumentsSearched: result.DocumentsSearched,
		},
	}), nil
}

// CheckPdfFromObject runs a plagiarism check on a PDF stored in object
// storage. Pipeline failures come back in the response body, not as
// RPC errors.
func (s *PlagiarismServer) CheckPdfFromObject(
	ctx context.Context,
	req *connect.Request[CheckPdfRequest],
) (*connect.Response[CheckPdfResponse], error) {
	if req.Msg.BucketName == "" || req.Msg.ObjectPath == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("bucket_name and object_path are required"))
	}

	start := time.Now()
	result := s.detector.CheckPdfFromObjectStore(ctx, req.Msg.BucketName, req.Msg.ObjectPath, toDetectorOptions(req.Msg.Options))
	if result.Success {
		s.metrics.ObserveCheck(result.Severity, time.Since(start))
	}

	return connect.NewResponse(&CheckPdfResponse{
		Success:              result.Success,
		RequestID:            result.RequestID,
		DocumentTitle:        result.DocumentTitle,
		PlagiarismPercentage: result.PlagiarismPercentage,
		Severity:             result.Severity,
		Explanation:          result.Explanation,
		Matches:              toMatchInfos(result.Matches),
		Chunks:               toChunkInfos(result.ChunkAnalysis),
		Metadata:             result.Metadata,
		ErrorMessage:         result.ErrorMessage,
	}), nil
}
