package server

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/hsn0918/plagiarism/internal/logger"
	"github.com/hsn0918/plagiarism/internal/metrics"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// requestID returns the caller-supplied X-Request-Id, minting one when
// the header is absent so every RPC log line carries an id.
func requestID(req connect.AnyRequest) string {
	if id := req.Header().Get(requestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// observability returns an interceptor that logs every unary RPC and
// records it into the Prometheus collectors.
func observability(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			method := req.Spec().Procedure
			reqID := requestID(req)
			start := time.Now()

			m.RPCRequestsInFlight.Inc()
			resp, err := next(ctx, req)
			m.RPCRequestsInFlight.Dec()

			duration := time.Since(start)
			status := "ok"
			if err != nil {
				status = "error"
				m.RPCErrorsTotal.WithLabelValues(method, connect.CodeOf(err).String()).Inc()
				logger.GetLogger().Error("rpc failed",
					zap.String("method", method),
					zap.String("request_id", reqID),
					zap.Duration("duration", duration),
					zap.Error(err))
			} else {
				logger.GetLogger().Info("rpc completed",
					zap.String("method", method),
					zap.String("request_id", reqID),
					zap.Duration("duration", duration))
			}
			m.ObserveRPC(method, status, duration)

			return resp, err
		}
	}
}
