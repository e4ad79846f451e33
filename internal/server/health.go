package server

import (
	"context"

	"connectrpc.com/connect"
)

// Health probes every dependency and reports per-component status.
// Overall health requires all components healthy.
func (s *PlagiarismServer) Health(
	ctx context.Context,
	_ *connect.Request[HealthRequest],
) (*connect.Response[HealthResponse], error) {
	components := map[string]ComponentHealth{
		"vector_store":   componentStatus(s.store.Health(ctx)),
		"embedding":      componentStatus(s.embedder.Health(ctx)),
		"object_storage": componentStatus(s.objects.Health(ctx)),
		"cache":          componentStatus(s.cache.Health(ctx)),
	}

	healthy := true
	for _, c := range components {
		if !c.Healthy {
			healthy = false
			break
		}
	}

	return connect.NewResponse(&HealthResponse{
		Healthy:    healthy,
		Components: components,
	}), nil
}

func componentStatus(err error) ComponentHealth {
	if err != nil {
		return ComponentHealth{Healthy: false, Message: err.Error()}
	}
	return ComponentHealth{Healthy: true, Message: "ok"}
}
