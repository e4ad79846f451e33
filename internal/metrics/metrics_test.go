package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveVectorQueryCounts(t *testing.T) {
	m := New("test-service")

	m.ObserveVectorQuery("knn_search", 15*time.Millisecond)
	m.ObserveVectorQuery("knn_search", 20*time.Millisecond)
	m.ObserveVectorQuery("search_documents", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.VectorQueriesTotal.WithLabelValues("knn_search")); got != 2 {
		t.Errorf("knn_search count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.VectorQueriesTotal.WithLabelValues("search_documents")); got != 1 {
		t.Errorf("search_documents count = %v, want 1", got)
	}
}

func TestObserveRPCCounts(t *testing.T) {
	m := New("test-service")

	m.ObserveRPC("/plagiarism.v1.PlagiarismService/CheckText", "ok", time.Second)
	m.ObserveRPC("/plagiarism.v1.PlagiarismService/CheckText", "error", time.Second)

	if got := testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("/plagiarism.v1.PlagiarismService/CheckText", "ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("/plagiarism.v1.PlagiarismService/CheckText", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestObserveCheckCounts(t *testing.T) {
	m := New("test-service")

	m.ObserveCheck("CRITICAL", 2*time.Second)
	m.ObserveCheck("SAFE", time.Second)
	m.ObserveCheck("SAFE", time.Second)

	if got := testutil.ToFloat64(m.ChecksTotal.WithLabelValues("SAFE")); got != 2 {
		t.Errorf("SAFE count = %v, want 2", got)
	}
}
