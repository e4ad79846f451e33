// Package server exposes the plagiarism service over Connect RPC.
package server

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/hsn0918/plagiarism/internal/adapters"
	"github.com/hsn0918/plagiarism/internal/clients/embedding"
	"github.com/hsn0918/plagiarism/internal/detector"
	"github.com/hsn0918/plagiarism/internal/indexer"
	"github.com/hsn0918/plagiarism/internal/metrics"
	"github.com/hsn0918/plagiarism/internal/redis"
	"github.com/hsn0918/plagiarism/internal/storage"
)

// PlagiarismServer implements every RPC of the plagiarism service.
type PlagiarismServer struct {
	detector *detector.Detector
	indexer  *indexer.Indexer
	store    adapters.VectorStore
	embedder embedding.Embedder
	objects  storage.ObjectStore
	cache    *redis.CacheService
	metrics  *metrics.Metrics
}

// NewPlagiarismServer wires the RPC surface.
func NewPlagiarismServer(
	det *detector.Detector,
	ix *indexer.Indexer,
	store adapters.VectorStore,
	embedder embedding.Embedder,
	objects storage.ObjectStore,
	cache *redis.CacheService,
	m *metrics.Metrics,
) *PlagiarismServer {
	return &PlagiarismServer{
		detector: det,
		indexer:  ix,
		store:    store,
		embedder: embedder,
		objects:  objects,
		cache:    cache,
		metrics:  m,
	}
}

// RegisterRoutes mounts every procedure on the mux.
func (s *PlagiarismServer) RegisterRoutes(mux *http.ServeMux, opts ...connect.HandlerOption) {
	register := func(name string, handler http.Handler) {
		mux.Handle(procedurePrefix+name, handler)
	}

	register("CheckText", connect.NewUnaryHandler(procedurePrefix+"CheckText", s.CheckText, opts...))
	register("UploadText", connect.NewUnaryHandler(procedurePrefix+"UploadText", s.UploadText, opts...))
	register("BatchUpload", connect.NewClientStreamHandler(procedurePrefix+"BatchUpload", s.BatchUpload, opts...))
	register("GetDocument", connect.NewUnaryHandler(procedurePrefix+"GetDocument", s.GetDocument, opts...))
	register("DeleteDocument", connect.NewUnaryHandler(procedurePrefix+"DeleteDocument", s.DeleteDocument, opts...))
	register("SearchDocuments", connect.NewUnaryHandler(procedurePrefix+"SearchDocuments", s.SearchDocuments, opts...))
	register("IndexPdfFromObject", connect.NewUnaryHandler(procedurePrefix+"IndexPdfFromObject", s.IndexPdfFromObject, opts...))
	register("CheckPdfFromObject", connect.NewUnaryHandler(procedurePrefix+"CheckPdfFromObject", s.CheckPdfFromObject, opts...))
	register("Health", connect.NewUnaryHandler(procedurePrefix+"Health", s.Health, opts...))
}
