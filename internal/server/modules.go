package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/hsn0918/plagiarism/internal/adapters"
	"github.com/hsn0918/plagiarism/internal/chunking"
	"github.com/hsn0918/plagiarism/internal/clients/analyzer"
	"github.com/hsn0918/plagiarism/internal/clients/embedding"
	"github.com/hsn0918/plagiarism/internal/clients/pdfparse"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/detector"
	"github.com/hsn0918/plagiarism/internal/indexer"
	"github.com/hsn0918/plagiarism/internal/logger"
	"github.com/hsn0918/plagiarism/internal/metrics"
	"github.com/hsn0918/plagiarism/internal/pdf"
	"github.com/hsn0918/plagiarism/internal/redis"
	"github.com/hsn0918/plagiarism/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Module is the full application dependency graph.
var Module = fx.Options(
	InfrastructureModule,
	ClientsModule,
	ServicesModule,
	HTTPServerModule,
	fx.Invoke(StartMetricsServer),
	fx.Invoke(StartHTTPServer),
)

// InfrastructureModule provides config, logging, storage and cache.
var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(
		NewAppConfig,
		NewAppLogger,
		NewVectorStore,
		NewCacheService,
		NewObjectStore,
		NewMetrics,
	),
)

// ClientsModule provides the external service clients.
var ClientsModule = fx.Module("clients",
	fx.Provide(
		NewEmbedder,
		NewAnalyzer,
		NewPdfParser,
	),
)

// ServicesModule provides the business services.
var ServicesModule = fx.Module("services",
	fx.Provide(
		NewChunker,
		NewExtractor,
		NewDetector,
		NewIndexer,
		NewPlagiarismServer,
	),
)

// HTTPServerModule provides the RPC listener.
var HTTPServerModule = fx.Module("http_server",
	fx.Provide(
		NewHTTPServer,
	),
)

// NewAppConfig loads configuration from the working directory and the
// environment.
func NewAppConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// NewAppLogger initializes the global zap logger.
func NewAppLogger(cfg *config.Config) (*zap.Logger, error) {
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.ServiceName); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.GetLogger(), nil
}

// NewVectorStore connects to Postgres and ensures the schema exists.
func NewVectorStore(lc fx.Lifecycle, cfg *config.Config, m *metrics.Metrics, _ *zap.Logger) (adapters.VectorStore, error) {
	store, err := adapters.NewPostgresVectorStore(context.Background(), cfg.DSN(), cfg.Embedding.Dims)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	store.SetQueryObserver(m)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})
	return store, nil
}

// NewCacheService connects to Redis. The cache is optional: if Redis
// is unreachable the service runs with an always-miss cache.
func NewCacheService(lc fx.Lifecycle, cfg *config.Config, _ *zap.Logger) *redis.CacheService {
	client, err := redis.NewClient(context.Background(), cfg)
	if err != nil {
		logger.GetLogger().Warn("redis unavailable, caching disabled", zap.Error(err))
		return redis.NewCacheService(nil)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			client.Close()
			return nil
		},
	})
	return redis.NewCacheService(client)
}

// NewObjectStore connects to MinIO.
func NewObjectStore(cfg *config.Config, _ *zap.Logger) (storage.ObjectStore, error) {
	store, err := storage.NewMinIOStore(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	return store, nil
}

// NewMetrics builds the Prometheus collector set.
func NewMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Logging.ServiceName)
}

// NewEmbedder builds the embedding client fronted by the vector cache.
func NewEmbedder(cfg *config.Config, cache *redis.CacheService) embedding.Embedder {
	return embedding.NewCachedEmbedder(embedding.NewClient(cfg), cache)
}

// NewAnalyzer builds the configured AI analyzer.
func NewAnalyzer(cfg *config.Config) analyzer.Analyzer {
	return analyzer.New(cfg)
}

// NewPdfParser builds the remote PDF parsing client.
func NewPdfParser(cfg *config.Config) pdfparse.Parser {
	return pdfparse.NewClient(cfg)
}

// NewChunker builds the word-window chunker.
func NewChunker(cfg *config.Config) *chunking.Chunker {
	return chunking.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, cfg.Chunking.MinChunkSize)
}

// NewExtractor builds the PDF section extractor.
func NewExtractor(chunker *chunking.Chunker) *pdf.Extractor {
	return pdf.NewExtractor(chunker)
}

// NewDetector builds the check engine.
func NewDetector(
	store adapters.VectorStore,
	embedder embedding.Embedder,
	explainer analyzer.Analyzer,
	objects storage.ObjectStore,
	parser pdfparse.Parser,
	extractor *pdf.Extractor,
	cache *redis.CacheService,
	chunker *chunking.Chunker,
	cfg *config.Config,
) *detector.Detector {
	return detector.New(store, embedder, explainer, objects, parser, extractor, cache, chunker, cfg)
}

// NewIndexer builds the ingestion service.
func NewIndexer(
	store adapters.VectorStore,
	embedder embedding.Embedder,
	objects storage.ObjectStore,
	parser pdfparse.Parser,
	extractor *pdf.Extractor,
	cache *redis.CacheService,
	chunker *chunking.Chunker,
) *indexer.Indexer {
	return indexer.New(store, embedder, objects, parser, extractor, cache, chunker)
}

// NewHTTPServer builds the RPC listener with the JSON codec and the
// observability interceptor. Without TLS the server speaks h2c so
// plain gRPC clients can connect.
func NewHTTPServer(svc *PlagiarismServer, m *metrics.Metrics, cfg *config.Config) (*http.Server, error) {
	mux := http.NewServeMux()
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(observability(m)),
	}
	svc.RegisterRoutes(mux, opts...)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr}

	if cfg.TLS.Enabled {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		srv.Handler = mux
		srv.TLSConfig = tlsConfig
	} else {
		srv.Handler = h2c.NewHandler(mux, &http2.Server{})
	}

	logger.GetLogger().Info("rpc server configured",
		zap.String("address", addr), zap.Bool("tls", cfg.TLS.Enabled))
	return srv, nil
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertPath, cfg.TLS.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2"},
	}

	if cfg.TLS.RequireClientCert {
		if cfg.TLS.CAPath == "" {
			return nil, fmt.Errorf("ca_path is required when client certificates are enforced")
		}
		caPEM, err := os.ReadFile(cfg.TLS.CAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// StartMetricsServer runs the Prometheus scrape endpoint for the
// process lifetime.
func StartMetricsServer(m *metrics.Metrics, cfg *config.Config, lc fx.Lifecycle) {
	srv := metrics.NewServer(m, cfg.Logging.MetricsPort)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			srv.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

// StartHTTPServer binds the RPC listener to the fx lifecycle.
func StartHTTPServer(srv *http.Server, cfg *config.Config, lc fx.Lifecycle, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.GetLogger().Info("starting rpc server", zap.String("addr", srv.Addr))
			go func() {
				var err error
				if cfg.TLS.Enabled {
					err = srv.ListenAndServeTLS("", "")
				} else {
					err = srv.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.GetLogger().Error("rpc server failed", zap.Error(err))
					if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
						logger.GetLogger().Error("shutdown failed", zap.Error(shutdownErr))
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.GetLogger().Info("stopping rpc server")
			return srv.Shutdown(ctx)
		},
	})
}
