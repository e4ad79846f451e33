// Package config holds the process-wide configuration snapshot.
// Values come from environment variables (with defaults), loaded once at
// startup and passed to constructors explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Severity labels for plagiarism classification.
const (
	SeveritySafe     = "SAFE"
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// ServiceConfig describes a remote HTTP service dependency.
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// TimeoutDuration returns the configured timeout as a duration.
func (s ServiceConfig) TimeoutDuration() time.Duration {
	if s.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// Thresholds holds the severity cut-offs on a [0,1] score.
type Thresholds struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
	Low      float64 `mapstructure:"low"`
}

// Severity maps a [0,1] similarity score to its severity label.
func (t Thresholds) Severity(score float64) string {
	switch {
	case score >= t.Critical:
		return SeverityCritical
	case score >= t.High:
		return SeverityHigh
	case score >= t.Medium:
		return SeverityMedium
	case score >= t.Low:
		return SeverityLow
	default:
		return SeveritySafe
	}
}

// SeverityFromPercentage maps a [0,100] percentage to its severity label.
func (t Thresholds) SeverityFromPercentage(pct float64) string {
	return t.Severity(pct / 100)
}

// ChunkingConfig controls word-window chunking.
type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	MinChunkSize int `mapstructure:"min_chunk_size"`
}

// SearchConfig controls retrieval and hybrid rescoring.
type SearchConfig struct {
	TopKResults         int     `mapstructure:"top_k_results"`
	MinScoreThreshold   float64 `mapstructure:"min_score_threshold"`
	MaxResultsPerSource int     `mapstructure:"max_results_per_source"`
	Concurrency         int     `mapstructure:"concurrency"`
	SemanticWeight      float64 `mapstructure:"semantic_weight"`
	LexicalWeight       float64 `mapstructure:"lexical_weight"`
}

// Config is the full application configuration.
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	TLS struct {
		Enabled           bool   `mapstructure:"enabled"`
		CertPath          string `mapstructure:"cert_path"`
		KeyPath           string `mapstructure:"key_path"`
		CAPath            string `mapstructure:"ca_path"`
		RequireClientCert bool   `mapstructure:"require_client_cert"`
	} `mapstructure:"tls"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		DBName   string `mapstructure:"dbname"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	MinIO struct {
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		BucketName      string `mapstructure:"bucket_name"`
		UseSSL          bool   `mapstructure:"use_ssl"`
	} `mapstructure:"minio"`
	Logging struct {
		Level       string `mapstructure:"level"`
		Format      string `mapstructure:"format"` // json or console
		ServiceName string `mapstructure:"service_name"`
		MetricsPort int    `mapstructure:"metrics_port"`
	} `mapstructure:"logging"`
	Embedding struct {
		ServiceConfig `mapstructure:",squash"`
		Dims          int `mapstructure:"dims"`
		BatchSize     int `mapstructure:"batch_size"`
	} `mapstructure:"embedding"`
	Analyzer struct {
		Mode     string        `mapstructure:"mode"` // internal or external
		Internal ServiceConfig `mapstructure:"internal"`
		External ServiceConfig `mapstructure:"external"`
	} `mapstructure:"analyzer"`
	PdfParse   ServiceConfig  `mapstructure:"pdfparse"`
	Chunking   ChunkingConfig `mapstructure:"chunking"`
	Search     SearchConfig   `mapstructure:"search"`
	Thresholds Thresholds     `mapstructure:"thresholds"`
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "50051")
	viper.SetDefault("tls.enabled", false)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.dbname", "plagiarism")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.bucket_name", "plagiarism")
	viper.SetDefault("minio.use_ssl", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.service_name", "plagiarism-detection")
	viper.SetDefault("logging.metrics_port", 9107)

	viper.SetDefault("embedding.base_url", "http://localhost:11434")
	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.timeout", 60)
	viper.SetDefault("embedding.dims", 768)
	viper.SetDefault("embedding.batch_size", 32)

	viper.SetDefault("analyzer.mode", "internal")
	viper.SetDefault("analyzer.internal.base_url", "http://localhost:11434")
	viper.SetDefault("analyzer.internal.model", "llama3.2")
	viper.SetDefault("analyzer.internal.timeout", 60)
	viper.SetDefault("analyzer.external.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("analyzer.external.model", "gemini-2.0-flash")
	viper.SetDefault("analyzer.external.timeout", 60)

	viper.SetDefault("chunking.chunk_size", 250)
	viper.SetDefault("chunking.chunk_overlap", 50)
	viper.SetDefault("chunking.min_chunk_size", 50)

	viper.SetDefault("search.top_k_results", 10)
	viper.SetDefault("search.min_score_threshold", 0.50)
	viper.SetDefault("search.max_results_per_source", 3)
	viper.SetDefault("search.concurrency", 8)
	viper.SetDefault("search.semantic_weight", 0.5)
	viper.SetDefault("search.lexical_weight", 0.5)

	viper.SetDefault("thresholds.critical", 0.95)
	viper.SetDefault("thresholds.high", 0.85)
	viper.SetDefault("thresholds.medium", 0.70)
	viper.SetDefault("thresholds.low", 0.50)
}

// LoadConfig loads configuration from environment variables, optionally
// layered over a config.yaml in the given path.
func LoadConfig(path string) (*Config, error) {
	setDefaults()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The config file is optional; environment variables and defaults
	// are the primary source.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Embedding.Dims <= 0 {
		return fmt.Errorf("config: embedding dims must be positive, got %d", c.Embedding.Dims)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("config: chunk overlap %d must be smaller than chunk size %d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Analyzer.Mode != "internal" && c.Analyzer.Mode != "external" {
		return fmt.Errorf("config: analyzer mode must be internal or external, got %q", c.Analyzer.Mode)
	}
	if c.Analyzer.Mode == "external" && c.Analyzer.External.APIKey == "" {
		return fmt.Errorf("config: external analyzer requires an API key")
	}
	if c.TLS.Enabled && (c.TLS.CertPath == "" || c.TLS.KeyPath == "") {
		return fmt.Errorf("config: tls enabled but cert or key path missing")
	}
	return nil
}
