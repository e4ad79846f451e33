package analyzer

import (
	"context"

	"github.com/hsn0918/plagiarism/internal/clients/base"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// OllamaAnalyzer runs the analysis prompt against a local Ollama chat
// model via /api/generate in JSON mode.
type OllamaAnalyzer struct {
	http       *base.HTTPClient
	model      string
	thresholds config.Thresholds
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Format  string                 `json:"format"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// NewOllamaAnalyzer creates the internal-mode analyzer.
func NewOllamaAnalyzer(cfg *config.Config) *OllamaAnalyzer {
	return &OllamaAnalyzer{
		http:       base.NewHTTPClient("ollama-analyzer", cfg.Analyzer.Internal),
		model:      cfg.Analyzer.Internal.Model,
		thresholds: cfg.Thresholds,
	}
}

// Analyze runs the prompt and parses the JSON verdict. Any failure
// yields the fallback result.
func (a *OllamaAnalyzer) Analyze(ctx context.Context, inputText string, matches []MatchSummary, basePercentage float64) Result {
	prompt := buildPrompt(inputText, formatMatches(matches), basePercentage)

	req := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 1024,
		},
	}

	var resp ollamaGenerateResponse
	if err := a.http.Post(ctx, "/api/generate", req, &resp); err != nil {
		logger.GetLogger().Error("ollama analysis failed", zap.Error(err))
		return fallbackResult(basePercentage, a.thresholds)
	}

	return parseResponse(resp.Response, basePercentage, a.thresholds)
}
