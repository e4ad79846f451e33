package analyzer

import (
	"context"
	"fmt"

	"github.com/hsn0918/plagiarism/internal/clients/base"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// GeminiAnalyzer runs the analysis prompt against the Gemini API.
type GeminiAnalyzer struct {
	http       *base.HTTPClient
	endpoint   string
	thresholds config.Thresholds
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiAnalyzer creates the external-mode analyzer. The API key
// travels in the x-goog-api-key header so it never appears in request
// paths or error strings.
func NewGeminiAnalyzer(cfg *config.Config) *GeminiAnalyzer {
	svc := cfg.Analyzer.External
	apiKey := svc.APIKey
	svc.APIKey = ""

	http := base.NewHTTPClient("gemini-analyzer", svc)
	if apiKey != "" {
		http.SetHeader("x-goog-api-key", apiKey)
	}

	return &GeminiAnalyzer{
		http:       http,
		endpoint:   geminiEndpoint(svc.Model),
		thresholds: cfg.Thresholds,
	}
}

// geminiEndpoint builds the generateContent path for a model. It must
// stay free of credentials: the path ends up in client errors and logs.
func geminiEndpoint(model string) string {
	return fmt.Sprintf("/v1beta/models/%s:generateContent", model)
}

// Analyze runs the prompt and parses the JSON verdict. Any failure
// yields the fallback result.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, inputText string, matches []MatchSummary, basePercentage float64) Result {
	prompt := buildPrompt(inputText, formatMatches(matches), basePercentage)

	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.1,
			MaxOutputTokens:  4096,
			ResponseMimeType: "application/json",
		},
	}

	var resp geminiResponse
	if err := a.http.Post(ctx, a.endpoint, req, &resp); err != nil {
		logger.GetLogger().Error("gemini analysis failed", zap.Error(err))
		return fallbackResult(basePercentage, a.thresholds)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		logger.GetLogger().Warn("gemini returned no candidates")
		return fallbackResult(basePercentage, a.thresholds)
	}

	return parseResponse(resp.Candidates[0].Content.Parts[0].Text, basePercentage, a.thresholds)
}
