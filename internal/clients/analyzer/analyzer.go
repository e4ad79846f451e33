// Package analyzer wraps the optional LLM explanation step. Two
// implementations exist: a local Ollama chat model and the Gemini API.
// Both share the prompt and response contract; failures always degrade
// to a deterministic fallback instead of failing the check.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/hsn0918/plagiarism/internal/logger"
	"go.uber.org/zap"
)

// MatchSummary is the slice of a match the prompt needs.
type MatchSummary struct {
	DocumentTitle   string
	SimilarityScore float64
	MatchedText     string
}

// SuspiciousSegment is a span the model flagged with its reason.
type SuspiciousSegment struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Result is the analyzer verdict.
type Result struct {
	PlagiarismPercentage float64             `json:"plagiarism_percentage"`
	Severity             string              `json:"severity"`
	Explanation          string              `json:"explanation"`
	SuspiciousSegments   []SuspiciousSegment `json:"suspicious_segments"`
	Confidence           float64             `json:"confidence"`
}

// Analyzer produces an LLM verdict for a plagiarism check.
type Analyzer interface {
	Analyze(ctx context.Context, inputText string, matches []MatchSummary, basePercentage float64) Result
}

const (
	maxPromptInputChars = 2000
	maxSnippetChars     = 500
	maxPromptMatches    = 5
	fallbackConfidence  = 0.6
)

// New selects the analyzer implementation from the configured mode.
func New(cfg *config.Config) Analyzer {
	if cfg.Analyzer.Mode == "external" {
		logger.GetLogger().Info("using external analyzer", zap.String("model", cfg.Analyzer.External.Model))
		return NewGeminiAnalyzer(cfg)
	}
	logger.GetLogger().Info("using internal analyzer", zap.String("model", cfg.Analyzer.Internal.Model))
	return NewOllamaAnalyzer(cfg)
}

// truncateRunes cuts text to at most max characters on a rune boundary
// so Vietnamese text never loses half a code point.
func truncateRunes(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func formatMatches(matches []MatchSummary) string {
	if len(matches) == 0 {
		return "Không tìm thấy kết quả tương tự."
	}

	var b strings.Builder
	for i, m := range matches {
		if i >= maxPromptMatches {
			break
		}
		snippet := truncateRunes(m.MatchedText, maxSnippetChars)
		fmt.Fprintf(&b, "\nKết quả %d:\n- Nguồn: %s\n- Độ tương đồng: %.1f%%\n- Nội dung trùng khớp:\n\"\"\"%s\"\"\"\n",
			i+1, m.DocumentTitle, m.SimilarityScore*100, snippet)
	}
	return b.String()
}

func buildPrompt(inputText, matchesText string, basePercentage float64) string {
	if truncated := truncateRunes(inputText, maxPromptInputChars); truncated != inputText {
		inputText = truncated + "..."
	}

	return fmt.Sprintf(`Bạn là chuyên gia phát hiện đạo văn. Phân tích văn bản sau và đưa ra đánh giá.

VĂN BẢN CẦN KIỂM TRA:
"""%s"""

CÁC KẾT QUẢ TƯƠNG TỰ TÌM THẤY:
%s

ĐIỂM TƯƠNG ĐỒNG CƠ BẢN: %.1f%%

Hãy phân tích và trả lời theo format JSON sau:
{
    "plagiarism_percentage": <số từ 0-100>,
    "severity": "<SAFE|LOW|MEDIUM|HIGH|CRITICAL>",
    "explanation": "<giải thích ngắn gọn bằng tiếng Việt>",
    "suspicious_segments": [
        {
            "text": "<đoạn văn bị nghi ngờ>",
            "reason": "<lý do nghi ngờ>"
        }
    ],
    "confidence": <độ tin cậy từ 0-1>
}

Lưu ý:
- CRITICAL (>=95%%): Copy nguyên văn, đạo văn nghiêm trọng
- HIGH (85-94%%): Đạo văn cao, paraphrase nhẹ
- MEDIUM (70-84%%): Nghi ngờ đạo văn, paraphrase nhiều
- LOW (50-69%%): Có thể trùng ý tưởng
- SAFE (<50%%): An toàn, không đạo văn

Chỉ trả về JSON, không có text khác.`, inputText, matchesText, basePercentage)
}

// cleanJSONResponse strips markdown code fences the model may wrap
// around its JSON.
func cleanJSONResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func parseResponse(responseText string, basePercentage float64, thresholds config.Thresholds) Result {
	var parsed struct {
		PlagiarismPercentage *float64            `json:"plagiarism_percentage"`
		Severity             string              `json:"severity"`
		Explanation          string              `json:"explanation"`
		SuspiciousSegments   []SuspiciousSegment `json:"suspicious_segments"`
		Confidence           *float64            `json:"confidence"`
	}

	if err := sonic.UnmarshalString(cleanJSONResponse(responseText), &parsed); err != nil {
		logger.GetLogger().Warn("failed to parse analyzer response", zap.Error(err))
		return fallbackResult(basePercentage, thresholds)
	}

	result := Result{
		PlagiarismPercentage: basePercentage,
		Severity:             thresholds.SeverityFromPercentage(basePercentage),
		Explanation:          "Không có phân tích chi tiết.",
		SuspiciousSegments:   parsed.SuspiciousSegments,
		Confidence:           0.8,
	}
	if parsed.PlagiarismPercentage != nil {
		result.PlagiarismPercentage = *parsed.PlagiarismPercentage
	}
	if parsed.Severity != "" {
		result.Severity = parsed.Severity
	}
	if parsed.Explanation != "" {
		result.Explanation = parsed.Explanation
	}
	if parsed.Confidence != nil {
		result.Confidence = *parsed.Confidence
	}
	return result
}

// fallbackResult carries the base percentage through when the model is
// unavailable or returned garbage.
func fallbackResult(basePercentage float64, thresholds config.Thresholds) Result {
	return Result{
		PlagiarismPercentage: basePercentage,
		Severity:             thresholds.SeverityFromPercentage(basePercentage),
		Explanation:          "Phân tích dựa trên độ tương đồng vector. AI analysis không khả dụng.",
		SuspiciousSegments:   []SuspiciousSegment{},
		Confidence:           fallbackConfidence,
	}
}
