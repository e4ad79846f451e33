package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hsn0918/plagiarism/internal/config"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short ascii untouched", "hello", 10, "hello"},
		{"ascii cut at limit", "hello world", 5, "hello"},
		{"multibyte under limit by runes", "ạạạ", 3, "ạạạ"},
		{"multibyte cut on rune boundary", "ạạạạạ", 3, "ạạạ"},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.text, tt.max)
			if got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateRunes(%q, %d) produced invalid UTF-8", tt.text, tt.max)
			}
		})
	}
}

func TestFormatMatchesKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("đoạn văn tiếng Việt có dấu ", 40)
	out := formatMatches([]MatchSummary{{
		DocumentTitle:   "Tài liệu",
		SimilarityScore: 0.92,
		MatchedText:     long,
	}})

	if !utf8.ValidString(out) {
		t.Fatal("formatMatches produced invalid UTF-8")
	}
	if !strings.Contains(out, "Tài liệu") {
		t.Errorf("formatMatches output missing source title: %q", out)
	}
}

func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ạ", maxPromptInputChars+100)
	prompt := buildPrompt(long, "no matches", 42.0)

	if !utf8.ValidString(prompt) {
		t.Fatal("buildPrompt produced invalid UTF-8")
	}
	if !strings.Contains(prompt, strings.Repeat("ạ", maxPromptInputChars)+"...") {
		t.Error("buildPrompt did not truncate the input at the character limit")
	}
}

func TestBuildPromptShortInputNotMarked(t *testing.T) {
	prompt := buildPrompt("văn bản ngắn", "no matches", 10.0)
	if strings.Contains(prompt, "văn bản ngắn...") {
		t.Error("short input should not carry a truncation marker")
	}
}

func TestGeminiEndpointOmitsAPIKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Analyzer.Mode = "external"
	cfg.Analyzer.External = config.ServiceConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		APIKey:  "secret-key-123",
		Model:   "gemini-2.0-flash",
	}

	a := NewGeminiAnalyzer(cfg)
	if strings.Contains(a.endpoint, "secret-key-123") {
		t.Fatalf("endpoint leaks the API key: %q", a.endpoint)
	}
	if strings.Contains(a.endpoint, "key=") {
		t.Fatalf("endpoint carries a key parameter: %q", a.endpoint)
	}
	if want := "/v1beta/models/gemini-2.0-flash:generateContent"; a.endpoint != want {
		t.Errorf("endpoint = %q, want %q", a.endpoint, want)
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.in); got != tt.want {
				t.Errorf("cleanJSONResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
