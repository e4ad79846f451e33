package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreviewKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"short text untouched", "ngắn"},
		{"long ascii", strings.Repeat("abcdefghij", 30)},
		{"long vietnamese", strings.Repeat("đoạn văn có dấu thanh điệu ", 20)},
		{"long single multibyte rune", strings.Repeat("ạ", previewLength+50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preview(tt.text)
			if !utf8.ValidString(got) {
				t.Fatal("preview produced invalid UTF-8")
			}
			if utf8.RuneCountInString(got) > previewLength {
				t.Errorf("preview kept %d characters, limit is %d",
					utf8.RuneCountInString(got), previewLength)
			}
			if !strings.HasPrefix(tt.text, got) {
				t.Error("preview must be a prefix of the input")
			}
		})
	}
}
