package chunking

import (
	"fmt"
	"strings"
	"testing"
)

func makeWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapse whitespace", "hello   world\n\ttest", "hello world test"},
		{"trim", "  hello  ", "hello"},
		{"control chars removed", "he\x00llo\x1fworld", "helloworld"},
		{"punctuation kept", "Hello, world! How are you?", "Hello, world! How are you?"},
		{"case preserved", "Hello World", "Hello World"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunkTextSingleChunk(t *testing.T) {
	c := NewChunker(10, 2, 3)
	text := makeWords(7)

	chunks := c.ChunkText(text)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	got := chunks[0]
	if got.Text != text {
		t.Errorf("chunk text = %q, want full text", got.Text)
	}
	if got.Position != 0 || got.StartChar != 0 || got.EndChar != len(text) {
		t.Errorf("chunk bounds = (%d, %d, %d), want (0, 0, %d)",
			got.Position, got.StartChar, got.EndChar, len(text))
	}
	if got.WordCount != 7 {
		t.Errorf("word count = %d, want 7", got.WordCount)
	}
}

func TestChunkTextOverlap(t *testing.T) {
	c := NewChunker(10, 2, 3)
	chunks := c.ChunkText(makeWords(25))

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Position != i {
			t.Errorf("chunk %d position = %d", i, ch.Position)
		}
	}

	// Consecutive chunks share the overlap words.
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	if first[8] != second[0] || first[9] != second[1] {
		t.Errorf("overlap mismatch: %v vs %v", first[8:], second[:2])
	}

	// Last window of a single word is below min chunk size and dropped.
	last := chunks[len(chunks)-1]
	if last.WordCount != 9 {
		t.Errorf("last chunk word count = %d, want 9", last.WordCount)
	}
}

func TestChunkTextOffsets(t *testing.T) {
	c := NewChunker(3, 1, 1)
	text := "aa bb cc dd ee"
	chunks := c.ChunkText(text)

	for _, ch := range chunks {
		sub := text[ch.StartChar:min(ch.EndChar, len(text))]
		if !strings.HasPrefix(ch.Text, strings.Fields(sub)[0]) {
			t.Errorf("chunk %d offsets do not land on its text: %q vs %q",
				ch.Position, ch.Text, sub)
		}
	}
}

func TestChunkTextEmpty(t *testing.T) {
	c := NewChunker(10, 2, 3)
	if got := c.ChunkText("   \n\t  "); got != nil {
		t.Errorf("whitespace-only input produced %d chunks", len(got))
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{
			"basic",
			"First sentence. Second one! Third?",
			[]string{"First sentence.", "Second one!", "Third?"},
		},
		{
			"no terminator",
			"just a fragment",
			[]string{"just a fragment"},
		},
		{
			"abbrev-free multi space",
			"One.   Two.",
			[]string{"One.", "Two."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d sentences %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkBySentences(t *testing.T) {
	c := NewChunker(250, 50, 2)

	var sb strings.Builder
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&sb, "Sentence number %d has several words here. ", i)
	}

	chunks := c.ChunkBySentences(sb.String(), 5)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}

	first := chunks[0]
	if got := len(SplitSentences(first.Text)); got != 5 {
		t.Errorf("first chunk has %d sentences, want 5", got)
	}

	// Overlap: next chunk starts with the previous chunk's last sentence.
	if len(chunks) > 1 {
		prev := SplitSentences(chunks[0].Text)
		next := SplitSentences(chunks[1].Text)
		if prev[len(prev)-1] != next[0] {
			t.Errorf("sentence overlap mismatch: %q vs %q", prev[len(prev)-1], next[0])
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"too short", "hello", "unknown"},
		// 16 characters but 22 bytes; the floor counts characters.
		{"too short vietnamese", "Trí tuệ nhân tạo", "unknown"},
		{"exactly twenty runes vietnamese", "Trí tuệ nhân tạo đổi", "vi"},
		{"vietnamese", "Trí tuệ nhân tạo đang thay đổi thế giới hiện đại", "vi"},
		{"english", "The quick brown fox jumps over the lazy dog in the field", "en"},
		{"noise", "xyzzy qwerty asdfgh zxcvbn plmokn ijnuhb", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.in); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount(""); got != 0 {
		t.Errorf("WordCount empty = %d", got)
	}
	if got := WordCount("one two  three"); got != 3 {
		t.Errorf("WordCount = %d, want 3", got)
	}
}
