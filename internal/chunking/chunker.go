// Package chunking splits text into overlapping word windows for
// embedding and matching.
package chunking

import (
	"strings"
	"unicode"
)

// Chunk is a contiguous span of the normalized input text.
type Chunk struct {
	Text      string `json:"text"`
	Position  int    `json:"position"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	WordCount int    `json:"word_count"`
}

// Chunker splits text into chunks with word overlap.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// NewChunker returns a chunker with the given window parameters.
// Overlap must be smaller than size; callers validate via config.
func NewChunker(size, overlap, minSize int) *Chunker {
	return &Chunker{ChunkSize: size, ChunkOverlap: overlap, MinChunkSize: minSize}
}

// Normalize collapses runs of whitespace to a single space, strips
// control characters and trims the result. Punctuation and case are
// preserved.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case isControl(r):
			// drop
		default:
			if inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isControl reports whether r is a C0/C1 control character (excluding
// whitespace, which Normalize handles separately).
func isControl(r rune) bool {
	return (r <= 0x08) || r == 0x0b || r == 0x0c ||
		(r >= 0x0e && r <= 0x1f) || (r >= 0x7f && r <= 0x9f)
}

// ChunkText splits text into overlapping chunks of ChunkSize words,
// advancing ChunkSize-ChunkOverlap words per step. Text at or under
// ChunkSize words comes back as a single chunk. A trailing window
// shorter than MinChunkSize words is dropped once at least one chunk
// exists.
func (c *Chunker) ChunkText(text string) []Chunk {
	text = Normalize(text)
	if text == "" {
		return nil
	}

	words := strings.Fields(text)
	if len(words) <= c.ChunkSize {
		return []Chunk{{
			Text:      text,
			Position:  0,
			StartChar: 0,
			EndChar:   len(text),
			WordCount: len(words),
		}}
	}

	var chunks []Chunk
	position := 0
	step := c.ChunkSize - c.ChunkOverlap
	if step <= 0 {
		step = 1
	}

	for wordIndex := 0; wordIndex < len(words); wordIndex += step {
		end := wordIndex + c.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunkWords := words[wordIndex:end]

		if len(chunkWords) < c.MinChunkSize && len(chunks) > 0 {
			break
		}

		chunkText := strings.Join(chunkWords, " ")
		startChar := charPosition(text, wordIndex, words)

		chunks = append(chunks, Chunk{
			Text:      chunkText,
			Position:  position,
			StartChar: startChar,
			EndChar:   startChar + len(chunkText),
			WordCount: len(chunkWords),
		})
		position++
	}

	return chunks
}

// charPosition returns the character offset of words[wordIndex] in the
// normalized text, where every word is followed by a single space.
func charPosition(text string, wordIndex int, words []string) int {
	if wordIndex == 0 {
		return 0
	}
	pos := 0
	for i := 0; i < wordIndex; i++ {
		pos += len(words[i]) + 1
	}
	if pos > len(text) {
		pos = len(text)
	}
	return pos
}

// SplitSentences splits normalized text on sentence-ending punctuation
// followed by whitespace, keeping the punctuation with its sentence.
func SplitSentences(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			s := strings.TrimSpace(string(runes[start : i+1]))
			if s != "" {
				sentences = append(sentences, s)
			}
			// skip the whitespace run
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ChunkBySentences groups sentences into chunks of at most maxSentences,
// carrying the last sentence of each chunk over as overlap. The final
// partial group is kept only when it holds more than one sentence and
// at least MinChunkSize words.
func (c *Chunker) ChunkBySentences(text string, maxSentences int) []Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	position := 0
	var current []string

	for _, sentence := range sentences {
		current = append(current, sentence)
		if len(current) >= maxSentences {
			chunkText := strings.Join(current, " ")
			chunks = append(chunks, Chunk{
				Text:      chunkText,
				Position:  position,
				StartChar: 0,
				EndChar:   len(chunkText),
				WordCount: WordCount(chunkText),
			})
			position++
			current = []string{current[len(current)-1]}
		}
	}

	if len(current) > 1 {
		chunkText := strings.Join(current, " ")
		if wc := WordCount(chunkText); wc >= c.MinChunkSize {
			chunks = append(chunks, Chunk{
				Text:      chunkText,
				Position:  position,
				StartChar: 0,
				EndChar:   len(chunkText),
				WordCount: wc,
			})
		}
	}

	return chunks
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
