// Package pdf turns parsed PDF markdown into section-aware chunks
// ready for embedding.
package pdf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hsn0918/plagiarism/internal/chunking"
)

// Section is a run of content under one title.
type Section struct {
	SectionTitle string
	Content      string
	ElementType  ElementType
	Position     int
	WordCount    int
}

// Chunk is a section-derived chunk ready for indexing.
type Chunk struct {
	ChunkID      string
	SectionTitle string
	Text         string
	ElementType  ElementType
	Position     int
	WordCount    int
}

// Result of processing one document.
type Result struct {
	DocumentTitle string
	Chunks        []Chunk
	TotalPages    int
	TotalElements int
	PdfMetadata   map[string]string
}

// Extractor converts markdown into chunks.
type Extractor struct {
	chunker *chunking.Chunker
}

// NewExtractor wraps the chunker used for oversized sections.
func NewExtractor(chunker *chunking.Chunker) *Extractor {
	return &Extractor{chunker: chunker}
}

// Process runs the full pipeline: markdown -> elements -> sections ->
// chunks. sourceName is the object name used for the title fallback.
func (e *Extractor) Process(markdown, documentID, sourceName string) (*Result, error) {
	elements, err := ExtractElements(markdown)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("pdf: no content extracted from %s", sourceName)
	}

	sections := groupIntoSections(elements)
	chunks := e.sectionsToChunks(sections, documentID)

	return &Result{
		DocumentTitle: extractDocumentTitle(elements, sourceName),
		Chunks:        chunks,
		TotalPages:    countPages(elements),
		TotalElements: len(elements),
		PdfMetadata: map[string]string{
			"source_name": sourceName,
			"filename":    filepath.Base(sourceName),
			"filetype":    "pdf",
			"sections":    fmt.Sprintf("%d", len(sections)),
		},
	}, nil
}

// extractDocumentTitle takes the first real title in the opening
// elements, falling back to the file stem.
func extractDocumentTitle(elements []Element, sourceName string) string {
	limit := len(elements)
	if limit > 10 {
		limit = 10
	}
	for _, el := range elements[:limit] {
		if el.Type == ElementTitle {
			title := strings.TrimSpace(el.Text)
			if len(title) > 3 {
				return title
			}
		}
	}
	base := filepath.Base(sourceName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isTitleType reports whether the element opens a new section.
func isTitleType(t ElementType) bool {
	return t == ElementTitle || t == ElementHeader
}

// isContentType reports whether the element contributes section text.
func isContentType(t ElementType) bool {
	switch t {
	case ElementNarrativeText, ElementListItem, ElementTable, ElementText:
		return true
	}
	return false
}

// groupIntoSections accumulates content elements under the most recent
// title. Content before the first title lands in "Introduction";
// footers are dropped.
func groupIntoSections(elements []Element) []Section {
	var sections []Section
	currentTitle := "Introduction"
	var currentContent []string
	var currentTypes []ElementType
	position := 0

	flush := func() {
		if len(currentContent) == 0 {
			return
		}
		if s, ok := buildSection(currentTitle, currentContent, currentTypes, position); ok {
			sections = append(sections, s)
			position++
		}
		currentContent = nil
		currentTypes = nil
	}

	for _, el := range elements {
		switch {
		case el.Type == ElementFooter:
			continue
		case isTitleType(el.Type):
			flush()
			currentTitle = strings.TrimSpace(el.Text)
			if currentTitle == "" {
				currentTitle = "Untitled Section"
			}
		case isContentType(el.Type):
			if txt := strings.TrimSpace(el.Text); txt != "" {
				currentContent = append(currentContent, txt)
				currentTypes = append(currentTypes, el.Type)
			}
		}
	}
	flush()

	return sections
}

func buildSection(title string, parts []string, types []ElementType, position int) (Section, bool) {
	content := chunking.Normalize(strings.Join(parts, "\n\n"))
	if content == "" {
		return Section{}, false
	}

	return Section{
		SectionTitle: title,
		Content:      content,
		ElementType:  dominantType(types),
		Position:     position,
		WordCount:    chunking.WordCount(content),
	}, true
}

// dominantType is the most common element type; empty input yields
// Mixed.
func dominantType(types []ElementType) ElementType {
	if len(types) == 0 {
		return "Mixed"
	}
	counts := make(map[ElementType]int)
	for _, t := range types {
		counts[t]++
	}
	best := types[0]
	for _, t := range types {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

// sectionsToChunks emits one chunk per small section and splits larger
// sections through the word-window chunker, tagging part titles.
func (e *Extractor) sectionsToChunks(sections []Section, documentID string) []Chunk {
	var chunks []Chunk
	position := 0

	for _, section := range sections {
		if section.WordCount <= e.chunker.ChunkSize {
			chunks = append(chunks, Chunk{
				ChunkID:      fmt.Sprintf("%s_chunk_%d", documentID, position),
				SectionTitle: section.SectionTitle,
				Text:         section.Content,
				ElementType:  section.ElementType,
				Position:     position,
				WordCount:    section.WordCount,
			})
			position++
			continue
		}

		textChunks := e.chunker.ChunkText(section.Content)
		for i, tc := range textChunks {
			title := section.SectionTitle
			if len(textChunks) > 1 {
				title = fmt.Sprintf("%s (part %d/%d)", section.SectionTitle, i+1, len(textChunks))
			}
			chunks = append(chunks, Chunk{
				ChunkID:      fmt.Sprintf("%s_chunk_%d", documentID, position),
				SectionTitle: title,
				Text:         tc.Text,
				ElementType:  section.ElementType,
				Position:     position,
				WordCount:    tc.WordCount,
			})
			position++
		}
	}

	return chunks
}

// countPages counts page breaks; a document always has at least one
// page.
func countPages(elements []Element) int {
	pages := 1
	for _, el := range elements {
		if el.Type == ElementPageBreak {
			pages++
		}
	}
	return pages
}
