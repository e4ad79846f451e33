package pdf

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hsn0918/plagiarism/internal/chunking"
)

const sampleMarkdown = `# Research Paper Alpha

Opening paragraph with the abstract of the whole study written out.

## Methods

We collected samples from three regions over two growing seasons.

- first sampling site
- second sampling site

---

## Results

Yield increased significantly in the irrigated plots during both years.
`

func TestExtractElements(t *testing.T) {
	elements, err := ExtractElements(sampleMarkdown)
	if err != nil {
		t.Fatal(err)
	}

	counts := make(map[ElementType]int)
	for _, el := range elements {
		counts[el.Type]++
	}

	if counts[ElementTitle] != 1 {
		t.Errorf("titles = %d, want 1", counts[ElementTitle])
	}
	if counts[ElementHeader] != 2 {
		t.Errorf("headers = %d, want 2", counts[ElementHeader])
	}
	if counts[ElementNarrativeText] != 3 {
		t.Errorf("paragraphs = %d, want 3", counts[ElementNarrativeText])
	}
	if counts[ElementListItem] != 2 {
		t.Errorf("list items = %d, want 2", counts[ElementListItem])
	}
	if counts[ElementPageBreak] != 1 {
		t.Errorf("page breaks = %d, want 1", counts[ElementPageBreak])
	}
}

func TestProcessSections(t *testing.T) {
	e := NewExtractor(chunking.NewChunker(250, 50, 5))

	result, err := e.Process(sampleMarkdown, "doc-1", "paper.pdf")
	if err != nil {
		t.Fatal(err)
	}

	if result.DocumentTitle != "Research Paper Alpha" {
		t.Errorf("title = %q", result.DocumentTitle)
	}
	if result.TotalPages != 2 {
		t.Errorf("pages = %d, want 2", result.TotalPages)
	}

	wantSections := []string{"Research Paper Alpha", "Methods", "Results"}
	if len(result.Chunks) != len(wantSections) {
		t.Fatalf("got %d chunks, want %d: %+v", len(result.Chunks), len(wantSections), result.Chunks)
	}
	for i, ch := range result.Chunks {
		if ch.SectionTitle != wantSections[i] {
			t.Errorf("chunk %d section = %q, want %q", i, ch.SectionTitle, wantSections[i])
		}
		if ch.Position != i {
			t.Errorf("chunk %d position = %d", i, ch.Position)
		}
		wantID := fmt.Sprintf("doc-1_chunk_%d", i)
		if ch.ChunkID != wantID {
			t.Errorf("chunk %d id = %q, want %q", i, ch.ChunkID, wantID)
		}
	}

	// List items are folded into the Methods section content.
	if !strings.Contains(result.Chunks[1].Text, "first sampling site") {
		t.Errorf("methods section missing list content: %q", result.Chunks[1].Text)
	}

	wantMeta := map[string]string{
		"source_name": "paper.pdf",
		"filename":    "paper.pdf",
		"filetype":    "pdf",
		"sections":    "3",
	}
	for k, want := range wantMeta {
		if got := result.PdfMetadata[k]; got != want {
			t.Errorf("pdf metadata %q = %q, want %q", k, got, want)
		}
	}
}

func TestProcessMetadataFilenameStripsPath(t *testing.T) {
	e := NewExtractor(chunking.NewChunker(250, 50, 5))

	result, err := e.Process(sampleMarkdown, "doc-3", "uploads/2024/paper.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got := result.PdfMetadata["filename"]; got != "paper.pdf" {
		t.Errorf("filename = %q, want %q", got, "paper.pdf")
	}
	if got := result.PdfMetadata["source_name"]; got != "uploads/2024/paper.pdf" {
		t.Errorf("source_name = %q, want the full object path", got)
	}
}

func TestProcessIntroductionDefault(t *testing.T) {
	e := NewExtractor(chunking.NewChunker(250, 50, 5))

	md := "A bare paragraph before any heading shows up.\n\n## Later\n\nMore text here.\n"
	result, err := e.Process(md, "doc-2", "intro.pdf")
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Chunks) < 2 {
		t.Fatalf("got %d chunks", len(result.Chunks))
	}
	if result.Chunks[0].SectionTitle != "Introduction" {
		t.Errorf("leading content section = %q, want Introduction", result.Chunks[0].SectionTitle)
	}
	// No usable title in the document, so the file stem is used.
	if result.DocumentTitle != "intro" {
		t.Errorf("fallback title = %q, want intro", result.DocumentTitle)
	}
}

func TestProcessSplitsLargeSection(t *testing.T) {
	e := NewExtractor(chunking.NewChunker(10, 2, 3))

	words := make([]string, 25)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	md := "## Long Section\n\n" + strings.Join(words, " ") + "\n"

	result, err := e.Process(md, "doc-3", "long.pdf")
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Chunks) < 2 {
		t.Fatalf("large section not split: %d chunks", len(result.Chunks))
	}
	for i, ch := range result.Chunks {
		want := fmt.Sprintf("Long Section (part %d/%d)", i+1, len(result.Chunks))
		if ch.SectionTitle != want {
			t.Errorf("chunk %d title = %q, want %q", i, ch.SectionTitle, want)
		}
	}
}

func TestDominantType(t *testing.T) {
	if got := dominantType(nil); got != "Mixed" {
		t.Errorf("empty = %q, want Mixed", got)
	}
	got := dominantType([]ElementType{ElementListItem, ElementNarrativeText, ElementListItem})
	if got != ElementListItem {
		t.Errorf("got %q, want ListItem", got)
	}
}
