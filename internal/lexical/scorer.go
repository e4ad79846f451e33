// Package lexical scores surface-level text overlap. It backs the hybrid
// rescoring step that keeps embedding-only false positives out of the
// match list.
package lexical

import (
	"regexp"
	"strings"
)

// CitationPenalty is subtracted from the combined score when the input
// text carries a citation marker.
const CitationPenalty = 0.15

var (
	citationParenRe = regexp.MustCompile(`\([^)]*\d{4}[^)]*\)`)
	nonWordRe       = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spaceRe         = regexp.MustCompile(`\s+`)

	citationPatterns = []*regexp.Regexp{
		citationParenRe,                          // (Author, 2024)
		regexp.MustCompile(`\[[\d,\s]+\]`),       // [1], [1, 2]
		regexp.MustCompile(`(?i)Nguồn:`),         // Nguồn:
		regexp.MustCompile(`(?i)theo\s+[\p{L}\p{N}_]+`), // theo Nguyen
		regexp.MustCompile(`(?i)và\s+đtg`),       // và đồng tác giả
		regexp.MustCompile(`(?i)et\s+al`),        // et al.
	}
)

// Details breaks a combined score into its parts.
type Details struct {
	SemanticScore   float64 `json:"semantic_score"`
	LexicalScore    float64 `json:"lexical_score"`
	CombinedScore   float64 `json:"combined_score"`
	HasCitation     bool    `json:"has_citation"`
	CitationPenalty float64 `json:"citation_penalty"`
}

// NormalizeForComparison lowercases text, strips parenthesized
// year-bearing citations and punctuation, and collapses whitespace.
func NormalizeForComparison(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = citationParenRe.ReplaceAllString(text, "")
	text = nonWordRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard computes word-set Jaccard similarity of two normalized texts.
func Jaccard(text1, text2 string) float64 {
	words1 := wordSet(text1)
	words2 := wordSet(text2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}

	intersection := 0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection
	return float64(intersection) / float64(union)
}

// SequenceRatio computes the character-level similarity
// 2*LCS(a,b)/(len(a)+len(b)) over the runes of the two texts.
func SequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Two-row LCS.
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}

	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// NgramJaccard computes Jaccard similarity over word n-grams.
func NgramJaccard(text1, text2 string, n int) float64 {
	grams := func(text string) map[string]struct{} {
		words := strings.Fields(text)
		if len(words) < n {
			return nil
		}
		set := make(map[string]struct{}, len(words)-n+1)
		for i := 0; i+n <= len(words); i++ {
			set[strings.Join(words[i:i+n], " ")] = struct{}{}
		}
		return set
	}

	g1, g2 := grams(text1), grams(text2)
	if len(g1) == 0 || len(g2) == 0 {
		return 0
	}

	intersection := 0
	for g := range g1 {
		if _, ok := g2[g]; ok {
			intersection++
		}
	}
	union := len(g1) + len(g2) - intersection
	return float64(intersection) / float64(union)
}

// SymmetricLexical blends Jaccard, sequence ratio and bigram overlap
// on the normalized texts: 0.3/0.4/0.3.
func SymmetricLexical(text1, text2 string) float64 {
	n1 := NormalizeForComparison(text1)
	n2 := NormalizeForComparison(text2)
	if n1 == "" || n2 == "" {
		return 0
	}
	return Jaccard(n1, n2)*0.3 + SequenceRatio(n1, n2)*0.4 + NgramJaccard(n1, n2, 2)*0.3
}

// AsymmetricLexical scores how much of matchedText is present in
// inputText. When the word counts are within a 0.7 ratio the symmetric
// blend applies; otherwise containment (what fraction of matched words
// appear in the input) dominates at 0.6 with sequence ratio at 0.4.
func AsymmetricLexical(inputText, matchedText string) float64 {
	inputNorm := NormalizeForComparison(inputText)
	matchedNorm := NormalizeForComparison(matchedText)
	if inputNorm == "" || matchedNorm == "" {
		return 0
	}

	inputWords := wordSet(inputNorm)
	matchedWords := wordSet(matchedNorm)
	if len(inputWords) == 0 || len(matchedWords) == 0 {
		return 0
	}

	lenRatio := float64(len(matchedWords)) / float64(len(inputWords))
	if lenRatio > 0.7 {
		return SymmetricLexical(inputText, matchedText)
	}

	intersection := 0
	for w := range matchedWords {
		if _, ok := inputWords[w]; ok {
			intersection++
		}
	}
	containment := float64(intersection) / float64(len(matchedWords))
	sequence := SequenceRatio(inputNorm, matchedNorm)

	return containment*0.6 + sequence*0.4
}

// HasCitation reports whether text contains a citation marker in any of
// the recognized forms.
func HasCitation(text string) bool {
	for _, p := range citationPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// CombinedSimilarity blends the semantic score with the asymmetric
// lexical score and applies the citation penalty. The result is clamped
// to be non-negative.
func CombinedSimilarity(semanticScore float64, inputText, matchedText string, semanticWeight, lexicalWeight float64) (float64, Details) {
	lexicalScore := AsymmetricLexical(inputText, matchedText)

	cited := HasCitation(inputText)
	penalty := 0.0
	if cited {
		penalty = CitationPenalty
	}

	combined := semanticScore*semanticWeight + lexicalScore*lexicalWeight
	combined -= penalty
	if combined < 0 {
		combined = 0
	}

	return combined, Details{
		SemanticScore:   semanticScore,
		LexicalScore:    lexicalScore,
		CombinedScore:   combined,
		HasCitation:     cited,
		CitationPenalty: penalty,
	}
}
