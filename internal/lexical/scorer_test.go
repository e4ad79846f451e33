package lexical

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeForComparison(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "Hello World", "hello world"},
		{"citation stripped", "known result (Nguyen, 2024) here", "known result here"},
		{"punctuation to space", "one, two; three!", "one two three"},
		{"whitespace collapsed", "a   b\tc", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeForComparison(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		want   float64
	}{
		{"identical", "a b c", "a b c", 1},
		{"disjoint", "a b", "c d", 0},
		{"half", "a b c d", "c d e f", 1.0 / 3.0},
		{"empty", "", "a", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Jaccard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSequenceRatio(t *testing.T) {
	if got := SequenceRatio("abc", "abc"); !almostEqual(got, 1) {
		t.Errorf("identical = %v, want 1", got)
	}
	if got := SequenceRatio("abc", "xyz"); !almostEqual(got, 0) {
		t.Errorf("disjoint = %v, want 0", got)
	}
	// LCS("abcd", "abxd") = 3, ratio = 6/8.
	if got := SequenceRatio("abcd", "abxd"); !almostEqual(got, 0.75) {
		t.Errorf("partial = %v, want 0.75", got)
	}
	if got := SequenceRatio("", "abc"); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
}

func TestNgramJaccard(t *testing.T) {
	// bigrams of "a b c": {a b, b c}; of "a b d": {a b, b d}.
	if got := NgramJaccard("a b c", "a b d", 2); !almostEqual(got, 1.0/3.0) {
		t.Errorf("got %v, want 1/3", got)
	}
	if got := NgramJaccard("one", "one two", 2); got != 0 {
		t.Errorf("short text = %v, want 0", got)
	}
}

func TestHasCitation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"paren year", "as shown (Nguyen, 2024) before", true},
		{"bracket", "this is known [1, 2]", true},
		{"nguon", "Nguồn: Tổng cục thống kê", true},
		{"theo", "theo Nguyen thì kết quả", true},
		{"dtg", "Phát và đtg đã chỉ ra", true},
		{"et al", "Smith et al. showed", true},
		{"none", "plain uncited prose", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCitation(tt.in); got != tt.want {
				t.Errorf("HasCitation(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAsymmetricLexicalContainment(t *testing.T) {
	// The matched text is fully contained in a much longer input.
	matched := "giống xoài cát hòa lộc nổi tiếng"
	input := matched + " " +
		"cùng nhiều giống cây ăn trái khác được trồng rộng rãi tại các " +
		"tỉnh đồng bằng sông cửu long với sản lượng tăng đều qua từng năm " +
		"nhờ kỹ thuật canh tác ngày càng hiện đại và thị trường xuất khẩu mở rộng"

	score := AsymmetricLexical(input, matched)
	if score < 0.6 {
		t.Errorf("contained text scored %v, want >= 0.6 (containment weight)", score)
	}

	// Symmetric path for similar-length texts.
	sym := AsymmetricLexical("a b c d e", "a b c d f")
	want := SymmetricLexical("a b c d e", "a b c d f")
	if !almostEqual(sym, want) {
		t.Errorf("similar lengths: got %v, want symmetric %v", sym, want)
	}
}

func TestCombinedSimilarity(t *testing.T) {
	t.Run("weights applied", func(t *testing.T) {
		got, details := CombinedSimilarity(0.8, "a b c", "a b c", 0.5, 0.5)
		if details.LexicalScore <= 0.99 {
			t.Fatalf("identical texts lexical = %v, want ~1", details.LexicalScore)
		}
		want := 0.8*0.5 + details.LexicalScore*0.5
		if !almostEqual(got, want) {
			t.Errorf("combined = %v, want %v", got, want)
		}
		if details.HasCitation || details.CitationPenalty != 0 {
			t.Errorf("unexpected citation flags: %+v", details)
		}
	})

	t.Run("citation penalty", func(t *testing.T) {
		input := "kết quả đã công bố (Nguyen, 2024) về sản lượng"
		withCite, details := CombinedSimilarity(0.9, input, "kết quả đã công bố về sản lượng", 0.5, 0.5)
		if !details.HasCitation || !almostEqual(details.CitationPenalty, CitationPenalty) {
			t.Fatalf("citation not detected: %+v", details)
		}
		noCite, _ := CombinedSimilarity(0.9, "kết quả đã công bố về sản lượng", "kết quả đã công bố về sản lượng", 0.5, 0.5)
		if withCite >= noCite {
			t.Errorf("cited %v should score below uncited %v", withCite, noCite)
		}
	})

	t.Run("clamped at zero", func(t *testing.T) {
		got, _ := CombinedSimilarity(0, "see (Nguyen, 2024)", "unrelated words entirely", 0.5, 0.5)
		if got < 0 {
			t.Errorf("combined = %v, want >= 0", got)
		}
	})
}
