package chunking

import (
	"strings"
	"unicode/utf8"
)

// Vietnamese-specific letters (with tone marks) that do not occur in
// English text.
const vietnameseLetters = "ăâđêôơưàảãáạằẳẵắặầẩẫấậèẻẽéẹềểễếệìỉĩíịòỏõóọồổỗốộờởỡớợùủũúụừửữứựỳỷỹýỵ"

var englishStopwords = map[string]struct{}{
	"the": {}, "and": {}, "is": {}, "of": {}, "to": {}, "in": {},
	"that": {}, "it": {}, "for": {}, "with": {}, "as": {}, "was": {},
	"are": {}, "this": {}, "be": {}, "on": {}, "not": {}, "by": {},
}

// DetectLanguage guesses the language of text. The result is advisory
// metadata only. Returns "vi", "en" or "unknown".
func DetectLanguage(text string) string {
	text = Normalize(text)
	// Length floor counts characters, not bytes: 20 bytes of accented
	// Vietnamese can be well under 20 letters.
	if utf8.RuneCountInString(text) < 20 {
		return "unknown"
	}

	lower := strings.ToLower(text)
	for _, r := range lower {
		if strings.ContainsRune(vietnameseLetters, r) {
			return "vi"
		}
	}

	hits := 0
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if _, ok := englishStopwords[w]; ok {
			hits++
			if hits >= 2 {
				return "en"
			}
		}
	}

	return "unknown"
}
