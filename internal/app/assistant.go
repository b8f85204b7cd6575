package app

import (
	"sort"
	"strings"
	"unicode"
)

const (
	maxReplySnippets = 3
	minKeywordLen    = 3
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "that": true,
	"this": true, "with": true, "what": true, "does": true, "how": true,
	"about": true, "from": true, "have": true, "will": true, "can": true,
	"you": true, "your": true, "tell": true, "say": true, "mean": true,
}

// answerFromDocument picks the document sentences most relevant to the
// question and quotes them. With no document or no overlap it answers
// with a fixed fallback.
func answerFromDocument(docText, question string) string {
	if strings.TrimSpace(docText) == "" {
		return "This chat has no document attached. Upload a document and start a chat from it to ask questions about its contents."
	}
	keywords := questionKeywords(question)
	if len(keywords) == 0 {
		return "Could you rephrase that? Ask about specific terms or sections of the document."
	}

	sentences := splitSentences(docText)
	type scored struct {
		idx   int
		score int
	}
	var hits []scored
	for i, s := range sentences {
		lower := strings.ToLower(s)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	if len(hits) == 0 {
		return "I could not find anything in the document matching your question. Try different wording or ask about another section."
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > maxReplySnippets {
		hits = hits[:maxReplySnippets]
	}
	// Present snippets in document order.
	sort.Slice(hits, func(i, j int) bool { return hits[i].idx < hits[j].idx })

	var b strings.Builder
	b.WriteString("Here is what the document says:\n")
	for _, h := range hits {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(sentences[h.idx]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func questionKeywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var out []string
	for _, f := range fields {
		if len(f) < minKeywordLen || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); len(s) > 1 {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(s) > 1 {
		out = append(out, s)
	}
	return out
}
