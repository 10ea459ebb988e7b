package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// Candidate is a scored sentence considered by the relevance stage.
type Candidate struct {
	Text     string
	Score    int
	Position int
}

var (
	emphasisRe = regexp.MustCompile("\\*\\*|__|`")
	listMarkRe = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}|[-*+>]|\d{1,2}[.)])[ \t]+`)
)

const sentenceTerminators = ".!?;"

// quotePairs lists the opening and closing mark of each quotation style.
var quotePairs = []struct{ open, close rune }{
	{'"', '"'},
	{'“', '”'},
}

type quotedSpan struct {
	text string
	pos  int
}

// Heuristic derives a best-guess value for the stage field from free text.
// The pipeline is hedge guard, contextual patterns, quoted spans, scored
// sentences and finally the longest meaningful sentence; the first stage that
// yields a value wins.
func Heuristic(text string, stage essay.Stage) (string, bool) {
	rule, ok := RuleFor(stage)
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}

	if containsAny(normalizeWords(text), hedgeMarkers) {
		return "", false
	}

	plain := plainText(text)

	if v, ok := matchContextual(plain, rule); ok {
		return v, true
	}
	if v, ok := matchQuoted(plain); ok {
		return v, true
	}
	if best, ok := bestCandidate(Candidates(plain, stage)); ok {
		return trimTerminators(best.Text), true
	}
	return fallbackSentence(plain)
}

// Candidates returns every sentence eligible for relevance scoring, in text
// order, with its score for stage.
func Candidates(text string, stage essay.Stage) []Candidate {
	rule, ok := RuleFor(stage)
	if !ok {
		return nil
	}
	var out []Candidate
	for i, sentence := range splitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if n < minSpan || n > maxSpan {
			continue
		}
		out = append(out, Candidate{
			Text:     sentence,
			Score:    scoreSentence(sentence, n, rule),
			Position: i,
		})
	}
	return out
}

func matchContextual(text string, rule Rule) (string, bool) {
	for _, re := range rule.patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			span := strings.Trim(strings.TrimSpace(m[1]), `"“”'`)
			span = strings.TrimSpace(span)
			if withinSpan(span) {
				return span, true
			}
		}
	}
	return "", false
}

func matchQuoted(text string) (string, bool) {
	best, bestPos, bestLen := "", -1, 0
	for _, q := range quotedSpans(text) {
		span := strings.TrimSpace(q.text)
		n := utf8.RuneCountInString(span)
		if n < minSpan || n > maxSpan {
			continue
		}
		if n > bestLen || (n == bestLen && q.pos < bestPos) {
			best, bestPos, bestLen = span, q.pos, n
		}
	}
	return best, bestPos >= 0
}

// quotedSpans pairs every opening mark with its own closing mark on the same
// line. A closing mark never opens the next span.
func quotedSpans(text string) []quotedSpan {
	var out []quotedSpan
	for _, q := range quotePairs {
		start := -1
		for i, r := range text {
			switch {
			case start >= 0 && r == q.close:
				out = append(out, quotedSpan{text: text[start:i], pos: start})
				start = -1
			case r == '\n':
				start = -1
			case start < 0 && r == q.open:
				start = i + utf8.RuneLen(r)
			}
		}
	}
	return out
}

func scoreSentence(sentence string, length int, rule Rule) int {
	score := 0
	switch {
	case length >= 30 && length <= 200:
		score += 10
	case length >= 15 && length <= 300:
		score += 5
	}

	normalized := normalizeWords(sentence)
	for _, kw := range rule.Keywords {
		score += 5 * countPhrase(normalized, kw)
	}
	if strings.Contains(sentence, "?") {
		score -= 3
	}
	for _, filler := range fillerPhrases {
		score -= 2 * countPhrase(normalized, filler)
	}
	return score
}

func bestCandidate(candidates []Candidate) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range candidates {
		if c.Score <= 0 {
			continue
		}
		if !found || c.Score > best.Score {
			best, found = c, true
		}
	}
	return best, found
}

func fallbackSentence(text string) (string, bool) {
	best, bestLen := "", 0
	for _, sentence := range splitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if n < 20 || n > maxSpan || n <= bestLen {
			continue
		}
		if startsWithFiller(sentence) {
			continue
		}
		best, bestLen = sentence, n
	}
	if best == "" {
		return "", false
	}
	return trimTerminators(best), true
}

func startsWithFiller(sentence string) bool {
	normalized := normalizeWords(sentence)
	for _, f := range leadingFillers {
		if strings.HasPrefix(normalized, normalizeWords(f)) {
			return true
		}
	}
	return false
}

// splitSentences breaks text at sentence terminators and line breaks. The
// terminator stays attached to its sentence.
func splitSentences(text string) []string {
	var (
		out []string
		b   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if strings.ContainsRune(sentenceTerminators, r) {
			flush()
		}
	}
	flush()
	return out
}

// plainText drops fenced blocks and markdown decoration that would otherwise
// leak into extracted values.
func plainText(text string) string {
	out := fenceRe.ReplaceAllString(text, "\n")
	out = emphasisRe.ReplaceAllString(out, "")
	out = listMarkRe.ReplaceAllString(out, "")
	return out
}

func trimTerminators(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), sentenceTerminators))
}

func withinSpan(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minSpan && n <= maxSpan
}
