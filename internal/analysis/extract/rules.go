package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// Rule is the per-stage vocabulary consumed by the heuristic extractor.
type Rule struct {
	Stage     essay.Stage
	Phrases   []string
	Keywords  []string
	MinLength int

	patterns []*regexp.Regexp
}

const (
	minSpan = 15
	maxSpan = 400
)

var hedgeMarkers = []string{
	"example", "examples", "for instance", "suggestion", "suggestions",
	"you could", "you might", "consider using", "try", "one option would be",
	"exemplo", "exemplos", "sugestão", "sugestões", "você poderia",
	"você pode", "considere usar", "tente", "uma opção seria",
}

var fillerPhrases = []string{
	"let's", "now", "so", "ok", "okay", "right", "well",
	"vamos", "agora", "então", "certo", "bem",
}

var leadingFillers = []string{
	"let's", "now i will", "now i", "vamos", "agora vou", "agora eu",
}

var rules = buildRules([]Rule{
	{
		Stage: essay.StageTopic,
		Phrases: []string{
			"my topic is", "the topic is", "the theme is", "my theme is",
			"I want to write about", "I will write about", "I'm going to write about",
			"meu tema é", "o tema é", "quero escrever sobre", "vou escrever sobre",
		},
		Keywords:  []string{"topic", "theme", "subject", "tema", "assunto"},
		MinLength: 15,
	},
	{
		Stage: essay.StageThesis,
		Phrases: []string{
			"I defend that", "I believe that", "I believe", "I argue that",
			"my thesis is that", "my thesis is", "in my opinion,",
			"defendo que", "acredito que", "minha tese é que", "minha tese é",
			"na minha opinião,",
		},
		Keywords:  []string{"defend", "believe", "argue", "thesis", "position", "defendo", "acredito", "tese", "opinião"},
		MinLength: 20,
	},
	{
		Stage: essay.StageIntroduction,
		Phrases: []string{
			"my introduction is", "my introduction will", "in my introduction,",
			"I will introduce", "I will start by",
			"minha introdução é", "na introdução,", "vou introduzir", "vou começar",
		},
		Keywords:  []string{"introduction", "context", "contextualize", "introduce", "introdução", "contexto", "contextualizar"},
		MinLength: 30,
	},
	{
		Stage: essay.StageDevelopment1,
		Phrases: []string{
			"my first argument is that", "my first argument is", "in the first paragraph,",
			"firstly,", "first,",
			"meu primeiro argumento é", "no primeiro parágrafo,", "em primeiro lugar,", "primeiramente,",
		},
		Keywords:  []string{"first", "firstly", "initially", "primeiro", "primeiramente", "inicialmente"},
		MinLength: 30,
	},
	{
		Stage: essay.StageDevelopment2,
		Phrases: []string{
			"my second argument is that", "my second argument is", "in the second paragraph,",
			"secondly,", "second,", "furthermore,",
			"meu segundo argumento é", "no segundo parágrafo,", "em segundo lugar,", "além disso,",
		},
		Keywords:  []string{"second", "secondly", "furthermore", "moreover", "segundo", "além disso", "ademais"},
		MinLength: 30,
	},
	{
		Stage: essay.StageConclusion,
		Phrases: []string{
			"in conclusion,", "to conclude,", "my conclusion is", "I conclude that",
			"as a solution,", "em conclusão,", "concluindo,", "minha conclusão é", "portanto,",
		},
		Keywords:  []string{"conclusion", "conclude", "finally", "therefore", "solution", "conclusão", "portanto", "finalmente", "solução"},
		MinLength: 30,
	},
})

// RuleFor returns the rule table entry for stage. Finalize has none.
func RuleFor(stage essay.Stage) (Rule, bool) {
	r, ok := rules[stage]
	return r, ok
}

func buildRules(in []Rule) map[essay.Stage]Rule {
	out := make(map[essay.Stage]Rule, len(in))
	for _, r := range in {
		for _, phrase := range r.Phrases {
			r.patterns = append(r.patterns, compileIntro(phrase))
		}
		out[r.Stage] = r
	}
	return out
}

// compileIntro builds "<phrase> <captured span>" bounded by sentence-ending
// punctuation or, for messages that drop the final period, the end of the
// line.
func compileIntro(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	sep := `\s*`
	if last := []rune(phrase); len(last) > 0 {
		r := last[len(last)-1]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sep = `\s+`
		}
	}
	expr := `(?im)(?:^|[^\p{L}\p{N}])` + strings.Join(words, `\s+`) + sep +
		`([^.!?;\n]{15,400})(?:[.!?;]|$)`
	return regexp.MustCompile(expr)
}

// normalizeWords lowercases text and rewrites it as single-space separated
// words with a leading and trailing space, so phrases can be matched on word
// boundaries that also hold for accented letters.
func normalizeWords(text string) string {
	var b strings.Builder
	b.WriteByte(' ')
	inWord := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			inWord = true
			continue
		}
		if inWord {
			b.WriteByte(' ')
			inWord = false
		}
	}
	if inWord {
		b.WriteByte(' ')
	}
	return b.String()
}

// countPhrase counts word-bounded occurrences of phrase in a normalized text.
func countPhrase(normalized, phrase string) int {
	needle := normalizeWords(phrase)
	if strings.TrimSpace(needle) == "" {
		return 0
	}
	count := 0
	for offset := 0; ; {
		idx := strings.Index(normalized[offset:], needle)
		if idx < 0 {
			return count
		}
		count++
		// keep the trailing space so adjacent repeats still match
		offset += idx + len(needle) - 1
	}
}

func containsAny(normalized string, phrases []string) bool {
	for _, p := range phrases {
		if countPhrase(normalized, p) > 0 {
			return true
		}
	}
	return false
}
