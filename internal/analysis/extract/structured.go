package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

var fenceRe = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z]*)[ \\t]*\\r?\\n?(.*?)```")

// fieldKeys maps each stage field onto the fragment keys that may carry it.
// The first non-empty alias wins.
var fieldKeys = []struct {
	stage   essay.Stage
	aliases []string
}{
	{essay.StageTopic, []string{"topic", "tema"}},
	{essay.StageThesis, []string{"thesis", "tese"}},
	{essay.StageIntroduction, []string{"introduction", "introducao", "introdução"}},
	{essay.StageDevelopment1, []string{"development1", "development_1", "desenvolvimento1", "desenvolvimento_1"}},
	{essay.StageDevelopment2, []string{"development2", "development_2", "desenvolvimento2", "desenvolvimento_2"}},
	{essay.StageConclusion, []string{"conclusion", "conclusao", "conclusão"}},
}

// Structured parses the first fenced JSON fragment of a tutor response. It
// reports false when there is no fragment, the fragment is not a JSON object,
// or none of the recognized keys carries a non-empty string.
func Structured(text string) (essay.Partial, bool) {
	body, ok := firstFragment(text)
	if !ok {
		return nil, false
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, false
	}

	lowered := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, exists := lowered[key]; !exists {
			lowered[key] = v
		}
	}

	partial := essay.Partial{}
	for _, field := range fieldKeys {
		for _, alias := range field.aliases {
			value, ok := lowered[alias]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				partial[field.stage] = s
				break
			}
		}
	}

	if len(partial) == 0 {
		return nil, false
	}
	return partial, true
}

func firstFragment(text string) (string, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if isFragmentBlock(m[1], m[2]) {
			return m[2], true
		}
	}
	return "", false
}

// isFragmentBlock reports whether a fenced block carries the data fragment: a
// json-tagged block, or an untagged block whose body opens with a brace.
// Extraction and sanitizing share this rule.
func isFragmentBlock(tag, body string) bool {
	switch strings.ToLower(tag) {
	case "json":
		return true
	case "":
		return strings.HasPrefix(strings.TrimSpace(body), "{")
	default:
		return false
	}
}
