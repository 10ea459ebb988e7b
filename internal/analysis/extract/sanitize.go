package extract

import (
	"regexp"
	"strings"
)

var (
	remnantLineRe = regexp.MustCompile(`(?m)^[ \t]*"(?i:` + schemaKeyAlternation() + `)"[ \t]*:.*$`)
	braceLineRe   = regexp.MustCompile(`(?m)^[ \t]*[{}\[\]][ \t]*,?[ \t]*$`)
	strayFenceRe  = regexp.MustCompile("(?m)^[ \\t]*```[A-Za-z]*[ \\t]*$")
	blankRunRe    = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// Sanitize strips the machine-readable fragment and its leftovers from a
// tutor response so it can be shown to the student. Sanitize(Sanitize(x)) ==
// Sanitize(x).
func Sanitize(text string) string {
	out := text
	for {
		next := sanitizeOnce(out)
		if next == out {
			return out
		}
		// every change shortens the text, so this terminates
		out = next
	}
}

func sanitizeOnce(text string) string {
	out := fenceRe.ReplaceAllStringFunc(text, func(block string) string {
		m := fenceRe.FindStringSubmatch(block)
		if isFragmentBlock(m[1], m[2]) {
			return ""
		}
		return block
	})
	out = remnantLineRe.ReplaceAllString(out, "")
	out = braceLineRe.ReplaceAllString(out, "")
	out = strayFenceRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func schemaKeyAlternation() string {
	var keys []string
	for _, field := range fieldKeys {
		for _, alias := range field.aliases {
			keys = append(keys, regexp.QuoteMeta(alias))
		}
	}
	return strings.Join(keys, "|")
}
