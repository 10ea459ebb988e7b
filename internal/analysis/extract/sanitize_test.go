package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var sanitizeSamples = []string{
	"",
	"Plain answer without anything to strip.",
	"Great thesis!\n\n```json\n{\"thesis\": \"digital education needs investment\"}\n```\n\nNow the introduction.",
	"Intro line\n\"tema\": \"desigualdade\",\n\"tese\": \"algo\"\n}\nTail",
	"Line one\n\n\n\n\nLine two\n \n\t\n \nLine three",
	"Keep this code:\n```python\nprint('hi')\n```\nok",
	"Broken ```json {\"topic\": \"x\"``` then ``` {\"thesis\": \"y\"} ``` end",
	"```\n{\"topic\": \"only fragment\"}\n```",
	"dangling fence\n```json\n{\"topic\": \"never closed\"",
	"```\nfoo\na ``` b ```{\"topic\": \"x\"}``` c",
	"Windows\r\n\r\n\r\n\r\nnewlines",
}

func TestSanitizeRemovesFragment(t *testing.T) {
	got := Sanitize(sanitizeSamples[2])
	assert.Equal(t, "Great thesis!\n\nNow the introduction.", got)
}

func TestSanitizeRemovesLooseRemnants(t *testing.T) {
	got := Sanitize(sanitizeSamples[3])
	assert.Equal(t, "Intro line\n\nTail", got)
}

func TestSanitizeCollapsesBlankRuns(t *testing.T) {
	got := Sanitize(sanitizeSamples[4])
	assert.Equal(t, "Line one\n\nLine two\n\nLine three", got)
}

func TestSanitizeLeavesProseAlone(t *testing.T) {
	assert.Equal(t, sanitizeSamples[1], Sanitize(sanitizeSamples[1]))
	assert.Equal(t, "", Sanitize(sanitizeSamples[7]))
}

func TestSanitizeIsIdempotent(t *testing.T) {
	for _, in := range sanitizeSamples {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestIsFragmentBlock(t *testing.T) {
	assert.True(t, isFragmentBlock("JSON", "anything"))
	assert.True(t, isFragmentBlock("", "\n  {\"topic\": \"x\"}"))
	assert.False(t, isFragmentBlock("", "1. intro"))
	assert.False(t, isFragmentBlock("python", "{}"))
}
