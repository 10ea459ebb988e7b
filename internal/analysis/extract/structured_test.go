package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

func TestStructuredParsesFencedFragment(t *testing.T) {
	text := "Great, your thesis is clear.\n\n```json\n{\"topic\": \"social inequality\", \"thesis\": \"\", \"mood\": \"happy\"}\n```\nLet's move on."
	got, ok := Structured(text)
	require.True(t, ok)
	assert.Equal(t, essay.Partial{essay.StageTopic: "social inequality"}, got)
	_, present := got[essay.StageThesis]
	assert.False(t, present, "empty values must stay absent")
}

func TestStructuredPortugueseKeys(t *testing.T) {
	text := "```\n{\"Tema\": \" desigualdade social \", \"tese\": \"a escola pública precisa de investimento\", \"conclusão\": \"o Estado deve agir\"}\n```"
	got, ok := Structured(text)
	require.True(t, ok)
	assert.Equal(t, "desigualdade social", got[essay.StageTopic])
	assert.Equal(t, "a escola pública precisa de investimento", got[essay.StageThesis])
	assert.Equal(t, "o Estado deve agir", got[essay.StageConclusion])
}

func TestStructuredCanonicalKeyWinsOverAlias(t *testing.T) {
	got, ok := Structured("```json\n{\"tema\": \"alias\", \"topic\": \"canonical\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "canonical", got[essay.StageTopic])
}

func TestStructuredToleratesTextInsideFence(t *testing.T) {
	got, ok := Structured("```json\nskeleton: {\"development1\": \"lack of devices keeps students behind\"} done\n```")
	require.True(t, ok)
	assert.Equal(t, "lack of devices keeps students behind", got[essay.StageDevelopment1])
}

func TestStructuredNoData(t *testing.T) {
	cases := map[string]string{
		"no fence":          "Your topic is {\"topic\": \"x\"} inline.",
		"malformed":         "```json\n{\"topic\": \"unterminated}\n```",
		"no known keys":     "```json\n{\"mood\": \"calm\"}\n```",
		"only empty values": "```json\n{\"topic\": \"\", \"thesis\": \"   \"}\n```",
		"non string value":  "```json\n{\"topic\": 42}\n```",
		"not an object":     "```json\n[1, 2, 3]\n```",
		"other language":    "```python\n{\"topic\": \"x\"}\n```",
		"empty":             "",
	}
	for name, text := range cases {
		got, ok := Structured(text)
		assert.False(t, ok, name)
		assert.Nil(t, got, name)
	}
}

func TestStructuredUsesFirstFragmentOnly(t *testing.T) {
	text := "```json\n{\"topic\": \"first\"}\n```\nand\n```json\n{\"topic\": \"second\", \"thesis\": \"second thesis\"}\n```"
	got, ok := Structured(text)
	require.True(t, ok)
	assert.Equal(t, essay.Partial{essay.StageTopic: "first"}, got)
}

func TestStructuredSkipsUntaggedNonObjectBlock(t *testing.T) {
	text := "Outline:\n```\n1. intro\n2. body\n```\nSaved:\n```json\n{\"thesis\": \"digital education needs public investment\"}\n```"
	got, ok := Structured(text)
	require.True(t, ok)
	assert.Equal(t, essay.Partial{essay.StageThesis: "digital education needs public investment"}, got)

	shown := Sanitize(text)
	assert.Contains(t, shown, "1. intro\n2. body")
	assert.NotContains(t, shown, "digital education")
}
