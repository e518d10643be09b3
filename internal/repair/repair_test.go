package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/model"
)

func TestParse_CleanJSON(t *testing.T) {
	raw := `{"findings":[{"type":"bug","severity":"high","description":"nil deref","line_number":42}],"suggestions":["add a nil check"]}`

	res := Parse(raw)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "bug", res.Findings[0].Type)
	assert.Equal(t, model.SeverityHigh, res.Findings[0].Severity)
	assert.Equal(t, 42, res.Findings[0].Line)
	assert.Equal(t, []string{"add a nil check"}, res.Suggestions)
}

func TestParse_MarkdownFencedJSON(t *testing.T) {
	raw := "Here is my analysis:\n```json\n{\"findings\":[{\"type\":\"style\",\"severity\":\"low\",\"description\":\"long line\"}],\"suggestions\":[]}\n```\nHope that helps!"

	res := Parse(raw)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "style", res.Findings[0].Type)
}

func TestParse_BareFencedBlock(t *testing.T) {
	raw := "```\n{\"findings\":[],\"suggestions\":[\"split this function\"]}\n```"

	res := Parse(raw)
	assert.Empty(t, res.Findings)
	assert.Equal(t, []string{"split this function"}, res.Suggestions)
}

func TestParse_JSONEmbeddedInProse(t *testing.T) {
	raw := `The code looks mostly fine. {"findings":[{"type":"bug","severity":"medium","description":"off by one"}],"suggestions":[]} Let me know if you need more.`

	res := Parse(raw)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "off by one", res.Findings[0].Description)
}

func TestParse_TextualFixes(t *testing.T) {
	// Bare keys, single quotes, trailing comma: all three at once.
	raw := `{findings: [{type: 'bug', severity: 'high', description: 'leak',}], suggestions: ['close the handle'],}`

	res := Parse(raw)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "bug", res.Findings[0].Type)
	assert.Equal(t, model.SeverityHigh, res.Findings[0].Severity)
	assert.Equal(t, []string{"close the handle"}, res.Suggestions)
}

func TestParse_AggressiveArrayExtraction(t *testing.T) {
	// The object as a whole is broken beyond the textual fixes, but the
	// findings array body itself is extractable.
	raw := `RESULT === "findings": [{"type":"security","severity":"high","description":"sql injection"}], "confidence": not-json, "suggestions": ["use parameterized queries"] }}}`

	res := Parse(raw)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "security", res.Findings[0].Type)
	assert.Equal(t, []string{"use parameterized queries"}, res.Suggestions)
}

func TestParse_GarbageNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"I couldn't analyze this file, sorry!",
		"{{{{",
		"```json\nnot json at all\n```",
		"null",
		"[1,2,3]",
	}
	for _, raw := range inputs {
		res := Parse(raw)
		assert.NotNil(t, res.Findings, "input %q", raw)
		assert.Empty(t, res.Findings, "input %q", raw)
		require.NotEmpty(t, res.Suggestions, "input %q", raw)
		assert.Contains(t, res.Suggestions[0], "could not be parsed")
	}
}

func TestParse_Deterministic(t *testing.T) {
	raw := "total nonsense"
	first := Parse(raw)
	second := Parse(raw)
	assert.Equal(t, first, second)
}

func TestParse_CoercionDefaults(t *testing.T) {
	raw := `{"findings":[
		{"severity":"catastrophic","description":"bad severity falls back"},
		{"type":"bug"},
		"not an object",
		42
	],"suggestions":["keep",123,null,""]}`

	res := Parse(raw)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, model.SeverityLow, res.Findings[0].Severity)
	assert.Equal(t, "general", res.Findings[0].Type)
	assert.Equal(t, "bug", res.Findings[1].Type)
	assert.Equal(t, []string{"keep"}, res.Suggestions)
}

func TestParse_FilenameAliases(t *testing.T) {
	raw := `{"findings":[{"type":"bug","severity":"low","description":"x","filename":"pkg/a.go"}],"suggestions":[]}`

	res := Parse(raw)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "pkg/a.go", res.Findings[0].File)
}

func TestBalancedBraceSpan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", `x {"a":1} y`, `{"a":1}`},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`},
		{"unbalanced", `{"a":1`, ""},
		{"none", "no braces here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, balancedBraceSpan(tt.input))
		})
	}
}

func TestApplyTextualFixes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare keys", `{findings: []}`, `{"findings": []}`},
		{"single quotes", `{"a": 'hi'}`, `{"a": "hi"}`},
		{"trailing comma", `{"a": 1,}`, `{"a": 1}`},
		{"trailing comma in array", `[1, 2,]`, `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyTextualFixes(tt.input))
		})
	}
}
