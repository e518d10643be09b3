package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/model"
)

func sampleResult() *model.ReviewResult {
	return &model.ReviewResult{
		ReviewID: "rv-1",
		Project:  "group/proj",
		Mode:     "full",
		Score:    6.3,
		Summary:  "Two issues need attention before merging.",
		Findings: []model.Finding{
			{Type: "security", File: "auth.go", Line: 42, Severity: model.SeverityHigh,
				Description: "Token compared with ==", Suggestion: "use subtle.ConstantTimeCompare"},
			{Type: "style", File: "util.go", Severity: model.SeverityLow,
				Description: "Exported function missing doc comment"},
		},
		Suggestions:     []string{"Consider extracting the retry loop"},
		Recommendations: []string{"Address high severity issues before merging"},
		FailedFiles:     []string{"vendor.go"},
		Stats:           model.Statistics{FilesAnalyzed: 3, FilesExcluded: 1, Additions: 20, Deletions: 5},
		Model:           "gpt-4-turbo",
		EstimatedCost:   0.0123,
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetWriter(t *testing.T) {
	for _, format := range []string{"text", "json", "markdown"} {
		w, err := GetWriter(format)
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}

	_, err := GetWriter("xml")
	assert.Error(t, err)
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Score: 6.3/10")
	assert.Contains(t, out, "[!!] HIGH")
	assert.Contains(t, out, "auth.go:42")
	assert.Contains(t, out, "Token compared with ==")
	assert.Contains(t, out, "Recommendations")
	assert.Contains(t, out, "vendor.go")
	assert.Contains(t, out, "$0.0123")
}

func TestTextWriter_NoFindings(t *testing.T) {
	r := sampleResult()
	r.Findings = nil
	r.FailedFiles = nil

	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, r))
	assert.Contains(t, buf.String(), "No issues found")
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, `"review_id": "rv-1"`)
	assert.Contains(t, out, `"score": 6.3`)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "## Gavel Code Review — score 6.3/10")
	assert.Contains(t, out, "| High     | 1    |")
	assert.Contains(t, out, "<details>")
	assert.Contains(t, out, ":red_circle: HIGH (1)")
	assert.Contains(t, out, "**Recommendations:**")
}

func TestMarkdownWriter_CodeSuggestionFenced(t *testing.T) {
	r := sampleResult()
	r.Findings = []model.Finding{{
		Type: "bug", File: "main.go", Severity: model.SeverityHigh,
		Description: "nil deref",
		Suggestion:  "if x == nil {\n\treturn\n}",
	}}

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, r))
	assert.Contains(t, buf.String(), "```go\nif x == nil {")
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven eight", 12)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 12)
	}

	assert.Equal(t, []string{"short"}, wrapText("short", 40))
}
