package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gavelhq/gavel/internal/model"
	"github.com/gavelhq/gavel/internal/redact"
)

// findingsSchema constrains per-file responses on endpoints that support
// structured output. The system prompt states the same contract for
// endpoints that ignore it.
var findingsSchema = json.RawMessage(`{
  "name": "review_findings",
  "schema": {
    "type": "object",
    "properties": {
      "findings": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "type": {"type": "string", "enum": ["bug", "security", "performance", "style", "maintainability"]},
            "severity": {"type": "string", "enum": ["low", "medium", "high"]},
            "description": {"type": "string"},
            "suggestion": {"type": "string"},
            "line_number": {"type": "integer"}
          },
          "required": ["type", "severity", "description"]
        }
      },
      "suggestions": {
        "type": "array",
        "items": {"type": "string"}
      }
    },
    "required": ["findings", "suggestions"]
  }
}`)

const fileSystemPrompt = `You are a strict, expert code reviewer. You review one changed file at a time and produce structured findings in JSON format.

Rules:
1. Review the full file for context, but report issues only in or near the changed lines shown in the diff.
2. Be concise and actionable. Every finding should include a concrete suggestion.
3. Rate severity as "low", "medium", or "high".
4. Reference line numbers in the new version of the file.

You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble.

The object must have this exact structure:
{
  "findings": [
    {
      "type": "bug|security|performance|style|maintainability",
      "severity": "low|medium|high",
      "description": "What is wrong and why it matters",
      "suggestion": "How to fix it",
      "line_number": 1
    }
  ],
  "suggestions": ["file-level improvement suggestions"]
}

If there are no issues, respond with {"findings": [], "suggestions": []}`

// buildFilePrompt assembles the per-file analysis payload: capped file
// content plus the diff, with mode focus areas and, when prior findings
// exist, the verify-fix directive.
func buildFilePrompt(f model.FilePatch, mode model.Mode, history []model.HistoricalFinding, maxLines int, redactPaths []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review type: %s\n", mode.Name)
	if len(mode.FocusAreas) > 0 {
		fmt.Fprintf(&b, "Focus areas: %s\n", strings.Join(mode.FocusAreas, ", "))
	}
	fmt.Fprintf(&b, "File: %s (%s)\n", f.Path, f.Kind)

	if len(history) > 0 {
		b.WriteString("\nThis file was reviewed before. Previously reported issues:\n")
		for _, h := range history {
			if h.Line > 0 {
				fmt.Fprintf(&b, "- [%s/%s] line %d: %s\n", h.Type, h.Severity, h.Line, h.Description)
			} else {
				fmt.Fprintf(&b, "- [%s/%s] %s\n", h.Type, h.Severity, h.Description)
			}
		}
		b.WriteString(`
Verify-fix mode: do NOT run a general review. Report only:
(a) any previously reported issue above that is still unresolved, or
(b) a NEW issue only if it is severe (severity "high").
If every prior issue is fixed and nothing severe appeared, return empty findings.
`)
	}

	content := capLines(f.NewContent, maxLines)
	if f.Kind == model.EditDeleted {
		content = capLines(f.OldContent, maxLines)
	}
	if content != "" {
		b.WriteString("\n--- FILE CONTENT ---\n")
		b.WriteString(redact.Content(content, f.Path, redactPaths))
		b.WriteString("\n--- END FILE CONTENT ---\n")
	}

	if f.Diff != "" {
		b.WriteString("\n--- DIFF ---\n")
		b.WriteString(redact.Secrets(f.Diff))
		b.WriteString("\n--- END DIFF ---\n")
	}

	return b.String()
}

// capLines truncates content to at most maxLines lines, noting the cut.
func capLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content
	}
	capped := strings.Join(lines[:maxLines], "\n")
	return capped + fmt.Sprintf("\n... (%d more lines truncated)", len(lines)-maxLines)
}

// buildSummaryPrompt asks for a short natural-language summary of the run.
func buildSummaryPrompt(findings []model.Finding, suggestions []string, failedFiles []string, filesAnalyzed int) string {
	counts := model.CountSeverities(findings)

	typeCounts := map[string]int{}
	for _, f := range findings {
		typeCounts[f.Type]++
	}

	var b strings.Builder
	b.WriteString("Write a short summary (2-3 sentences) of this code review result, assessing overall quality and the main improvement directions.\n\n")
	fmt.Fprintf(&b, "Files analyzed: %d\n", filesAnalyzed)
	fmt.Fprintf(&b, "High severity issues: %d\n", counts.High)
	fmt.Fprintf(&b, "Medium severity issues: %d\n", counts.Medium)
	fmt.Fprintf(&b, "Low severity issues: %d\n", counts.Low)
	fmt.Fprintf(&b, "Files that failed analysis: %d\n", len(failedFiles))
	fmt.Fprintf(&b, "Improvement suggestions: %d\n", len(suggestions))
	if len(typeCounts) > 0 {
		b.WriteString("Issue types:\n")
		for t, n := range typeCounts {
			fmt.Fprintf(&b, "- %s: %d\n", t, n)
		}
	}
	b.WriteString("\nRespond with plain text only.")
	return b.String()
}
