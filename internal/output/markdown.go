package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gavelhq/gavel/internal/model"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, result *model.ReviewResult) error {
	counts := model.CountSeverities(result.Findings)
	total := len(result.Findings)

	// Heading
	fmt.Fprintf(w, "## Gavel Code Review — score %.1f/10\n\n", result.Score)

	if result.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", result.Summary)
	}

	// Summary table
	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	fmt.Fprintf(w, "| High     | %d    |\n", counts.High)
	fmt.Fprintf(w, "| Medium   | %d    |\n", counts.Medium)
	fmt.Fprintf(w, "| Low      | %d    |\n", counts.Low)
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", total)

	if total == 0 {
		fmt.Fprintf(w, "No issues found. :white_check_mark:\n\n")
	}

	// Collapsible sections by severity
	grouped := groupBySeverity(result.Findings)
	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		icon := mdSeverityIcon(sev)
		label := strings.ToUpper(string(sev))

		fmt.Fprintf(w, "<details>\n<summary>%s %s (%d)</summary>\n\n", icon, label, len(findings))

		// Sort by file path within severity
		sort.SliceStable(findings, func(i, j int) bool {
			return findings[i].File < findings[j].File
		})

		for _, f := range findings {
			fmt.Fprintf(w, "### %s\n\n", f.Description)
			fmt.Fprintf(w, "**`%s`** | %s\n\n", location(f), f.Type)

			if f.Suggestion != "" {
				fmt.Fprintf(w, "**Suggestion:**\n\n")
				// Wrap suggestion in code fence if it looks like code
				if looksLikeCode(f.Suggestion) {
					lang := inferLang(f.File)
					fmt.Fprintf(w, "```%s\n%s\n```\n\n", lang, f.Suggestion)
				} else {
					fmt.Fprintf(w, "> %s\n\n", strings.ReplaceAll(f.Suggestion, "\n", "\n> "))
				}
			}

			fmt.Fprintf(w, "---\n\n")
		}

		fmt.Fprintf(w, "</details>\n\n")
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintf(w, "**Recommendations:**\n\n")
		for _, r := range result.Recommendations {
			fmt.Fprintf(w, "- %s\n", r)
		}
		fmt.Fprintln(w)
	}

	if len(result.FailedFiles) > 0 {
		fmt.Fprintf(w, "**Could not analyze:** %s\n\n", strings.Join(result.FailedFiles, ", "))
	}

	// Footer
	fmt.Fprintf(w, "*%d files analyzed, %d excluded", result.Stats.FilesAnalyzed, result.Stats.FilesExcluded)
	if result.Model != "" {
		fmt.Fprintf(w, " | %s ($%.4f estimated)", result.Model, result.EstimatedCost)
	}
	fmt.Fprintf(w, "*\n")

	return nil
}

func mdSeverityIcon(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return ":red_circle:"
	case model.SeverityMedium:
		return ":orange_circle:"
	case model.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	langMap := map[string]string{
		".go":   "go",
		".py":   "python",
		".js":   "javascript",
		".ts":   "typescript",
		".tsx":  "tsx",
		".jsx":  "jsx",
		".rs":   "rust",
		".java": "java",
		".rb":   "ruby",
		".cpp":  "cpp",
		".c":    "c",
		".cs":   "csharp",
		".php":  "php",
		".sh":   "bash",
		".sql":  "sql",
		".yaml": "yaml",
		".yml":  "yaml",
		".json": "json",
		".tf":   "hcl",
	}
	for ext, lang := range langMap {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return ""
}
