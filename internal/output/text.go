package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gavelhq/gavel/internal/model"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, result *model.ReviewResult) error {
	ew := &errWriter{w: w}

	counts := model.CountSeverities(result.Findings)
	total := len(result.Findings)

	ew.printf("Gavel Code Review — %s mode\n", result.Mode)
	ew.printf("Project: %s\n", result.Project)
	if result.FromCache {
		ew.println("(cached result)")
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Score: %.1f/10\n", result.Score)
	ew.printf("Files: %d analyzed, %d excluded (+%d/-%d lines)\n",
		result.Stats.FilesAnalyzed, result.Stats.FilesExcluded,
		result.Stats.Additions, result.Stats.Deletions)
	ew.printf("Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d high, %d medium, %d low)", counts.High, counts.Medium, counts.Low)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if result.Summary != "" {
		ew.println("")
		for _, line := range wrapText(result.Summary, 76) {
			ew.println(line)
		}
	}

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
	}

	// Group by severity (high first), then by file
	grouped := groupBySeverity(result.Findings)
	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		label := strings.ToUpper(string(sev))
		ew.printf("\n%s %s\n", severityIcon(sev), label)
		ew.println(strings.Repeat("─", 40))

		// Sort by file path within severity
		sort.SliceStable(findings, func(i, j int) bool {
			return findings[i].File < findings[j].File
		})

		for _, f := range findings {
			ew.printf("\n  %s  [%s]\n", location(f), f.Type)

			for _, line := range wrapText(f.Description, 70) {
				ew.printf("    %s\n", line)
			}

			if f.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(f.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if len(result.Suggestions) > 0 {
		ew.printf("\nSuggestions\n")
		ew.println(strings.Repeat("─", 40))
		for _, s := range result.Suggestions {
			ew.printf("  - %s\n", s)
		}
	}

	if len(result.Recommendations) > 0 {
		ew.printf("\nRecommendations\n")
		ew.println(strings.Repeat("─", 40))
		for _, r := range result.Recommendations {
			ew.printf("  - %s\n", r)
		}
	}

	if len(result.FailedFiles) > 0 {
		ew.printf("\nFiles that could not be analyzed: %s\n", strings.Join(result.FailedFiles, ", "))
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	if result.Model != "" {
		ew.printf("Model: %s | Estimated cost: $%.4f\n", result.Model, result.EstimatedCost)
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(findings []model.Finding) map[model.Severity][]model.Finding {
	m := make(map[model.Severity][]model.Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}

func location(f model.Finding) string {
	path := f.File
	if path == "" {
		path = "unknown"
	}
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", path, f.Line)
	}
	return path
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return "[!!]"
	case model.SeverityMedium:
		return "[!]"
	case model.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
