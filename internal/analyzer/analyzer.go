package analyzer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/llm"
	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
	"github.com/gavelhq/gavel/internal/repair"
)

const (
	// DefaultWorkers caps simultaneous outbound completion calls.
	DefaultWorkers = 5
	// DefaultMaxFileLines caps how much file content enters one prompt.
	DefaultMaxFileLines = 1000

	maxFindings    = 30
	maxSuggestions = 20

	baseScore = 8.0
	minScore  = 2.0
)

// Options configure an Analyzer.
type Options struct {
	Workers      int
	MaxFileLines int
	RedactPaths  []string
}

// Analyzer runs per-file analysis units under bounded concurrency.
// A nil completer short-circuits every unit to the non-LLM fallback paths.
type Analyzer struct {
	completer llm.Completer
	opts      Options
	log       zerolog.Logger
}

// Result is the aggregated outcome of one analysis batch.
type Result struct {
	Findings    []model.Finding
	Suggestions []string
	FailedFiles []string
	Score       float64
	Summary     string
}

// New creates an Analyzer. completer may be nil when no completion service
// is configured.
func New(completer llm.Completer, opts Options) *Analyzer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxFileLines <= 0 {
		opts.MaxFileLines = DefaultMaxFileLines
	}
	return &Analyzer{
		completer: completer,
		opts:      opts,
		log:       logging.Component("analyzer"),
	}
}

// Analyze processes the selected files in parallel and aggregates one
// result. progress, if non-nil, is called after each unit finishes with the
// number of completed units.
func (a *Analyzer) Analyze(ctx context.Context, files []model.FilePatch, mode model.Mode, history map[string][]model.HistoricalFinding, progress func(done, total int)) Result {
	type unitResult struct {
		findings    []model.Finding
		suggestions []string
		failed      bool
	}

	results := make([]unitResult, len(files))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.opts.Workers)
	var done int
	var mu sync.Mutex

	for i, f := range files {
		wg.Add(1)
		go func(i int, f model.FilePatch) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			findings, suggestions, err := a.analyzeFile(ctx, f, mode, history[f.Path])
			if err != nil {
				a.log.Warn().Err(err).Str("file", f.Path).Msg("file analysis failed")
				results[i] = unitResult{failed: true}
			} else {
				results[i] = unitResult{findings: findings, suggestions: suggestions}
			}

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(files))
				mu.Unlock()
			}
		}(i, f)
	}

	wg.Wait()

	// Merge in stable file order, independent of completion order.
	var res Result
	for i, r := range results {
		if r.failed {
			res.FailedFiles = append(res.FailedFiles, files[i].Path)
			continue
		}
		res.Findings = append(res.Findings, r.findings...)
		res.Suggestions = append(res.Suggestions, r.suggestions...)
	}

	if len(res.Findings) > maxFindings {
		res.Findings = res.Findings[:maxFindings]
	}
	if len(res.Suggestions) > maxSuggestions {
		res.Suggestions = res.Suggestions[:maxSuggestions]
	}

	res.Score = computeScore(res.Findings, len(files), len(res.FailedFiles))
	res.Summary = a.summarize(ctx, res, len(files))
	return res
}

// analyzeFile runs one per-file unit: prompt, completion, repair, tagging.
func (a *Analyzer) analyzeFile(ctx context.Context, f model.FilePatch, mode model.Mode, history []model.HistoricalFinding) ([]model.Finding, []string, error) {
	if a.completer == nil {
		// No completion service configured; the unit degrades to empty
		// findings rather than failing.
		return nil, nil, nil
	}

	prompt := buildFilePrompt(f, mode, history, a.opts.MaxFileLines, a.opts.RedactPaths)
	raw, err := a.completer.Complete(ctx, []llm.Message{
		{Role: "system", Content: fileSystemPrompt},
		{Role: "user", Content: prompt},
	}, findingsSchema)
	if err != nil {
		return nil, nil, fmt.Errorf("completion for %s: %w", f.Path, err)
	}

	parsed := repair.Parse(raw)
	for i := range parsed.Findings {
		if parsed.Findings[i].File == "" {
			parsed.Findings[i].File = f.Path
		}
	}
	return parsed.Findings, parsed.Suggestions, nil
}

// computeScore starts from the baseline and subtracts weighted penalties.
func computeScore(findings []model.Finding, fileCount, failedCount int) float64 {
	score := baseScore
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityHigh:
			score -= 1.0
		case model.SeverityMedium:
			score -= 0.5
		default:
			score -= 0.2
		}
	}
	score -= float64(failedCount) * 0.5
	if fileCount > 10 {
		score -= 0.3
	}
	if score < minScore {
		score = minScore
	}
	return math.Round(score*10) / 10
}

// summarize produces the run summary, preferring an LLM call and falling
// back to a severity-count sentence when the completer is absent or failing.
func (a *Analyzer) summarize(ctx context.Context, res Result, filesAnalyzed int) string {
	if a.completer != nil {
		prompt := buildSummaryPrompt(res.Findings, res.Suggestions, res.FailedFiles, filesAnalyzed)
		if summary, err := a.completer.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil); err == nil && summary != "" {
			return summary
		}
	}
	return fallbackSummary(res.Findings, filesAnalyzed)
}

func fallbackSummary(findings []model.Finding, filesAnalyzed int) string {
	counts := model.CountSeverities(findings)
	return fmt.Sprintf("Per-file analysis completed across %d files: %d high severity and %d medium severity issues found.",
		filesAnalyzed, counts.High, counts.Medium)
}

// Recommendations derives improvement directions from the aggregated
// findings.
func Recommendations(findings []model.Finding) []string {
	var recs []string
	counts := model.CountSeverities(findings)
	if counts.High > 0 {
		recs = append(recs, "Address high severity issues before merging")
	}
	hasType := func(t string) bool {
		for _, f := range findings {
			if f.Type == t {
				return true
			}
		}
		return false
	}
	if hasType("security") {
		recs = append(recs, "Review the flagged security issues with the security team")
	}
	if hasType("performance") {
		recs = append(recs, "Profile the changed paths to confirm the flagged performance issues")
	}
	recs = append(recs,
		"Add unit tests covering the changed code",
		"Make sure the changes follow the project coding conventions",
	)
	return recs
}
