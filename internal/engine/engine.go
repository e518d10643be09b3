package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/analyzer"
	"github.com/gavelhq/gavel/internal/cache"
	"github.com/gavelhq/gavel/internal/githost"
	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
	"github.com/gavelhq/gavel/internal/selector"
	"github.com/gavelhq/gavel/internal/tasks"
)

// ValidationError rejects a request before any work begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Engine runs reviews. One orchestration run per request; runs share the
// cache and task stores but own their tasks exclusively.
type Engine struct {
	cache    *cache.ReviewCache
	tasks    *tasks.Store
	diff     githost.DiffProvider
	analyzer *analyzer.Analyzer
	selector *selector.Selector
	model    string
	log      zerolog.Logger
}

// New wires an Engine from its collaborators.
func New(reviewCache *cache.ReviewCache, taskStore *tasks.Store, diff githost.DiffProvider, an *analyzer.Analyzer, sel *selector.Selector, modelName string) *Engine {
	return &Engine{
		cache:    reviewCache,
		tasks:    taskStore,
		diff:     diff,
		analyzer: an,
		selector: sel,
		model:    modelName,
		log:      logging.Component("engine"),
	}
}

// RunReview executes a review synchronously and returns the result.
func (e *Engine) RunReview(ctx context.Context, cs model.ChangeSet) (*model.ReviewResult, error) {
	return e.run(ctx, cs, nil)
}

// Submit starts an asynchronous review and returns its task id. The run
// detaches from the caller's context deadline but keeps its values.
func (e *Engine) Submit(ctx context.Context, cs model.ChangeSet) (string, error) {
	if err := validate(cs); err != nil {
		return "", err
	}
	taskID := uuid.NewString()
	if _, err := e.tasks.Create(ctx, taskID); err != nil {
		return "", fmt.Errorf("registering task: %w", err)
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error().Interface("panic", r).Str("task_id", taskID).Msg("review run panicked")
				e.tasks.Fail(runCtx, taskID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		progress := func(pct int, message string) {
			e.tasks.UpdateProgress(runCtx, taskID, pct, message)
		}
		result, err := e.run(runCtx, cs, progress)
		if err != nil {
			e.tasks.Fail(runCtx, taskID, err.Error())
			return
		}
		e.tasks.Complete(runCtx, taskID, result)
	}()

	return taskID, nil
}

// Poll returns a snapshot of an asynchronous task.
func (e *Engine) Poll(ctx context.Context, taskID string) (*tasks.Task, bool) {
	return e.tasks.Get(ctx, taskID)
}

// run is the orchestration body shared by the sync and async paths.
// progress may be nil.
func (e *Engine) run(ctx context.Context, cs model.ChangeSet, progress func(pct int, message string)) (*model.ReviewResult, error) {
	report := func(pct int, message string) {
		if progress != nil {
			progress(pct, message)
		}
	}

	if err := validate(cs); err != nil {
		return nil, err
	}
	mode, _ := model.LookupMode(cs.Mode)

	// Commit-only submissions have no branch name; the commit is the head
	// ref and the source identity for the duplicate key.
	source := cs.SourceBranch
	if source == "" {
		source = cs.SourceCommit
	}

	report(5, "checking for duplicate submission")

	// Duplicate short-circuit. The key omits mode, so the hit must be
	// verified against the requested mode before it can be trusted.
	if prior, ok := e.cache.GetDuplicate(ctx, cs.Project, source, cs.TargetBranch, cs.TaskKey); ok {
		if prior.Mode == cs.Mode {
			e.log.Info().Str("review_id", prior.ReviewID).Msg("duplicate submission, replaying prior result")
			replay := *prior
			replay.FromCache = true
			report(100, "returned cached result")
			return &replay, nil
		}
		e.log.Info().Str("cached_mode", prior.Mode).Str("requested_mode", cs.Mode).Msg("duplicate hit rejected on mode mismatch")
	}

	// Content-addressed check against the exact commit.
	commit := cs.SourceCommit
	if commit == "" {
		resolved, err := e.diff.ResolveRef(ctx, cs.Project, cs.SourceBranch)
		if err != nil {
			e.log.Warn().Err(err).Str("ref", cs.SourceBranch).Msg("ref resolution failed, keying cache by branch name")
			resolved = cs.SourceBranch
		}
		commit = resolved
	}
	if prior, ok := e.cache.GetContentAddressed(ctx, cs.Project, commit, cs.TargetBranch, cs.Mode, cs.TaskKey); ok {
		e.log.Info().Str("review_id", prior.ReviewID).Str("commit", commit).Msg("content-addressed cache hit")
		replay := *prior
		replay.FromCache = true
		report(100, "returned cached result")
		return &replay, nil
	}

	report(10, "fetching historical findings")
	history := e.cache.GetHistorical(ctx, cs.Project, cs.TargetBranch, cs.TaskKey)

	report(20, "fetching changed files")
	files, err := e.diff.ListChangedFiles(ctx, cs.Project, cs.TargetBranch, source)
	if err != nil {
		return nil, fmt.Errorf("fetching diff: %w", err)
	}

	if len(files) == 0 {
		result := e.emptyResult(cs)
		report(100, "no changes to review")
		return result, nil
	}

	report(30, "selecting files for analysis")
	selected, excluded := e.selector.Select(files)

	analysisProgress := func(done, total int) {
		// Analysis spans the 30..90 band of overall progress.
		report(30+done*60/total, fmt.Sprintf("analyzed %d/%d files", done, total))
	}
	res := e.analyzer.Analyze(ctx, selected, mode, history, analysisProgress)

	report(92, "aggregating results")
	result := e.buildResult(cs, res, files, selected, excluded)

	report(95, "persisting results")
	e.cache.PutContentAddressed(ctx, cs.Project, commit, cs.TargetBranch, cs.Mode, cs.TaskKey, result)
	e.cache.PutDuplicate(ctx, cs.Project, source, cs.TargetBranch, cs.TaskKey, result)
	e.cache.SaveHistorical(ctx, cs.Project, cs.TargetBranch, cs.TaskKey, result.Findings)

	report(100, "review completed")
	return result, nil
}

func (e *Engine) buildResult(cs model.ChangeSet, res analyzer.Result, all, selected []model.FilePatch, excluded int) *model.ReviewResult {
	var additions, deletions int
	for _, f := range all {
		additions += f.Additions
		deletions += f.Deletions
	}

	var inputTokens int
	for _, f := range selected {
		inputTokens += selector.EstimateTokens(f.Diff + f.NewContent)
	}

	return &model.ReviewResult{
		ReviewID:        uuid.NewString(),
		Project:         cs.Project,
		Mode:            cs.Mode,
		Score:           res.Score,
		Summary:         res.Summary,
		Findings:        res.Findings,
		Suggestions:     res.Suggestions,
		Recommendations: analyzer.Recommendations(res.Findings),
		FailedFiles:     res.FailedFiles,
		Stats: model.Statistics{
			FilesAnalyzed: len(selected),
			FilesExcluded: excluded,
			Additions:     additions,
			Deletions:     deletions,
		},
		Model:         e.model,
		EstimatedCost: selector.EstimateCost(e.model, inputTokens),
		CreatedAt:     time.Now().UTC(),
	}
}

func (e *Engine) emptyResult(cs model.ChangeSet) *model.ReviewResult {
	return &model.ReviewResult{
		ReviewID:        uuid.NewString(),
		Project:         cs.Project,
		Mode:            cs.Mode,
		Score:           10.0,
		Summary:         "No changes to review.",
		Findings:        []model.Finding{},
		Suggestions:     []string{},
		Recommendations: []string{},
		Model:           e.model,
		CreatedAt:       time.Now().UTC(),
	}
}

// Health reports reachability of the engine's durable store.
func (e *Engine) Health(ctx context.Context) bool {
	return e.cache.HealthCheck(ctx)
}

func validate(cs model.ChangeSet) error {
	if cs.Project == "" {
		return &ValidationError{Field: "project", Reason: "must not be empty"}
	}
	if cs.SourceBranch == "" && cs.SourceCommit == "" {
		return &ValidationError{Field: "source", Reason: "source branch or commit is required"}
	}
	if cs.TargetBranch == "" {
		return &ValidationError{Field: "target_branch", Reason: "must not be empty"}
	}
	if _, ok := model.LookupMode(cs.Mode); !ok {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown review mode %q", cs.Mode)}
	}
	return nil
}
