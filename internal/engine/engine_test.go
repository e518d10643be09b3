package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/analyzer"
	"github.com/gavelhq/gavel/internal/cache"
	"github.com/gavelhq/gavel/internal/kvstore"
	"github.com/gavelhq/gavel/internal/model"
	"github.com/gavelhq/gavel/internal/selector"
	"github.com/gavelhq/gavel/internal/tasks"
)

type fakeDiff struct {
	files    []model.FilePatch
	commit   string
	err      error
	listCall int
	lastHead string
}

func (f *fakeDiff) ListChangedFiles(_ context.Context, _, _, headRef string) ([]model.FilePatch, error) {
	f.listCall++
	f.lastHead = headRef
	if f.err != nil {
		return nil, f.err
	}
	return f.files, nil
}

func (f *fakeDiff) ReadFile(_ context.Context, _, _, _ string) (string, error) {
	return "", nil
}

func (f *fakeDiff) ResolveRef(_ context.Context, _, _ string) (string, error) {
	if f.commit == "" {
		return "", errors.New("unresolvable")
	}
	return f.commit, nil
}

func newTestEngine(t *testing.T, diff *fakeDiff) *Engine {
	t.Helper()
	kv, err := kvstore.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	return New(
		cache.New(kv, 0, 0),
		tasks.NewStore(kv, time.Hour),
		diff,
		analyzer.New(nil, analyzer.Options{Workers: 2}),
		selector.New(selector.Options{}),
		"gpt-4-turbo",
	)
}

func changeSet() model.ChangeSet {
	return model.ChangeSet{
		Project:      "group/proj",
		SourceBranch: "feature",
		TargetBranch: "main",
		Mode:         "full",
		TaskKey:      "TASK-1",
	}
}

func someFiles() []model.FilePatch {
	return []model.FilePatch{
		{Path: "main.go", Kind: model.EditModified, Diff: "+x", Additions: 3, Deletions: 1},
		{Path: "util.go", Kind: model.EditAdded, Diff: "+y", Additions: 10},
	}
}

func TestRunReview_Validation(t *testing.T) {
	e := newTestEngine(t, &fakeDiff{})

	tests := []struct {
		name   string
		mutate func(*model.ChangeSet)
	}{
		{"missing project", func(cs *model.ChangeSet) { cs.Project = "" }},
		{"missing source", func(cs *model.ChangeSet) { cs.SourceBranch = ""; cs.SourceCommit = "" }},
		{"missing target", func(cs *model.ChangeSet) { cs.TargetBranch = "" }},
		{"unknown mode", func(cs *model.ChangeSet) { cs.Mode = "vibes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := changeSet()
			tt.mutate(&cs)
			_, err := e.RunReview(context.Background(), cs)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestRunReview_ProducesResult(t *testing.T) {
	diff := &fakeDiff{files: someFiles(), commit: "abc123"}
	e := newTestEngine(t, diff)

	result, err := e.RunReview(context.Background(), changeSet())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ReviewID)
	assert.Equal(t, "full", result.Mode)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, result.Stats.FilesAnalyzed)
	assert.Equal(t, 13, result.Stats.Additions)
	assert.Equal(t, 1, result.Stats.Deletions)
	assert.Equal(t, "gpt-4-turbo", result.Model)
}

func TestRunReview_DuplicateShortCircuit(t *testing.T) {
	diff := &fakeDiff{files: someFiles(), commit: "abc123"}
	e := newTestEngine(t, diff)
	ctx := context.Background()

	first, err := e.RunReview(ctx, changeSet())
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := e.RunReview(ctx, changeSet())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.ReviewID, second.ReviewID)

	// The second call never reached the diff provider.
	assert.Equal(t, 1, diff.listCall)
}

func TestRunReview_DuplicateHitRejectedOnModeMismatch(t *testing.T) {
	diff := &fakeDiff{files: someFiles(), commit: "abc123"}
	e := newTestEngine(t, diff)
	ctx := context.Background()

	first, err := e.RunReview(ctx, changeSet())
	require.NoError(t, err)

	cs := changeSet()
	cs.Mode = "security"
	second, err := e.RunReview(ctx, cs)
	require.NoError(t, err)

	// Mode mismatch forces a fresh review despite the duplicate-key hit.
	assert.False(t, second.FromCache)
	assert.NotEqual(t, first.ReviewID, second.ReviewID)
	assert.Equal(t, 2, diff.listCall)
}

func TestRunReview_ContentAddressedHitAfterBranchChange(t *testing.T) {
	diff := &fakeDiff{files: someFiles(), commit: "abc123"}
	e := newTestEngine(t, diff)
	ctx := context.Background()

	first, err := e.RunReview(ctx, changeSet())
	require.NoError(t, err)

	// A different source branch name dodges the duplicate key, but the
	// same commit hash still hits the content-addressed keyspace.
	cs := changeSet()
	cs.SourceBranch = "feature-rebased"
	second, err := e.RunReview(ctx, cs)
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.ReviewID, second.ReviewID)
	assert.Equal(t, 1, diff.listCall)
}

func TestRunReview_CommitOnlyUsesCommitAsHeadRef(t *testing.T) {
	diff := &fakeDiff{files: someFiles()}
	e := newTestEngine(t, diff)

	cs := changeSet()
	cs.SourceBranch = ""
	cs.SourceCommit = "abc123"

	result, err := e.RunReview(context.Background(), cs)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "abc123", diff.lastHead)
}

func TestRunReview_CommitOnlySubmissionsDoNotCollide(t *testing.T) {
	diff := &fakeDiff{files: someFiles()}
	e := newTestEngine(t, diff)
	ctx := context.Background()

	cs := changeSet()
	cs.SourceBranch = ""
	cs.SourceCommit = "abc123"
	first, err := e.RunReview(ctx, cs)
	require.NoError(t, err)

	// A different commit on the same project/target/task is a different
	// submission, not a duplicate of the first.
	cs.SourceCommit = "def456"
	second, err := e.RunReview(ctx, cs)
	require.NoError(t, err)

	assert.False(t, second.FromCache)
	assert.NotEqual(t, first.ReviewID, second.ReviewID)
	assert.Equal(t, 2, diff.listCall)

	// Resubmitting the first commit still replays its own result.
	cs.SourceCommit = "abc123"
	replay, err := e.RunReview(ctx, cs)
	require.NoError(t, err)
	assert.True(t, replay.FromCache)
	assert.Equal(t, first.ReviewID, replay.ReviewID)
}

func TestRunReview_EmptyChangeSet(t *testing.T) {
	diff := &fakeDiff{files: nil, commit: "abc123"}
	e := newTestEngine(t, diff)

	result, err := e.RunReview(context.Background(), changeSet())
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.Score)
	assert.Contains(t, result.Summary, "No changes")
	assert.Empty(t, result.Findings)
}

func TestRunReview_DiffFailureSurfaces(t *testing.T) {
	diff := &fakeDiff{err: errors.New("host unreachable"), commit: "abc123"}
	e := newTestEngine(t, diff)

	_, err := e.RunReview(context.Background(), changeSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host unreachable")
}

func TestSubmit_AsyncLifecycle(t *testing.T) {
	diff := &fakeDiff{files: someFiles(), commit: "abc123"}
	e := newTestEngine(t, diff)
	ctx := context.Background()

	taskID, err := e.Submit(ctx, changeSet())
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task := waitForTerminal(t, e, taskID)
	assert.Equal(t, tasks.StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	require.NotNil(t, task.Result)
	assert.NotEmpty(t, task.Result.ReviewID)
}

func TestSubmit_FailureReachesTask(t *testing.T) {
	diff := &fakeDiff{err: errors.New("host unreachable"), commit: "abc123"}
	e := newTestEngine(t, diff)
	ctx := context.Background()

	taskID, err := e.Submit(ctx, changeSet())
	require.NoError(t, err)

	task := waitForTerminal(t, e, taskID)
	assert.Equal(t, tasks.StatusFailed, task.Status)
	assert.Contains(t, task.Error, "host unreachable")
}

func TestSubmit_ValidationRejectedUpfront(t *testing.T) {
	e := newTestEngine(t, &fakeDiff{})
	cs := changeSet()
	cs.Mode = "bogus"

	_, err := e.Submit(context.Background(), cs)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func waitForTerminal(t *testing.T, e *Engine, taskID string) *tasks.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := e.Poll(context.Background(), taskID); ok && task.Status.Terminal() {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal state")
	return nil
}
