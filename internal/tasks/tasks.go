package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a snapshot of one asynchronous review job.
type Task struct {
	ID        string              `json:"id"`
	Status    Status              `json:"status"`
	Progress  int                 `json:"progress"`
	Message   string              `json:"message,omitempty"`
	Result    *model.ReviewResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// KV is the narrow durable-store contract the task store depends on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

const (
	taskKeyPrefix = "tasks:entry:"
	indexKey      = "tasks:index"

	// DefaultRetention is how long task snapshots stay readable after
	// their last update.
	DefaultRetention = 24 * time.Hour
)

// Store persists task snapshots in a durable KV store. Exactly one
// orchestration run owns a given task id; concurrent writers are
// last-write-wins at the storage layer.
type Store struct {
	kv        KV
	retention time.Duration
	log       zerolog.Logger
}

// NewStore creates a task store with the given retention window.
func NewStore(kv KV, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		kv:        kv,
		retention: retention,
		log:       logging.Component("tasks"),
	}
}

// Create registers a new pending task. Creation is idempotent by id: an
// existing task is returned unchanged.
func (s *Store) Create(ctx context.Context, id string) (*Task, error) {
	if existing, ok := s.Get(ctx, id); ok {
		return existing, nil
	}
	now := time.Now().UTC()
	task := &Task{
		ID:        id,
		Status:    StatusPending,
		Progress:  0,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task %s: %w", id, err)
	}
	s.addToIndex(ctx, id)
	return task, nil
}

// UpdateProgress moves a task to running and records clamped progress.
// Unknown ids and storage errors are logged, never surfaced: progress
// reporting must not abort the review that drives it.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int, message string) {
	task, ok := s.Get(ctx, id)
	if !ok {
		s.log.Warn().Str("task_id", id).Msg("progress update for unknown task")
		return
	}
	if task.Status.Terminal() {
		s.log.Warn().Str("task_id", id).Str("status", string(task.Status)).Msg("ignoring progress update on terminal task")
		return
	}
	task.Status = StatusRunning
	task.Progress = clampProgress(progress)
	task.Message = message
	task.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, task); err != nil {
		s.log.Warn().Err(err).Str("task_id", id).Msg("progress update write failed")
	}
}

// Complete marks the task completed with its result. Terminal: later
// updates to the same id are ignored.
func (s *Store) Complete(ctx context.Context, id string, result *model.ReviewResult) {
	s.finish(ctx, id, func(task *Task) {
		task.Status = StatusCompleted
		task.Progress = 100
		task.Message = "review completed"
		task.Result = result
	})
}

// Fail marks the task failed with an error message. Terminal.
func (s *Store) Fail(ctx context.Context, id string, errMsg string) {
	s.finish(ctx, id, func(task *Task) {
		task.Status = StatusFailed
		task.Message = "review failed"
		task.Error = errMsg
	})
}

func (s *Store) finish(ctx context.Context, id string, apply func(*Task)) {
	task, ok := s.Get(ctx, id)
	if !ok {
		s.log.Warn().Str("task_id", id).Msg("terminal update for unknown task")
		return
	}
	if task.Status.Terminal() {
		s.log.Warn().Str("task_id", id).Str("status", string(task.Status)).Msg("ignoring terminal update on terminal task")
		return
	}
	apply(task)
	task.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, task); err != nil {
		s.log.Error().Err(err).Str("task_id", id).Msg("terminal state write failed")
	}
}

// Get returns a snapshot of the task, or false if absent or expired.
func (s *Store) Get(ctx context.Context, id string) (*Task, bool) {
	if s.kv == nil {
		return nil, false
	}
	data, err := s.kv.Get(ctx, taskKeyPrefix+id)
	if err != nil {
		return nil, false
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		s.log.Warn().Err(err).Str("task_id", id).Msg("discarding undecodable task entry")
		return nil, false
	}
	return &task, true
}

// Sweep removes index references to tasks that have expired out of the
// store, returning the number of references removed.
func (s *Store) Sweep(ctx context.Context) int {
	ids := s.readIndex(ctx)
	var live []string
	removed := 0
	for _, id := range ids {
		if _, ok := s.Get(ctx, id); ok {
			live = append(live, id)
		} else {
			removed++
		}
	}
	if removed > 0 {
		s.writeIndex(ctx, live)
	}
	return removed
}

// List returns snapshots of all indexed, still-live tasks.
func (s *Store) List(ctx context.Context) []*Task {
	var out []*Task
	for _, id := range s.readIndex(ctx) {
		if task, ok := s.Get(ctx, id); ok {
			out = append(out, task)
		}
	}
	return out
}

func (s *Store) save(ctx context.Context, task *Task) error {
	if s.kv == nil {
		return fmt.Errorf("task store has no backing store")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task %s: %w", task.ID, err)
	}
	return s.kv.SetTTL(ctx, taskKeyPrefix+task.ID, data, s.retention)
}

func (s *Store) readIndex(ctx context.Context) []string {
	if s.kv == nil {
		return nil
	}
	data, err := s.kv.Get(ctx, indexKey)
	if err != nil {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil
	}
	return ids
}

func (s *Store) writeIndex(ctx context.Context, ids []string) {
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	// The index itself never expires; sweep keeps it honest.
	if err := s.kv.SetTTL(ctx, indexKey, data, 0); err != nil {
		s.log.Warn().Err(err).Msg("task index write failed")
	}
}

func (s *Store) addToIndex(ctx context.Context, id string) {
	ids := s.readIndex(ctx)
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	s.writeIndex(ctx, append(ids, id))
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
