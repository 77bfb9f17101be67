// Package render owns the persisted render task queue. Tasks wait in the
// render_tasks table and are dispatched to workers under a global ceiling.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/frameforge/frameforge-agent/internal/events"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

// DefaultMaxConcurrent is the number of tasks rendering at once.
const DefaultMaxConcurrent = 5

var (
	ErrTaskNotFound = fmt.Errorf("render task %w", studio.ErrNotFound)
	ErrTaskTerminal = errors.New("render task already finished")
	ErrInvalidType  = errors.New("invalid render task type")
	ErrNoShots      = errors.New("no shots to render")
	ErrEmptyShotID  = errors.New("shot id is required")
)

// Runner performs the generation for one task.
type Runner interface {
	Run(ctx context.Context, task *studio.RenderTask, progress provider.ProgressFunc) error
}

// Status is a point-in-time snapshot of the queue.
type Status struct {
	IsProcessing    bool     `json:"isProcessing"`
	ActiveTaskCount int      `json:"activeTaskCount"`
	ActiveTaskIDs   []string `json:"activeTaskIds"`
	MaxConcurrent   int      `json:"maxConcurrent"`
	Paused          bool     `json:"paused"`
}

// run is one dispatch of a task. A resumed task gets a new run, so a worker
// from an earlier dispatch can be told apart from the current one.
type run struct {
	cancel context.CancelFunc
}

type Queue struct {
	repo    studio.Repository
	runner  Runner
	emitter events.Emitter
	logger  *slog.Logger
	max     int
	sem     *semaphore.Weighted

	// mu serializes dispatch passes and every status transition so a
	// cancelled or paused task can never be overwritten by its worker.
	mu     sync.Mutex
	active map[string]*run
	base   context.Context

	paused atomic.Bool
	wg     sync.WaitGroup
}

func New(repo studio.Repository, runner Runner, emitter events.Emitter, maxConcurrent int, logger *slog.Logger) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Queue{
		repo:    repo,
		runner:  runner,
		emitter: emitter,
		logger:  logging.WithComponent(logger, "render"),
		max:     maxConcurrent,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		active:  make(map[string]*run),
		base:    context.Background(),
	}
}

// Start binds worker contexts to ctx and dispatches tasks left queued by a
// previous run. Cancelling ctx stops every in-flight worker; their rows stay
// in rendering and are failed on the next open.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.base = ctx
	n, err := q.repo.CountRenderTasks(ctx, studio.TaskStatusQueued)
	if err != nil {
		return fmt.Errorf("count queued tasks: %w", err)
	}
	q.logger.Info("render queue started", "queued", n, "max_concurrent", q.max)
	q.dispatchLocked(ctx)
	return nil
}

// Wait blocks until every worker has returned.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) CreateTask(ctx context.Context, projectID, shotID, taskType string) (string, error) {
	ids, err := q.CreateBatch(ctx, projectID, []string{shotID}, taskType)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateBatch queues one task per shot and runs a single dispatch pass once
// every row is in place.
func (q *Queue) CreateBatch(ctx context.Context, projectID string, shotIDs []string, taskType string) ([]string, error) {
	if !studio.IsValidArtifact(taskType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, taskType)
	}
	if len(shotIDs) == 0 {
		return nil, ErrNoShots
	}
	p, err := q.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, studio.ErrNotFound)
	}
	for i, shotID := range shotIDs {
		if shotID == "" {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyShotID, i)
		}
		sh, err := q.repo.GetShot(ctx, shotID)
		if err != nil {
			return nil, err
		}
		if sh == nil || sh.ProjectID != projectID {
			return nil, fmt.Errorf("shot %s in project %s: %w", shotID, projectID, studio.ErrNotFound)
		}
	}

	ids := make([]string, 0, len(shotIDs))
	for _, shotID := range shotIDs {
		task := &studio.RenderTask{
			ID:        studio.NewID(),
			ProjectID: projectID,
			ShotID:    shotID,
			Type:      taskType,
			Status:    studio.TaskStatusQueued,
			CreatedAt: time.Now(),
		}
		if err := q.repo.CreateRenderTask(ctx, task); err != nil {
			q.mu.Lock()
			q.dispatchLocked(context.WithoutCancel(ctx))
			q.mu.Unlock()
			return ids, fmt.Errorf("create render task: %w", err)
		}
		ids = append(ids, task.ID)
		q.emitter.Emit(events.ChannelTaskUpdate, task)
	}
	q.logger.Info("render tasks queued", "project_id", projectID, "type", taskType, "count", len(ids))

	q.mu.Lock()
	q.dispatchLocked(ctx)
	q.mu.Unlock()
	return ids, nil
}

func (q *Queue) GetTask(ctx context.Context, id string) (*studio.RenderTask, error) {
	t, err := q.repo.GetRenderTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	return t, nil
}

// ListTasks returns the project's tasks, newest first.
func (q *Queue) ListTasks(ctx context.Context, projectID string, limit int) ([]*studio.RenderTask, error) {
	return q.repo.ListRenderTasks(ctx, projectID, limit)
}

// UpdateTask applies a partial update and broadcasts the resulting row.
func (q *Queue) UpdateTask(ctx context.Context, id string, patch studio.TaskPatch) (*studio.RenderTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.updateLocked(ctx, id, patch)
}

func (q *Queue) updateLocked(ctx context.Context, id string, patch studio.TaskPatch) (*studio.RenderTask, error) {
	changed, err := q.repo.UpdateRenderTask(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update render task: %w", err)
	}
	t, err := q.repo.GetRenderTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	if !changed {
		if studio.IsTerminal(t.Status) {
			return t, fmt.Errorf("%s is %s: %w", id, t.Status, ErrTaskTerminal)
		}
		return t, nil
	}
	q.emitter.Emit(events.ChannelTaskUpdate, t)
	return t, nil
}

// CancelTask aborts the task if it is rendering and deletes its row. Missing
// ids are ignored.
func (q *Queue) CancelTask(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if r, ok := q.active[id]; ok {
		r.cancel()
		delete(q.active, id)
	}
	if err := q.repo.DeleteRenderTask(ctx, id); err != nil {
		return fmt.Errorf("delete render task: %w", err)
	}
	q.logger.Info("render task cancelled", "task_id", id)
	q.dispatchLocked(ctx)
	return nil
}

// PauseTask parks a task. A rendering task is aborted and whatever its
// worker later returns is discarded.
func (q *Queue) PauseTask(ctx context.Context, id string) (*studio.RenderTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, wasActive := q.active[id]
	t, err := q.updateLocked(ctx, id, studio.TaskPatch{Status: ptr(studio.TaskStatusPaused)})
	if err != nil {
		return t, err
	}
	if wasActive {
		r.cancel()
		delete(q.active, id)
		q.dispatchLocked(ctx)
	}
	return t, nil
}

// ResumeTask puts a paused task back in line.
func (q *Queue) ResumeTask(ctx context.Context, id string) (*studio.RenderTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, err := q.repo.GetRenderTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	switch t.Status {
	case studio.TaskStatusQueued, studio.TaskStatusRendering:
		return t, nil
	case studio.TaskStatusCompleted, studio.TaskStatusError:
		return t, fmt.Errorf("%s is %s: %w", id, t.Status, ErrTaskTerminal)
	}

	t, err = q.updateLocked(ctx, id, studio.TaskPatch{Status: ptr(studio.TaskStatusQueued)})
	if err != nil {
		return t, err
	}
	q.dispatchLocked(ctx)
	return t, nil
}

// Pause holds queued tasks in place. Tasks already rendering finish.
func (q *Queue) Pause() {
	q.paused.Store(true)
	q.logger.Info("render queue paused")
}

func (q *Queue) Resume(ctx context.Context) {
	q.paused.Store(false)
	q.logger.Info("render queue resumed")

	q.mu.Lock()
	defer q.mu.Unlock()
	q.dispatchLocked(ctx)
}

func (q *Queue) IsPaused() bool {
	return q.paused.Load()
}

func (q *Queue) QueueStatus() Status {
	q.mu.Lock()
	ids := make([]string, 0, len(q.active))
	for id := range q.active {
		ids = append(ids, id)
	}
	q.mu.Unlock()
	sort.Strings(ids)

	return Status{
		IsProcessing:    len(ids) > 0,
		ActiveTaskCount: len(ids),
		ActiveTaskIDs:   ids,
		MaxConcurrent:   q.max,
		Paused:          q.paused.Load(),
	}
}

// dispatchLocked starts queued tasks until the ceiling is reached. The
// caller holds mu.
func (q *Queue) dispatchLocked(ctx context.Context) {
	if q.paused.Load() || q.base.Err() != nil {
		return
	}
	slots := q.max - len(q.active)
	if slots <= 0 {
		return
	}

	tasks, err := q.repo.ListRenderTasksByStatus(ctx, studio.TaskStatusQueued, slots+len(q.active))
	if err != nil {
		q.logger.Error("failed to list queued tasks", "error", err)
		return
	}

	for _, task := range tasks {
		if slots == 0 {
			break
		}
		if _, ok := q.active[task.ID]; ok {
			continue
		}

		t, err := q.updateLocked(ctx, task.ID, studio.TaskPatch{Status: ptr(studio.TaskStatusRendering)})
		if err != nil {
			q.logger.Warn("failed to start render task", "task_id", task.ID, "error", err)
			continue
		}

		taskCtx, cancel := context.WithCancel(q.base)
		r := &run{cancel: cancel}
		q.active[t.ID] = r
		slots--

		q.wg.Add(1)
		go q.work(taskCtx, r, t)
	}
}

func (q *Queue) work(ctx context.Context, r *run, task *studio.RenderTask) {
	defer q.wg.Done()
	logger := logging.WithTaskID(q.logger, task.ID)

	acquired := false
	err := q.sem.Acquire(ctx, 1)
	if err == nil {
		acquired = true
		logger.Info("render task started", "type", task.Type, "shot_id", task.ShotID)
		start := time.Now()
		err = q.runner.Run(ctx, task, func(percent int) {
			q.reportProgress(ctx, r, task.ID, percent)
		})
		logger.Info("render task finished", "duration", time.Since(start), "error", err)
	}

	q.finish(r, task.ID, err, logger)
	if acquired {
		q.sem.Release(1)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.dispatchLocked(context.WithoutCancel(q.base))
}

// finish records the outcome unless r is no longer the task's current run.
func (q *Queue) finish(r *run, id string, runErr error, logger *slog.Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active[id] != r {
		r.cancel()
		logger.Debug("discarding result of superseded run")
		return
	}
	delete(q.active, id)
	r.cancel()

	if q.base.Err() != nil {
		// Shutting down; the row is failed as interrupted on the next open.
		return
	}

	ctx := context.WithoutCancel(q.base)
	patch := studio.TaskPatch{Status: ptr(studio.TaskStatusCompleted), Progress: ptr(100)}
	if runErr != nil {
		patch = studio.TaskPatch{Status: ptr(studio.TaskStatusError), ErrorMessage: ptr(runErr.Error())}
	}
	if _, err := q.updateLocked(ctx, id, patch); err != nil {
		logger.Warn("failed to record task outcome", "error", err)
	}
}

func (q *Queue) reportProgress(ctx context.Context, r *run, id string, percent int) {
	percent = min(max(percent, 0), 100)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active[id] != r {
		return
	}
	if _, err := q.updateLocked(context.WithoutCancel(ctx), id, studio.TaskPatch{Progress: ptr(percent)}); err != nil {
		q.logger.Debug("failed to record progress", "task_id", id, "error", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
