package render

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameforge/frameforge-agent/internal/db"
	"github.com/frameforge/frameforge-agent/internal/events"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

const waitFor = 3 * time.Second

// gatedRunner blocks every task until the gate releases it.
type gatedRunner struct {
	gate      chan struct{}
	started   chan string
	cancelled atomic.Int32
	fail      func(task *studio.RenderTask) error

	mu      sync.Mutex
	running int
	peak    int
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{gate: make(chan struct{}), started: make(chan string, 100)}
}

func (r *gatedRunner) Run(ctx context.Context, task *studio.RenderTask, progress provider.ProgressFunc) error {
	r.mu.Lock()
	r.running++
	r.peak = max(r.peak, r.running)
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()

	r.started <- task.ID
	progress(50)

	select {
	case <-ctx.Done():
		r.cancelled.Add(1)
		return ctx.Err()
	case <-r.gate:
	}
	if r.fail != nil {
		return r.fail(task)
	}
	return nil
}

func (r *gatedRunner) Peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func (r *gatedRunner) waitStarted(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for len(ids) < n {
		select {
		case id := <-r.started:
			ids = append(ids, id)
		case <-time.After(waitFor):
			t.Fatalf("only %d of %d tasks started", len(ids), n)
		}
	}
	return ids
}

type fixture struct {
	repo    *studio.SQLiteRepository
	runner  *gatedRunner
	events  *events.Recorder
	queue   *Queue
	project *studio.Project
	shots   []string
}

func newFixture(t *testing.T, maxConcurrent, shots int) *fixture {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	repo := studio.NewRepository(database.Conn())
	svc := studio.NewService(repo, nil)
	p, err := svc.CreateProject(ctx, &studio.Project{Name: "Pilot"})
	require.NoError(t, err)

	ids := make([]string, shots)
	for i := range ids {
		sh, err := svc.CreateShot(ctx, &studio.Shot{ProjectID: p.ID})
		require.NoError(t, err)
		ids[i] = sh.ID
	}

	runner := newGatedRunner()
	rec := events.NewRecorder()
	q := New(repo, runner, rec, maxConcurrent, logging.Discard())
	t.Cleanup(func() {
		select {
		case <-runner.gate:
		default:
			close(runner.gate)
		}
		q.Wait()
	})

	return &fixture{repo: repo, runner: runner, events: rec, queue: q, project: p, shots: ids}
}

func (f *fixture) count(t *testing.T, status string) int {
	t.Helper()
	n, err := f.repo.CountRenderTasks(context.Background(), status)
	require.NoError(t, err)
	return n
}

func (f *fixture) status(t *testing.T, id string) *studio.RenderTask {
	t.Helper()
	task, err := f.repo.GetRenderTask(context.Background(), id)
	require.NoError(t, err)
	return task
}

func TestCreateBatch_FillsCeilingAndQueuesRest(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 8)

	ids, err := f.queue.CreateBatch(context.Background(), f.project.ID, f.shots, studio.ArtifactImage)
	require.NoError(t, err)
	require.Len(t, ids, 8)

	assert.Equal(t, 5, f.count(t, studio.TaskStatusRendering))
	assert.Equal(t, 3, f.count(t, studio.TaskStatusQueued))

	st := f.queue.QueueStatus()
	assert.True(t, st.IsProcessing)
	assert.Equal(t, 5, st.ActiveTaskCount)
	assert.Len(t, st.ActiveTaskIDs, 5)
	assert.Equal(t, DefaultMaxConcurrent, st.MaxConcurrent)

	// The five oldest rows were picked.
	for _, id := range ids[:5] {
		assert.Equal(t, studio.TaskStatusRendering, f.status(t, id).Status)
		assert.NotNil(t, f.status(t, id).StartedAt)
	}
}

func TestQueue_DrainsWithoutExceedingCeiling(t *testing.T) {
	f := newFixture(t, 3, 10)

	ids, err := f.queue.CreateBatch(context.Background(), f.project.ID, f.shots, studio.ArtifactImage)
	require.NoError(t, err)

	f.runner.waitStarted(t, 3)
	close(f.runner.gate)

	require.Eventually(t, func() bool {
		return f.count(t, studio.TaskStatusCompleted) == len(ids)
	}, waitFor, 10*time.Millisecond)
	f.queue.Wait()

	assert.LessOrEqual(t, f.runner.Peak(), 3)
	assert.False(t, f.queue.QueueStatus().IsProcessing)

	done := f.status(t, ids[9])
	assert.Equal(t, 100, done.Progress)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.ErrorMessage)
}

func TestQueue_FailureIsTerminal(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)
	f.runner.fail = func(*studio.RenderTask) error {
		return errors.New("quota or balance exhausted, check your provider plan: Arrearage")
	}
	ctx := context.Background()

	id, err := f.queue.CreateTask(ctx, f.project.ID, f.shots[0], studio.ArtifactVideo)
	require.NoError(t, err)
	f.runner.waitStarted(t, 1)
	f.runner.gate <- struct{}{}

	require.Eventually(t, func() bool {
		return f.status(t, id).Status == studio.TaskStatusError
	}, waitFor, 10*time.Millisecond)

	task := f.status(t, id)
	assert.Contains(t, task.ErrorMessage, "Arrearage")
	assert.NotNil(t, task.CompletedAt)

	_, err = f.queue.UpdateTask(ctx, id, studio.TaskPatch{Status: ptr(studio.TaskStatusRendering)})
	assert.ErrorIs(t, err, ErrTaskTerminal)
	assert.Equal(t, studio.TaskStatusError, f.status(t, id).Status)

	_, err = f.queue.PauseTask(ctx, id)
	assert.ErrorIs(t, err, ErrTaskTerminal)
	_, err = f.queue.ResumeTask(ctx, id)
	assert.ErrorIs(t, err, ErrTaskTerminal)
}

func TestCancelTask_AbortsAndDeletes(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)
	ctx := context.Background()

	id, err := f.queue.CreateTask(ctx, f.project.ID, f.shots[0], studio.ArtifactImage)
	require.NoError(t, err)
	f.runner.waitStarted(t, 1)

	require.NoError(t, f.queue.CancelTask(ctx, id))
	require.Eventually(t, func() bool { return f.runner.cancelled.Load() == 1 }, waitFor, 10*time.Millisecond)
	f.queue.Wait()

	assert.Nil(t, f.status(t, id))
	assert.Zero(t, f.queue.QueueStatus().ActiveTaskCount)

	assert.NoError(t, f.queue.CancelTask(ctx, id), "cancel is idempotent")
	assert.NoError(t, f.queue.CancelTask(ctx, "never-existed"))

	_, err = f.queue.GetTask(ctx, id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, err, studio.ErrNotFound)
}

func TestCancelTask_FreesSlot(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()

	ids, err := f.queue.CreateBatch(ctx, f.project.ID, f.shots, studio.ArtifactImage)
	require.NoError(t, err)
	assert.Equal(t, studio.TaskStatusQueued, f.status(t, ids[1]).Status)

	require.NoError(t, f.queue.CancelTask(ctx, ids[0]))
	assert.Equal(t, studio.TaskStatusRendering, f.status(t, ids[1]).Status)
	assert.Equal(t, []string{ids[1]}, f.queue.QueueStatus().ActiveTaskIDs)
}

func TestPauseTask_DiscardsLateResult(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)
	ctx := context.Background()

	id, err := f.queue.CreateTask(ctx, f.project.ID, f.shots[0], studio.ArtifactImage)
	require.NoError(t, err)
	f.runner.waitStarted(t, 1)

	task, err := f.queue.PauseTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, studio.TaskStatusPaused, task.Status)
	f.queue.Wait()

	assert.Equal(t, int32(1), f.runner.cancelled.Load())
	assert.Equal(t, studio.TaskStatusPaused, f.status(t, id).Status)
	assert.Zero(t, f.queue.QueueStatus().ActiveTaskCount)

	_, err = f.queue.ResumeTask(ctx, id)
	require.NoError(t, err)
	f.runner.waitStarted(t, 1)
	assert.Equal(t, studio.TaskStatusRendering, f.status(t, id).Status)

	f.runner.gate <- struct{}{}
	require.Eventually(t, func() bool {
		return f.status(t, id).Status == studio.TaskStatusCompleted
	}, waitFor, 10*time.Millisecond)
}

func TestPauseTask_QueuedTaskIsHeld(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()

	ids, err := f.queue.CreateBatch(ctx, f.project.ID, f.shots, studio.ArtifactImage)
	require.NoError(t, err)

	_, err = f.queue.PauseTask(ctx, ids[1])
	require.NoError(t, err)

	f.runner.waitStarted(t, 1)
	f.runner.gate <- struct{}{}
	require.Eventually(t, func() bool {
		return f.status(t, ids[0]).Status == studio.TaskStatusCompleted
	}, waitFor, 10*time.Millisecond)
	f.queue.Wait()

	assert.Equal(t, studio.TaskStatusPaused, f.status(t, ids[1]).Status)
}

func TestQueue_PauseAllHoldsQueuedTasks(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 2)
	ctx := context.Background()

	f.queue.Pause()
	assert.True(t, f.queue.IsPaused())
	_, err := f.queue.CreateBatch(ctx, f.project.ID, f.shots, studio.ArtifactImage)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(t, studio.TaskStatusQueued))
	assert.True(t, f.queue.QueueStatus().Paused)

	f.queue.Resume(ctx)
	assert.Equal(t, 2, f.count(t, studio.TaskStatusRendering))
}

func TestStart_DispatchesPersistedQueue(t *testing.T) {
	f := newFixture(t, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i, shotID := range f.shots {
		require.NoError(t, f.repo.CreateRenderTask(ctx, &studio.RenderTask{
			ID:        studio.NewID(),
			ProjectID: f.project.ID,
			ShotID:    shotID,
			Type:      studio.ArtifactImage,
			Status:    studio.TaskStatusQueued,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}
	assert.Equal(t, 3, f.count(t, studio.TaskStatusQueued))

	require.NoError(t, f.queue.Start(ctx))
	assert.Equal(t, 2, f.count(t, studio.TaskStatusRendering))
	f.runner.waitStarted(t, 2)

	// Shutdown leaves in-flight rows for the next open to reconcile.
	cancel()
	f.queue.Wait()
	assert.Equal(t, 2, f.count(t, studio.TaskStatusRendering))
	assert.Equal(t, 1, f.count(t, studio.TaskStatusQueued))
	assert.Zero(t, f.count(t, studio.TaskStatusError))
}

func TestUpdateTask_EmitsRow(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)
	ctx := context.Background()

	id, err := f.queue.CreateTask(ctx, f.project.ID, f.shots[0], studio.ArtifactImage)
	require.NoError(t, err)
	f.runner.waitStarted(t, 1)

	require.Eventually(t, func() bool {
		for _, e := range f.events.Events(events.ChannelTaskUpdate) {
			if task := e.Payload.(*studio.RenderTask); task.ID == id && task.Progress == 50 {
				return true
			}
		}
		return false
	}, waitFor, 10*time.Millisecond)

	_, err = f.queue.UpdateTask(ctx, "missing", studio.TaskPatch{Progress: ptr(10)})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCreateBatch_Validates(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)
	ctx := context.Background()

	_, err := f.queue.CreateTask(ctx, f.project.ID, f.shots[0], "audio")
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = f.queue.CreateTask(ctx, "missing", f.shots[0], studio.ArtifactImage)
	assert.ErrorIs(t, err, studio.ErrNotFound)

	_, err = f.queue.CreateTask(ctx, f.project.ID, "missing", studio.ArtifactImage)
	assert.ErrorIs(t, err, studio.ErrNotFound)

	_, err = f.queue.CreateBatch(ctx, f.project.ID, nil, studio.ArtifactImage)
	assert.Error(t, err)

	assert.Zero(t, f.count(t, studio.TaskStatusQueued)+f.count(t, studio.TaskStatusRendering))
}

func TestQueue_CompletionPromotesOneQueuedTask(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 7)

	_, err := f.queue.CreateBatch(context.Background(), f.project.ID, f.shots, studio.ArtifactImage)
	require.NoError(t, err)
	assert.Equal(t, 5, f.count(t, studio.TaskStatusRendering))
	assert.Equal(t, 2, f.count(t, studio.TaskStatusQueued))

	f.runner.waitStarted(t, 5)
	f.runner.gate <- struct{}{}

	require.Eventually(t, func() bool {
		return f.count(t, studio.TaskStatusCompleted) == 1
	}, waitFor, 10*time.Millisecond)
	f.runner.waitStarted(t, 1)

	assert.Equal(t, 5, f.count(t, studio.TaskStatusRendering))
	assert.Equal(t, 1, f.count(t, studio.TaskStatusQueued))
	assert.Equal(t, 5, f.queue.QueueStatus().ActiveTaskCount)
}

// stubbornRunner's first run ignores cancellation until released, so it is
// still unwinding when the task is dispatched again.
type stubbornRunner struct {
	calls     atomic.Int32
	started   chan int32
	release   chan struct{}
	firstDone chan struct{}
	gate      chan struct{}
}

func (r *stubbornRunner) Run(ctx context.Context, task *studio.RenderTask, progress provider.ProgressFunc) error {
	n := r.calls.Add(1)
	if n == 1 {
		defer close(r.firstDone)
		r.started <- n
		<-r.release
		progress(90)
		return errors.New("context canceled")
	}
	progress(30)
	r.started <- n
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.gate:
		return nil
	}
}

func TestResumeTask_StaleWorkerDoesNotTouchNewRun(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)
	ctx := context.Background()

	runner := &stubbornRunner{
		started:   make(chan int32, 2),
		release:   make(chan struct{}),
		firstDone: make(chan struct{}),
		gate:      make(chan struct{}),
	}
	q := New(f.repo, runner, events.Nop{}, DefaultMaxConcurrent, logging.Discard())
	t.Cleanup(func() {
		select {
		case <-runner.gate:
		default:
			close(runner.gate)
		}
		q.Wait()
	})

	id, err := q.CreateTask(ctx, f.project.ID, f.shots[0], studio.ArtifactImage)
	require.NoError(t, err)
	require.Equal(t, int32(1), <-runner.started)

	_, err = q.PauseTask(ctx, id)
	require.NoError(t, err)
	_, err = q.ResumeTask(ctx, id)
	require.NoError(t, err)

	select {
	case n := <-runner.started:
		require.Equal(t, int32(2), n)
	case <-time.After(waitFor):
		t.Fatal("resumed task never started")
	}

	close(runner.release)
	select {
	case <-runner.firstDone:
	case <-time.After(waitFor):
		t.Fatal("first run never returned")
	}

	// Give the stale worker time to reach finish.
	time.Sleep(50 * time.Millisecond)

	task := f.status(t, id)
	assert.Equal(t, studio.TaskStatusRendering, task.Status)
	assert.Empty(t, task.ErrorMessage)
	assert.Equal(t, 30, task.Progress)
	assert.Equal(t, []string{id}, q.QueueStatus().ActiveTaskIDs)

	close(runner.gate)
	require.Eventually(t, func() bool {
		return f.status(t, id).Status == studio.TaskStatusCompleted
	}, waitFor, 10*time.Millisecond)
}

func TestCreateBatch_RejectsEmptyShotID(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 1)

	_, err := f.queue.CreateBatch(context.Background(), f.project.ID, []string{f.shots[0], ""}, studio.ArtifactImage)
	assert.ErrorIs(t, err, ErrEmptyShotID)

	tasks, err := f.repo.ListRenderTasks(context.Background(), f.project.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// flakyInsertRepo fails CreateRenderTask once failAt rows are in.
type flakyInsertRepo struct {
	studio.Repository
	inserted int
	failAt   int
}

func (r *flakyInsertRepo) CreateRenderTask(ctx context.Context, task *studio.RenderTask) error {
	if r.inserted == r.failAt {
		return errors.New("disk I/O error")
	}
	r.inserted++
	return r.Repository.CreateRenderTask(ctx, task)
}

func TestCreateBatch_DispatchesRowsInsertedBeforeFailure(t *testing.T) {
	f := newFixture(t, DefaultMaxConcurrent, 3)
	repo := &flakyInsertRepo{Repository: f.repo, failAt: 2}
	q := New(repo, f.runner, events.Nop{}, DefaultMaxConcurrent, logging.Discard())
	t.Cleanup(func() {
		select {
		case <-f.runner.gate:
		default:
			close(f.runner.gate)
		}
		q.Wait()
	})

	ids, err := q.CreateBatch(context.Background(), f.project.ID, f.shots, studio.ArtifactImage)
	require.Error(t, err)
	require.Len(t, ids, 2)

	f.runner.waitStarted(t, 2)
	for _, id := range ids {
		assert.Equal(t, studio.TaskStatusRendering, f.status(t, id).Status)
	}
}
