package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSteps(n int, run func(ctx context.Context, st *State) error) []Step {
	steps := make([]Step, n)
	for i := range steps {
		steps[i] = Step{Name: "step", Run: run}
	}
	return steps
}

func waitTerminal(t *testing.T, o *Orchestrator) models.ScrapingJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job := o.Status()
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state")
	return models.ScrapingJob{}
}

func TestOrchestratorCompletes(t *testing.T) {
	logs := NewMemoryLogStore()
	noop := func(ctx context.Context, st *State) error { return nil }
	o := New(fakeSteps(models.TotalPipelineSteps, noop), logs, nil)

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	job := waitTerminal(t, o)

	assert.Equal(t, models.StatusCompleted, job.Status)
	assert.Equal(t, models.TotalPipelineSteps, job.CurrentStep)
	assert.Equal(t, 100.0, job.ProgressPercentage)
	require.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.ErrorMessage)

	rows, total, err := logs.ListLogs(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusCompleted, rows[0].Status)
	assert.NotNil(t, rows[0].CompletedAt)
}

func TestOrchestratorRejectsConcurrentStart(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once
	blocking := func(ctx context.Context, st *State) error {
		startedOnce.Do(func() { close(started) })
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o := New([]Step{{Name: "blocking", Run: blocking}}, NewMemoryLogStore(), nil)

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	<-started

	err := o.Start(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	job := waitTerminal(t, o)
	assert.Equal(t, models.StatusCompleted, job.Status)

	// A finished run frees the slot for the next one.
	require.NoError(t, o.Start(context.Background(), uuid.New()))
	waitTerminal(t, o)
}

func TestOrchestratorStop(t *testing.T) {
	entered := make(chan struct{})
	blocking := func(ctx context.Context, st *State) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}
	never := func(ctx context.Context, st *State) error {
		t.Error("step after stop should not run")
		return nil
	}
	o := New([]Step{{Name: "blocking", Run: blocking}, {Name: "never", Run: never}}, NewMemoryLogStore(), nil)

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	<-entered

	snap := o.Stop()
	assert.True(t, snap.Status.IsActive() || snap.Status.IsTerminal())

	job := waitTerminal(t, o)
	assert.Equal(t, models.StatusStopped, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.ErrorMessage)
}

func TestOrchestratorStopWhenIdle(t *testing.T) {
	o := New(nil, NewMemoryLogStore(), nil)
	job := o.Stop()
	assert.Equal(t, models.StatusIdle, job.Status)
}

func TestOrchestratorStepFailure(t *testing.T) {
	boom := errors.New("boom")
	steps := []Step{
		{Name: "ok", Run: func(ctx context.Context, st *State) error { return nil }},
		{Name: "explode", Run: func(ctx context.Context, st *State) error { return boom }},
	}
	logs := NewMemoryLogStore()
	o := New(steps, logs, nil)

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	job := waitTerminal(t, o)

	assert.Equal(t, models.StatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "explode")

	rows, _, err := logs.ListLogs(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusFailed, rows[0].Status)
}

func TestOrchestratorProgressIsMonotonic(t *testing.T) {
	var steps []Step
	seen := make(chan models.ScrapingJob, 16)
	o := New(nil, NewMemoryLogStore(), nil)
	for i := 0; i < models.TotalPipelineSteps; i++ {
		steps = append(steps, Step{Name: "step", Run: func(ctx context.Context, st *State) error {
			seen <- o.Status()
			return nil
		}})
	}
	o.steps = steps

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	waitTerminal(t, o)
	close(seen)

	prev := 0
	for job := range seen {
		assert.GreaterOrEqual(t, job.CurrentStep, prev)
		assert.LessOrEqual(t, job.CurrentStep, models.TotalPipelineSteps)
		assert.Equal(t, models.Progress(job.CurrentStep, job.TotalSteps), job.ProgressPercentage)
		prev = job.CurrentStep
	}
	assert.Equal(t, models.TotalPipelineSteps, prev)
}

func TestOrchestratorRecordsProgress(t *testing.T) {
	steps := []Step{{Name: "report", Run: func(ctx context.Context, st *State) error {
		st.ReportRecords(120)
		st.ReportRecords(340)
		return nil
	}}}
	o := New(steps, NewMemoryLogStore(), nil)

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	job := waitTerminal(t, o)
	assert.Equal(t, 340, job.RecordsProcessed)
}

func TestOrchestratorShutdownWaits(t *testing.T) {
	entered := make(chan struct{})
	blocking := func(ctx context.Context, st *State) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}
	o := New([]Step{{Name: "blocking", Run: blocking}}, NewMemoryLogStore(), nil)

	require.NoError(t, o.Start(context.Background(), uuid.New()))
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.Shutdown(ctx)

	assert.True(t, o.Status().Status.IsTerminal())
}

// gatedLogStore blocks CreateLog until released so tests can observe the
// orchestrator while the insert is in flight.
type gatedLogStore struct {
	*MemoryLogStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedLogStore) CreateLog(ctx context.Context, log *models.ScrapingLog) (int64, error) {
	close(s.entered)
	<-s.release
	return s.MemoryLogStore.CreateLog(ctx, log)
}

type failingLogStore struct {
	*MemoryLogStore
}

func (s *failingLogStore) CreateLog(context.Context, *models.ScrapingLog) (int64, error) {
	return 0, errors.New("insert refused")
}

func TestOrchestratorStatusDuringLogInsert(t *testing.T) {
	logs := &gatedLogStore{
		MemoryLogStore: NewMemoryLogStore(),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	noop := func(ctx context.Context, st *State) error { return nil }
	o := New(fakeSteps(1, noop), logs, nil)

	startErr := make(chan error, 1)
	go func() { startErr <- o.Start(context.Background(), uuid.New()) }()
	<-logs.entered

	// The slot is reserved but the log insert has not returned yet; Status
	// must not block behind it.
	snapshots := make(chan models.ScrapingJob, 1)
	go func() { snapshots <- o.Status() }()
	select {
	case job := <-snapshots:
		assert.Equal(t, models.StatusRunning, job.Status)
	case <-time.After(time.Second):
		t.Fatal("Status blocked while the log insert was in flight")
	}

	close(logs.release)
	require.NoError(t, <-startErr)
	job := waitTerminal(t, o)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestOrchestratorStartRollsBackOnLogFailure(t *testing.T) {
	noop := func(ctx context.Context, st *State) error { return nil }
	o := New(fakeSteps(1, noop), &failingLogStore{NewMemoryLogStore()}, nil)

	err := o.Start(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert refused")
	assert.Equal(t, models.StatusIdle, o.Status().Status)

	// The reservation was rolled back, so a working store can start a run.
	o.logs = NewMemoryLogStore()
	require.NoError(t, o.Start(context.Background(), uuid.New()))
	job := waitTerminal(t, o)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestMemoryLogStorePagination(t *testing.T) {
	store := NewMemoryLogStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.CreateLog(ctx, &models.ScrapingLog{
			Status:    models.StatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		rows, total, err := store.ListLogs(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, rows, 2)
		assert.True(t, rows[0].StartedAt.After(rows[1].StartedAt))
	})

	t.Run("pages concatenate to the full history", func(t *testing.T) {
		var all []models.ScrapingLog
		for page := 1; ; page++ {
			rows, _, err := store.ListLogs(ctx, page, 2)
			require.NoError(t, err)
			if len(rows) == 0 {
				break
			}
			all = append(all, rows...)
		}
		require.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			assert.True(t, !all[i-1].StartedAt.Before(all[i].StartedAt))
		}
	})

	t.Run("out of range page is empty not an error", func(t *testing.T) {
		rows, total, err := store.ListLogs(ctx, 99, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, rows)
	})
}
