// Package pipeline drives the six-step housing data acquisition pipeline:
// downloading and merging Zillow extracts, enriching rows with HUD and
// Census data, computing ratios and persisting the merged dataset. One job
// may be active process-wide; progress is exposed through consistent
// snapshots and every run leaves one row in the log store.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogStore is the durable history of pipeline runs.
type LogStore interface {
	// CreateLog inserts a new run row and returns its id.
	CreateLog(ctx context.Context, log *models.ScrapingLog) (int64, error)
	// UpdateLog overwrites the row identified by log.ID.
	UpdateLog(ctx context.Context, log *models.ScrapingLog) error
	// ListLogs returns one page ordered by started_at descending plus the
	// total row count. Out-of-range pages yield an empty slice.
	ListLogs(ctx context.Context, page, limit int) ([]models.ScrapingLog, int, error)
}

// Step is one unit of pipeline work. Run must honor ctx cancellation at its
// own checkpoints; the orchestrator only guarantees a cancellation check
// between steps.
type Step struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// State is the working data shared by the steps of one run.
type State struct {
	ZHVI    *Table
	ZORI    *Table
	Records []models.HousingRecord

	report func(int)
}

// ReportRecords publishes an updated records-processed count while a step is
// still running.
func (st *State) ReportRecords(n int) {
	if st.report != nil {
		st.report(n)
	}
}

// Orchestrator owns the single mutable pipeline job. All reads and writes of
// the job snapshot go through its mutex; the background run never exposes a
// partially-written snapshot.
type Orchestrator struct {
	mu     sync.Mutex
	job    models.ScrapingJob
	cancel context.CancelFunc
	done   chan struct{}

	steps  []Step
	logs   LogStore
	logger *zap.Logger

	// finalizeTimeout bounds the log write performed after a run ends.
	finalizeTimeout time.Duration
}

// New creates an orchestrator in the idle state.
func New(steps []Step, logs LogStore, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		job: models.ScrapingJob{
			Status:     models.StatusIdle,
			TotalSteps: models.TotalPipelineSteps,
		},
		steps:           steps,
		logs:            logs,
		logger:          logger,
		finalizeTimeout: 10 * time.Second,
	}
}

// Start begins a new run. It fails with ErrAlreadyRunning while a previous
// run is still active; any terminal or idle state may be restarted. The job
// slot is reserved before the log row is inserted so the mutex is never held
// across the database call; Status and Stop stay responsive while the insert
// is in flight.
func (o *Orchestrator) Start(ctx context.Context, startedBy uuid.UUID) error {
	now := time.Now().UTC()
	runCtx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	if o.job.Status.IsActive() {
		o.mu.Unlock()
		cancel()
		return ErrAlreadyRunning
	}
	prev := o.job
	o.cancel = cancel
	o.done = make(chan struct{})
	o.job = models.ScrapingJob{
		Status:      models.StatusRunning,
		StartedAt:   &now,
		CurrentStep: 1,
		TotalSteps:  models.TotalPipelineSteps,
		StepName:    o.stepName(0),
	}
	o.mu.Unlock()

	logRow := &models.ScrapingLog{
		Status:     models.StatusRunning,
		StartedBy:  startedBy,
		StartedAt:  now,
		TotalSteps: models.TotalPipelineSteps,
		StepName:   o.stepName(0),
	}
	logID, err := o.logs.CreateLog(ctx, logRow)
	if err != nil {
		// Roll the reservation back; a waiter that saw the slot as active
		// must still be released.
		o.mu.Lock()
		o.job = prev
		o.cancel = nil
		done := o.done
		o.done = nil
		o.mu.Unlock()
		cancel()
		close(done)
		return newStepError("create run log", err)
	}
	logRow.ID = logID

	o.logger.Info("pipeline run started",
		zap.String("started_by", startedBy.String()),
		zap.Int64("log_id", logID))

	go o.run(runCtx, logRow)
	return nil
}

// Stop requests cooperative cancellation. The flag is observed between
// steps, so stop latency is bounded by the longest single step (the HUD
// fetch, which additionally checks the flag between row batches). Stopping
// an idle or terminal job is a no-op; the current snapshot is returned
// either way.
func (o *Orchestrator) Stop() models.ScrapingJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job.Status.IsActive() && o.cancel != nil {
		o.logger.Info("pipeline stop requested", zap.Int("current_step", o.job.CurrentStep))
		o.cancel()
	}
	return o.snapshotLocked()
}

// Status returns a consistent snapshot of the current job.
func (o *Orchestrator) Status() models.ScrapingJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Logs returns one page of run history, newest first, plus the total count.
func (o *Orchestrator) Logs(ctx context.Context, page, limit int) ([]models.ScrapingLog, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return o.logs.ListLogs(ctx, page, limit)
}

// Shutdown stops any active run and waits for it to finish or ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	done := o.done
	if o.job.Status.IsActive() && o.cancel != nil {
		o.cancel()
	} else {
		done = nil
	}
	o.mu.Unlock()

	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) run(ctx context.Context, logRow *models.ScrapingLog) {
	st := &State{report: o.setRecords}

	for i, step := range o.steps {
		// Cancellation checkpoint between steps.
		if ctx.Err() != nil {
			o.finish(ctx, logRow, models.StatusStopped, nil)
			return
		}

		o.setStep(i+1, step.Name)
		o.logger.Info("pipeline step starting",
			zap.Int("step", i+1),
			zap.Int("total_steps", models.TotalPipelineSteps),
			zap.String("name", step.Name))

		if err := step.Run(ctx, st); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				o.finish(ctx, logRow, models.StatusStopped, nil)
				return
			}
			o.logger.Error("pipeline step failed",
				zap.Int("step", i+1),
				zap.String("name", step.Name),
				zap.Error(err))
			o.finish(ctx, logRow, models.StatusFailed, newStepError(step.Name, err))
			return
		}

		if n := len(st.Records); n > 0 {
			o.setRecords(n)
		}
	}

	o.finish(ctx, logRow, models.StatusCompleted, nil)
}

func (o *Orchestrator) finish(ctx context.Context, logRow *models.ScrapingLog, status models.JobStatus, cause *Error) {
	now := time.Now().UTC()

	o.mu.Lock()
	o.job.Status = status
	o.job.CompletedAt = &now
	if cause != nil {
		msg := cause.UserMessage()
		o.job.ErrorMessage = &msg
	}
	final := o.job
	done := o.done
	o.cancel = nil
	o.mu.Unlock()

	logRow.Status = final.Status
	logRow.CompletedAt = final.CompletedAt
	logRow.ErrorMessage = final.ErrorMessage
	logRow.RecordsProcessed = final.RecordsProcessed
	logRow.CurrentStep = final.CurrentStep
	logRow.StepName = final.StepName

	// The run context may already be cancelled; the log write gets its own
	// bounded context so history is not lost on stop.
	logCtx, cancel := context.WithTimeout(context.Background(), o.finalizeTimeout)
	defer cancel()
	if err := o.logs.UpdateLog(logCtx, logRow); err != nil {
		o.logger.Error("failed to finalize run log", zap.Int64("log_id", logRow.ID), zap.Error(err))
	}

	o.logger.Info("pipeline run finished",
		zap.String("status", string(final.Status)),
		zap.Int("records_processed", final.RecordsProcessed))

	if done != nil {
		close(done)
	}
}

func (o *Orchestrator) setStep(step int, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	// current_step is monotonically non-decreasing within a run.
	if step > o.job.CurrentStep {
		o.job.CurrentStep = step
	}
	o.job.StepName = name
}

func (o *Orchestrator) setRecords(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n > o.job.RecordsProcessed {
		o.job.RecordsProcessed = n
	}
}

// snapshotLocked copies the job and derives the progress percentage from the
// authoritative step counter. Callers must hold o.mu.
func (o *Orchestrator) snapshotLocked() models.ScrapingJob {
	snap := o.job
	snap.ProgressPercentage = models.Progress(snap.CurrentStep, snap.TotalSteps)
	return snap
}

func (o *Orchestrator) stepName(i int) string {
	if i >= 0 && i < len(o.steps) {
		return o.steps[i].Name
	}
	return ""
}
