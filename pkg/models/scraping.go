package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of the data pipeline job.
type JobStatus string

const (
	StatusIdle      JobStatus = "idle"
	StatusRunning   JobStatus = "running"
	StatusPaused    JobStatus = "paused"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusStopped   JobStatus = "stopped"
)

// IsTerminal reports whether the status is a final state for a run.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}

// IsActive reports whether a run currently holds the single job slot.
func (s JobStatus) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// TotalPipelineSteps is the fixed number of acquisition/merge steps per run.
const TotalPipelineSteps = 6

// ScrapingJob is a point-in-time snapshot of the single process-wide job.
// ProgressPercentage is derived from CurrentStep; CurrentStep is the
// authoritative progress field.
type ScrapingJob struct {
	Status             JobStatus  `json:"status"`
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	RecordsProcessed   int        `json:"records_processed"`
	ErrorMessage       *string    `json:"error_message"`
	CurrentStep        int        `json:"current_step"`
	TotalSteps         int        `json:"total_steps"`
	StepName           string     `json:"step_name"`
	ProgressPercentage float64    `json:"progress_percentage"`
}

// Progress computes the percentage for a given step count.
func Progress(currentStep, totalSteps int) float64 {
	if currentStep <= 0 || totalSteps <= 0 {
		return 0
	}
	return math.Round(float64(currentStep) / float64(totalSteps) * 100)
}

// ScrapingLog is one immutable history row per pipeline run. A row is
// inserted when the run starts and finalized when it reaches a terminal
// state.
type ScrapingLog struct {
	ID               int64      `db:"id" json:"id"`
	Status           JobStatus  `db:"status" json:"status"`
	StartedBy        uuid.UUID  `db:"started_by" json:"started_by"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at"`
	ErrorMessage     *string    `db:"error_message" json:"error_message"`
	RecordsProcessed int        `db:"records_processed" json:"records_processed"`
	CurrentStep      int        `db:"current_step" json:"current_step"`
	TotalSteps       int        `db:"total_steps" json:"total_steps"`
	StepName         string     `db:"step_name" json:"step_name"`
}
