package models

import (
	"encoding/json"
	"time"
)

// TaskState captures the lifecycle of an asynchronous generation.
type TaskState string

const (
	TaskStatePending    TaskState = "PENDING"
	TaskStateQueued     TaskState = "QUEUED"
	TaskStateRunning    TaskState = "RUNNING"
	TaskStateSucceeded  TaskState = "SUCCEEDED"
	TaskStateInfeasible TaskState = "INFEASIBLE"
	TaskStateFailed     TaskState = "FAILED"
	TaskStateCancelled  TaskState = "CANCELLED"
)

// Terminal reports whether the task will not change state again.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateSucceeded, TaskStateInfeasible, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// GenerationTask is the status record of a queued generation. It lives in the
// cache with a TTL and is never written to PostgreSQL.
type GenerationTask struct {
	ID         string          `json:"id"`
	State      TaskState       `json:"state"`
	Apply      bool            `json:"apply"`
	Applied    bool            `json:"applied"`
	Revision   int64           `json:"revision"`
	SnapshotID string          `json:"snapshot_id,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      json.RawMessage `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// ExportFormat enumerates supported timetable export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)
