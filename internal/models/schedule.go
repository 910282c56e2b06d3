package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Snapshot names used by the service layer.
const (
	SnapshotNameWorkspace    = "workspace"
	SnapshotNameAutoSchedule = "auto-schedule"
)

// ScheduleSnapshot is one saved version of the timetable. Every save inserts a
// new row; the latest row is the current schedule.
type ScheduleSnapshot struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Payload   types.JSONText `db:"payload" json:"payload"`
	Result    types.JSONText `db:"result" json:"result,omitempty"`
	Meta      types.JSONText `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// ScheduleSnapshotSummary is the list view of a snapshot without its payload.
type ScheduleSnapshotSummary struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Sessions  int       `db:"sessions" json:"sessions"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SnapshotFilter narrows snapshot history queries.
type SnapshotFilter struct {
	Name     string
	Page     int
	PageSize int
}
