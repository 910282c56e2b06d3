package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/timetable"
)

// ScheduleDocument is the load/save wire shape. Sections travel as plain ids;
// their tracks ride alongside in Tracks.
type ScheduleDocument struct {
	Sections  []string               `json:"sections" validate:"dive,required"`
	Tracks    map[string]string      `json:"tracks,omitempty"`
	TimeSlots []string               `json:"timeSlots" validate:"dive,required"`
	Sessions  []timetable.Session    `json:"sessions" validate:"dive"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// LoadScheduleResponse wraps the current workspace. Found is false until the
// first save.
type LoadScheduleResponse struct {
	Found bool `json:"found"`
	ScheduleDocument
	Revision   int64      `json:"revision"`
	Dirty      bool       `json:"dirty"`
	SnapshotID string     `json:"snapshotId,omitempty"`
	SavedAt    *time.Time `json:"savedAt,omitempty"`
}

// SaveScheduleRequest replaces the workspace with the given document.
type SaveScheduleRequest struct {
	ScheduleDocument
	Name string `json:"name" validate:"omitempty,max=120"`
}

// SaveScheduleResponse acknowledges a save.
type SaveScheduleResponse struct {
	SnapshotID string    `json:"snapshotId"`
	Revision   int64     `json:"revision"`
	SavedAt    time.Time `json:"savedAt"`
}

// PlacementRequest carries the candidate session fields.
type PlacementRequest struct {
	Section string `json:"section" validate:"required"`
	Day     string `json:"day" validate:"required"`
	Slot    string `json:"slot" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Faculty string `json:"faculty"`
	Room    string `json:"room"`
	Kind    string `json:"kind" validate:"omitempty,oneof=Theory Practical theory practical lab lecture"`
}

// PlaceSessionRequest commits a candidate, optionally accepting its conflicts.
type PlaceSessionRequest struct {
	PlacementRequest
	OverrideConflicts bool `json:"overrideConflicts"`
}

// CheckPlacementResponse lists the conflicts a candidate would introduce.
type CheckPlacementResponse struct {
	Clear     bool                 `json:"clear"`
	Conflicts []timetable.Conflict `json:"conflicts"`
}

// PlacementResponse reports a committed placement.
type PlacementResponse struct {
	Session    timetable.Session    `json:"session"`
	Replaced   []timetable.Session  `json:"replaced,omitempty"`
	Overridden []timetable.Conflict `json:"overridden,omitempty"`
	Revision   int64                `json:"revision"`
}

// MoveSessionRequest repositions a session.
type MoveSessionRequest struct {
	Day               string `json:"day" validate:"required"`
	Slot              string `json:"slot" validate:"required"`
	OverrideConflicts bool   `json:"overrideConflicts"`
}

// RemoveSessionResponse reports whether a session was removed.
type RemoveSessionResponse struct {
	Removed  bool  `json:"removed"`
	Revision int64 `json:"revision"`
}

// TimeSlotRequest adds a column.
type TimeSlotRequest struct {
	Label string `json:"label" validate:"required,max=64"`
}

// RenameTimeSlotRequest relabels a column.
type RenameTimeSlotRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required,max=64"`
}

// SectionRequest adds a section.
type SectionRequest struct {
	ID    string `json:"id" validate:"required,max=64"`
	Track string `json:"track" validate:"omitempty,oneof=Normal TPP NTPP normal tpp ntpp"`
}

// GridResponse returns the grid axes after a time-slot or section edit.
type GridResponse struct {
	Sections  []timetable.Section `json:"sections"`
	TimeSlots []string            `json:"timeSlots"`
	Revision  int64               `json:"revision"`
}

// CascadeResponse reports a destructive edit and the sessions it destroyed.
type CascadeResponse struct {
	GridResponse
	Destroyed int                 `json:"destroyed"`
	Sessions  []timetable.Session `json:"sessions,omitempty"`
}

// ValidateResponse is the invariant audit of the workspace.
type ValidateResponse struct {
	Valid      bool                  `json:"valid"`
	Violations []timetable.Violation `json:"violations"`
}

// ScheduleStats summarises the workspace for dashboards.
type ScheduleStats struct {
	Sections     int            `json:"sections"`
	TimeSlots    int            `json:"timeSlots"`
	Sessions     int            `json:"sessions"`
	Practicals   int            `json:"practicals"`
	Faculty      int            `json:"faculty"`
	Rooms        int            `json:"rooms"`
	Violations   int            `json:"violations"`
	FreeCells    int            `json:"freeCells"`
	PerSection   map[string]int `json:"perSection"`
	Revision     int64          `json:"revision"`
	LastSavedAt  *time.Time     `json:"lastSavedAt,omitempty"`
	LastSnapshot string         `json:"lastSnapshot,omitempty"`
}

// ExportQuery selects the export format and an optional section filter.
type ExportQuery struct {
	Format  string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
	Section string `form:"section"`
}

// SnapshotListQuery pages through snapshot history.
type SnapshotListQuery struct {
	Name     string `form:"name"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ExportLink points at a stored export reachable through a signed token.
type ExportLink struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Token       string    `json:"token"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
