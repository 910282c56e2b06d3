package dto

import (
	"github.com/noah-isme/timetable-api/internal/timetable"
)

// RequirementRequest overrides one subject's weekly frequency for a section.
type RequirementRequest struct {
	Subject string `json:"subject" validate:"required"`
	PerWeek int    `json:"perWeek" validate:"min=0,max=48"`
}

// SectionPlanRequest describes a section to generate for.
type SectionPlanRequest struct {
	ID           string               `json:"id" validate:"required"`
	Track        string               `json:"track" validate:"omitempty,oneof=Normal TPP NTPP normal tpp ntpp"`
	Strength     int                  `json:"strength" validate:"min=0"`
	Requirements []RequirementRequest `json:"requirements" validate:"omitempty,dive"`
}

// GenerateRequest starts a generation. Without sections every workspace
// section is planned from the catalog. The stored catalog is used when none is
// supplied inline.
type GenerateRequest struct {
	Sections  []SectionPlanRequest `json:"sections" validate:"omitempty,dive"`
	Catalog   *CatalogPayload      `json:"catalog"`
	Days      []string             `json:"days"`
	TimeSlots []string             `json:"timeSlots" validate:"omitempty,dive,required"`
	// UsePinned keeps the workspace sessions fixed. Defaults to true.
	UsePinned *bool `json:"usePinned"`
	// Apply replaces the workspace with the result when it has not changed meanwhile.
	Apply bool `json:"apply"`
}

// PinnedEnabled resolves the UsePinned default.
func (r GenerateRequest) PinnedEnabled() bool {
	return r.UsePinned == nil || *r.UsePinned
}

// GenerateResponse carries a complete generated schedule.
type GenerateResponse struct {
	ScheduleDocument
	Placed     []timetable.Session     `json:"placed"`
	Stats      timetable.GenerateStats `json:"stats"`
	SnapshotID string                  `json:"snapshotId,omitempty"`
	Applied    bool                    `json:"applied"`
	Revision   int64                   `json:"revision,omitempty"`
	DurationMS int64                   `json:"durationMs"`
}

// TaskHandle is returned when a generation is queued.
type TaskHandle struct {
	TaskID string `json:"taskId"`
	State  string `json:"state"`
}
