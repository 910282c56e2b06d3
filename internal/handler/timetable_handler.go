package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type workspaceService interface {
	Load(ctx context.Context) (*dto.LoadScheduleResponse, error)
	Save(ctx context.Context, req dto.SaveScheduleRequest) (*dto.SaveScheduleResponse, error)
	Commit(ctx context.Context) (*dto.SaveScheduleResponse, error)
	Check(ctx context.Context, req dto.PlacementRequest) (*dto.CheckPlacementResponse, error)
	Place(ctx context.Context, req dto.PlaceSessionRequest) (*dto.PlacementResponse, error)
	Move(ctx context.Context, id string, req dto.MoveSessionRequest) (*dto.PlacementResponse, error)
	Remove(ctx context.Context, id string) (*dto.RemoveSessionResponse, error)
	AddTimeSlot(ctx context.Context, req dto.TimeSlotRequest) (*dto.GridResponse, error)
	RenameTimeSlot(ctx context.Context, req dto.RenameTimeSlotRequest) (*dto.GridResponse, error)
	RemoveTimeSlot(ctx context.Context, label string) (*dto.CascadeResponse, error)
	AddSection(ctx context.Context, req dto.SectionRequest) (*dto.GridResponse, error)
	RemoveSection(ctx context.Context, id string) (*dto.CascadeResponse, error)
	Validate(ctx context.Context) (*dto.ValidateResponse, error)
	Stats(ctx context.Context) (*dto.ScheduleStats, error)
	ListSnapshots(ctx context.Context, query dto.SnapshotListQuery) ([]models.ScheduleSnapshotSummary, *models.Pagination, error)
	GetSnapshot(ctx context.Context, id string) (*models.ScheduleSnapshot, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, query dto.ExportQuery) (*service.ExportFile, error)
}

// TimetableHandler exposes the workspace schedule endpoints.
type TimetableHandler struct {
	service  workspaceService
	exporter scheduleExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.WorkspaceService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// Load godoc
// @Summary Load the current schedule
// @Description Returns the workspace. found is false until a schedule has been saved.
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *TimetableHandler) Load(c *gin.Context) {
	result, err := h.service.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Save a schedule
// @Description Persists the document verbatim as a new snapshot and makes it the workspace.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.SaveScheduleRequest true "Schedule document"
// @Success 200 {object} response.Envelope
// @Router /schedule [put]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if !bindJSON(c, &req, "invalid schedule payload") {
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit godoc
// @Summary Persist the current workspace
// @Tags Schedule
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /schedule/commit [post]
func (h *TimetableHandler) Commit(c *gin.Context) {
	result, err := h.service.Commit(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Check godoc
// @Summary Check a candidate placement
// @Description Lists the conflicts the candidate would introduce without changing anything.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.PlacementRequest true "Candidate session"
// @Success 200 {object} response.Envelope
// @Router /schedule/sessions/check [post]
func (h *TimetableHandler) Check(c *gin.Context) {
	var req dto.PlacementRequest
	if !bindJSON(c, &req, "invalid placement payload") {
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Place godoc
// @Summary Place a session
// @Description Conflicts return 409 with the conflict list unless overrideConflicts is set.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.PlaceSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedule/sessions [post]
func (h *TimetableHandler) Place(c *gin.Context) {
	var req dto.PlaceSessionRequest
	if !bindJSON(c, &req, "invalid placement payload") {
		return
	}
	result, err := h.service.Place(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Move godoc
// @Summary Move a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.MoveSessionRequest true "Target cell"
// @Success 200 {object} response.Envelope
// @Router /schedule/sessions/{id}/move [post]
func (h *TimetableHandler) Move(c *gin.Context) {
	var req dto.MoveSessionRequest
	if !bindJSON(c, &req, "invalid move payload") {
		return
	}
	result, err := h.service.Move(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Remove godoc
// @Summary Remove a session
// @Description Idempotent: unknown ids report removed=false.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/sessions/{id} [delete]
func (h *TimetableHandler) Remove(c *gin.Context) {
	result, err := h.service.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AddTimeSlot godoc
// @Summary Append a time slot
// @Tags Grid
// @Accept json
// @Produce json
// @Param payload body dto.TimeSlotRequest true "Label"
// @Success 201 {object} response.Envelope
// @Router /schedule/time-slots [post]
func (h *TimetableHandler) AddTimeSlot(c *gin.Context) {
	var req dto.TimeSlotRequest
	if !bindJSON(c, &req, "invalid time slot payload") {
		return
	}
	result, err := h.service.AddTimeSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RenameTimeSlot godoc
// @Summary Rename a time slot
// @Tags Grid
// @Accept json
// @Produce json
// @Param payload body dto.RenameTimeSlotRequest true "Rename"
// @Success 200 {object} response.Envelope
// @Router /schedule/time-slots/rename [post]
func (h *TimetableHandler) RenameTimeSlot(c *gin.Context) {
	var req dto.RenameTimeSlotRequest
	if !bindJSON(c, &req, "invalid rename payload") {
		return
	}
	result, err := h.service.RenameTimeSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RemoveTimeSlot godoc
// @Summary Remove a time slot
// @Description Destroys every session anchored on or continuing into the slot.
// @Tags Grid
// @Produce json
// @Param label query string true "Slot label"
// @Success 200 {object} response.Envelope
// @Router /schedule/time-slots [delete]
func (h *TimetableHandler) RemoveTimeSlot(c *gin.Context) {
	result, err := h.service.RemoveTimeSlot(c.Request.Context(), c.Query("label"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AddSection godoc
// @Summary Add a section
// @Tags Grid
// @Accept json
// @Produce json
// @Param payload body dto.SectionRequest true "Section"
// @Success 201 {object} response.Envelope
// @Router /schedule/sections [post]
func (h *TimetableHandler) AddSection(c *gin.Context) {
	var req dto.SectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	result, err := h.service.AddSection(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RemoveSection godoc
// @Summary Remove a section and its sessions
// @Tags Grid
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/sections/{id} [delete]
func (h *TimetableHandler) RemoveSection(c *gin.Context) {
	result, err := h.service.RemoveSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Audit schedule invariants
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/validate [get]
func (h *TimetableHandler) Validate(c *gin.Context) {
	result, err := h.service.Validate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Stats godoc
// @Summary Schedule dashboard counters
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/stats [get]
func (h *TimetableHandler) Stats(c *gin.Context) {
	result, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export the schedule
// @Tags Schedule
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Param section query string false "Section ID"
// @Success 200 {file} file
// @Router /schedule/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "export is not configured"))
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}

// ListSnapshots godoc
// @Summary List saved schedules
// @Tags Schedule
// @Produce json
// @Param name query string false "Snapshot name"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *TimetableHandler) ListSnapshots(c *gin.Context) {
	var query dto.SnapshotListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	items, pagination, err := h.service.ListSnapshots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetSnapshot godoc
// @Summary Get a saved schedule
// @Tags Schedule
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *TimetableHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.service.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
