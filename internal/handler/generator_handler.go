package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type generator interface {
	Run(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	Submit(ctx context.Context, req dto.GenerateRequest) (*dto.TaskHandle, error)
	Get(ctx context.Context, id string) (*models.GenerationTask, error)
	Cancel(ctx context.Context, id string) (*models.GenerationTask, error)
}

// GeneratorHandler exposes timetable generation endpoints.
type GeneratorHandler struct {
	service generator
}

// NewGeneratorHandler constructs the handler.
func NewGeneratorHandler(svc *service.GeneratorService) *GeneratorHandler {
	return &GeneratorHandler{service: svc}
}

// Run godoc
// @Summary Generate a timetable synchronously
// @Description Fills the free cells around pinned sessions. Infeasible inputs return 422 with the unplaceable gap and the partial assignment.
// @Tags Generator
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Generation request"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /generator/run [post]
func (h *GeneratorHandler) Run(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindJSON(c, &req, "invalid generation payload") {
		return
	}
	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Queue a timetable generation
// @Tags Generator
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Generation request"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /generator/tasks [post]
func (h *GeneratorHandler) Submit(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindJSON(c, &req, "invalid generation payload") {
		return
	}
	handle, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, handle)
}

// Status godoc
// @Summary Poll a generation task
// @Description Unknown or expired task ids report PENDING.
// @Tags Generator
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /generator/tasks/{id} [get]
func (h *GeneratorHandler) Status(c *gin.Context) {
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Cancel godoc
// @Summary Cancel a generation task
// @Tags Generator
// @Produce json
// @Param id path string true "Task ID"
// @Success 202 {object} response.Envelope
// @Router /generator/tasks/{id} [delete]
func (h *GeneratorHandler) Cancel(c *gin.Context) {
	task, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, task)
}
