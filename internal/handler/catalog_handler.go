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

type catalogService interface {
	ListFaculty(ctx context.Context) ([]models.FacultyRecord, error)
	CreateFaculty(ctx context.Context, req dto.FacultyPayload) (*models.FacultyRecord, error)
	ListRooms(ctx context.Context) ([]models.RoomRecord, error)
	CreateRoom(ctx context.Context, req dto.RoomPayload) (*models.RoomRecord, error)
	ListSubjects(ctx context.Context) ([]models.SubjectRecord, error)
	CreateSubject(ctx context.Context, req dto.SubjectPayload) (*models.SubjectRecord, error)
}

// CatalogHandler exposes faculty, room and subject records.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListFaculty godoc
// @Summary List faculty
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/faculty [get]
func (h *CatalogHandler) ListFaculty(c *gin.Context) {
	records, err := h.service.ListFaculty(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// CreateFaculty godoc
// @Summary Create faculty
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.FacultyPayload true "Faculty"
// @Success 201 {object} response.Envelope
// @Router /catalog/faculty [post]
func (h *CatalogHandler) CreateFaculty(c *gin.Context) {
	var req dto.FacultyPayload
	if !bindJSON(c, &req, "invalid faculty payload") {
		return
	}
	record, err := h.service.CreateFaculty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListRooms godoc
// @Summary List rooms
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/rooms [get]
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	records, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// CreateRoom godoc
// @Summary Create room
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.RoomPayload true "Room"
// @Success 201 {object} response.Envelope
// @Router /catalog/rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	var req dto.RoomPayload
	if !bindJSON(c, &req, "invalid room payload") {
		return
	}
	record, err := h.service.CreateRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	records, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// CreateSubject godoc
// @Summary Create subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.SubjectPayload true "Subject"
// @Success 201 {object} response.Envelope
// @Router /catalog/subjects [post]
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req dto.SubjectPayload
	if !bindJSON(c, &req, "invalid subject payload") {
		return
	}
	record, err := h.service.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
