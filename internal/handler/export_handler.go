package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type exportArchive interface {
	Publish(ctx context.Context, query dto.ExportQuery) (*dto.ExportLink, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler publishes stored exports behind signed links.
type ExportHandler struct {
	service exportArchive
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportArchiveService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Publish godoc
// @Summary Store an export and return a signed download link
// @Tags Schedule
// @Produce json
// @Param format query string false "csv, pdf or xlsx"
// @Param section query string false "Section ID"
// @Success 201 {object} response.Envelope
// @Router /schedule/exports [post]
func (h *ExportHandler) Publish(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	link, err := h.service.Publish(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Download godoc
// @Summary Download a stored export
// @Description The signed token is the only credential required.
// @Tags Schedule
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /schedule/exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
