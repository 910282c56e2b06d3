package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type exportArchiveStub struct {
	query dto.ExportQuery
	token string
	path  string
	err   error
}

func (s *exportArchiveStub) Publish(ctx context.Context, query dto.ExportQuery) (*dto.ExportLink, error) {
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ExportLink{ID: "a1", Filename: "timetable_all.csv", Token: "tok", DownloadURL: "/schedule/exports/download?token=tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *exportArchiveStub) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	s.token = token
	if s.err != nil {
		return nil, s.err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	return &service.ExportDownload{File: file, Filename: "timetable_all.csv", ContentType: "text/csv"}, nil
}

func TestExportHandlerPublish(t *testing.T) {
	stub := &exportArchiveStub{}
	handler := &ExportHandler{service: stub}
	c, w := newTestContext(http.MethodPost, "/schedule/exports?format=xlsx", nil)

	handler.Publish(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "xlsx", stub.query.Format)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/schedule/exports/download?token=tok", data["downloadUrl"])
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("Section,Day\n"), 0o644))
	stub := &exportArchiveStub{path: path}
	handler := &ExportHandler{service: stub}
	c, w := newTestContext(http.MethodGet, "/schedule/exports/download?token=abc", nil)

	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", stub.token)
	assert.Equal(t, "Section,Day\n", w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable_all.csv")
}

func TestExportHandlerDownloadForbidden(t *testing.T) {
	handler := &ExportHandler{service: &exportArchiveStub{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")}}
	c, w := newTestContext(http.MethodGet, "/schedule/exports/download?token=bad", nil)

	handler.Download(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}
