package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

type fileExporterStub struct {
	file  *ExportFile
	err   error
	query dto.ExportQuery
}

func (s *fileExporterStub) Export(ctx context.Context, query dto.ExportQuery) (*ExportFile, error) {
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return s.file, nil
}

func newArchiveFixture(t *testing.T, exporter fileExporter) (*ExportArchiveService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportArchiveService(exporter, store, signer, nil, ExportArchiveConfig{DownloadPath: "/api/v1/schedule/exports/download"})
	return svc, dir
}

func TestExportArchivePublishAndDownload(t *testing.T) {
	exporter := &fileExporterStub{file: &ExportFile{
		Filename:    "timetable_all_20250101-000000.csv",
		ContentType: "text/csv",
		Payload:     []byte("Section,Day\nA,Monday\n"),
	}}
	svc, _ := newArchiveFixture(t, exporter)

	link, err := svc.Publish(context.Background(), dto.ExportQuery{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", exporter.query.Format)
	assert.Equal(t, "timetable_all_20250101-000000.csv", link.Filename)
	assert.True(t, strings.HasPrefix(link.DownloadURL, "/api/v1/schedule/exports/download?token="))
	assert.Equal(t, url.QueryEscape(link.Token), strings.TrimPrefix(link.DownloadURL, "/api/v1/schedule/exports/download?token="))

	download, err := svc.ResolveDownload(context.Background(), link.Token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, "Section,Day\nA,Monday\n", string(body))
	assert.Equal(t, "text/csv", download.ContentType)
	assert.Equal(t, link.Filename, download.Filename)
}

func TestExportArchiveRejectsBadTokens(t *testing.T) {
	svc, _ := newArchiveFixture(t, &fileExporterStub{})

	_, err := svc.ResolveDownload(context.Background(), "")
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.ResolveDownload(context.Background(), "a.b.c.d")
	assertAppCode(t, err, appErrors.ErrForbidden.Code)

	signer := storage.NewSignedURLSigner("secret", time.Hour)
	foreign, _, err := signer.Generate("artifact", "other/file.csv")
	require.NoError(t, err)
	_, err = svc.ResolveDownload(context.Background(), foreign)
	assertAppCode(t, err, appErrors.ErrForbidden.Code)
}

func TestExportArchiveMissingArtifact(t *testing.T) {
	exporter := &fileExporterStub{file: &ExportFile{Filename: "t.xlsx", Payload: []byte("x")}}
	svc, dir := newArchiveFixture(t, exporter)

	link, err := svc.Publish(context.Background(), dto.ExportQuery{Format: "xlsx"})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, link.ID)))

	_, err = svc.ResolveDownload(context.Background(), link.Token)
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}

func TestExportArchivePropagatesExportErrors(t *testing.T) {
	svc, _ := newArchiveFixture(t, &fileExporterStub{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")})

	_, err := svc.Publish(context.Background(), dto.ExportQuery{Format: "doc"})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestExportArchiveCleanup(t *testing.T) {
	exporter := &fileExporterStub{file: &ExportFile{Filename: "t.pdf", Payload: []byte("%PDF")}}
	svc, dir := newArchiveFixture(t, exporter)

	link, err := svc.Publish(context.Background(), dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.Cleanup())

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, link.ID, "t.pdf"), past, past))
	assert.Equal(t, 1, svc.Cleanup())

	_, err = svc.ResolveDownload(context.Background(), link.Token)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
