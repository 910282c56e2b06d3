package service

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

type fileExporter interface {
	Export(ctx context.Context, query dto.ExportQuery) (*ExportFile, error)
}

type artifactStore interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Generate(artifactID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (*storage.SignedToken, error)
	TTL() time.Duration
}

// ExportArchiveConfig configures stored exports.
type ExportArchiveConfig struct {
	// DownloadPath is the route that serves ResolveDownload, e.g. /api/v1/schedule/exports/download.
	DownloadPath    string
	CleanupInterval time.Duration
}

// ExportDownload is an opened artifact ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportArchiveService stores rendered exports and hands out signed links to them.
type ExportArchiveService struct {
	exporter fileExporter
	store    artifactStore
	signer   linkSigner
	logger   *zap.Logger
	cfg      ExportArchiveConfig
}

// NewExportArchiveService constructs the archive service.
func NewExportArchiveService(exporter fileExporter, store artifactStore, signer linkSigner, logger *zap.Logger, cfg ExportArchiveConfig) *ExportArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/schedule/exports/download"
	}
	return &ExportArchiveService{exporter: exporter, store: store, signer: signer, logger: logger, cfg: cfg}
}

// Publish renders an export, stores it and returns a signed download link.
func (s *ExportArchiveService) Publish(ctx context.Context, query dto.ExportQuery) (*dto.ExportLink, error) {
	file, err := s.exporter.Export(ctx, query)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	relPath := path.Join(id, file.Filename)
	if _, err := s.store.Save(relPath, file.Payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.logger.Sugar().Infow("export stored", "artifact_id", id, "filename", file.Filename, "bytes", len(file.Payload))
	return &dto.ExportLink{
		ID:          id,
		Filename:    file.Filename,
		Token:       token,
		DownloadURL: s.cfg.DownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveDownload validates a token and opens the stored export.
func (s *ExportArchiveService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if !strings.HasPrefix(parsed.Path, parsed.ArtifactID+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}

	file, err := s.store.Open(parsed.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}

	filename := path.Base(parsed.Path)
	contentType := contentTypes[models.ExportFormat(strings.TrimPrefix(filepath.Ext(filename), "."))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ExportDownload{File: file, Filename: filename, ContentType: contentType, ExpiresAt: parsed.ExpiresAt}, nil
}

// StartCleanup boots a goroutine that purges exports older than the link TTL.
func (s *ExportArchiveService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Cleanup removes artifacts whose links can no longer be valid.
func (s *ExportArchiveService) Cleanup() int {
	deleted, err := s.store.CleanupOlderThan(s.signer.TTL())
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup failed", "error", err)
		return 0
	}
	if len(deleted) > 0 {
		s.logger.Sugar().Infow("expired exports removed", "count", len(deleted))
	}
	return len(deleted)
}
