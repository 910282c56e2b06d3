package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

type scheduleSource interface {
	Dataset(ctx context.Context) (timetable.Snapshot, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderSheets(title string, sheets []export.Sheet) ([]byte, error)
}

type xlsxRenderer interface {
	Render(sheets []export.Sheet) ([]byte, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

var sessionHeaders = []string{"Section", "Day", "Slot", "Subject", "Faculty", "Room", "Kind", "Session ID"}

var contentTypes = map[models.ExportFormat]string{
	models.ExportFormatCSV:  "text/csv",
	models.ExportFormatPDF:  "application/pdf",
	models.ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportService renders the committed timetable as CSV, PDF or XLSX.
type ExportService struct {
	source scheduleSource
	csv    csvRenderer
	pdf    pdfRenderer
	xlsx   xlsxRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// package defaults.
func NewExportService(source scheduleSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		source: source,
		csv:    csv,
		pdf:    pdf,
		xlsx:   xlsx,
		logger: logger,
		now:    time.Now,
	}
}

// Export renders the schedule, optionally narrowed to one section. CSV is a
// flat session list; PDF is one day-by-slot grid per section; XLSX carries both.
func (s *ExportService) Export(ctx context.Context, query dto.ExportQuery) (*ExportFile, error) {
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(query.Format)))
	if format == "" {
		format = models.ExportFormatCSV
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", query.Format))
	}

	snap, err := s.source.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	sections := snap.Sections
	if section := strings.TrimSpace(query.Section); section != "" {
		sections = filterSections(snap.Sections, section)
		if len(sections) == 0 {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("unknown section %s", section))
		}
	}
	sessions := sessionsOf(timetable.FromSnapshot(snap), sections)

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(sessionDataset(sessions))
	case models.ExportFormatPDF:
		sheets := gridSheets(snap.TimeSlots, sections, sessions)
		if len(sheets) == 0 {
			sheets = []export.Sheet{{Name: "Sessions", Data: sessionDataset(sessions)}}
		}
		payload, err = s.pdf.RenderSheets("Timetable", sheets)
	case models.ExportFormatXLSX:
		sheets := append([]export.Sheet{{Name: "Sessions", Data: sessionDataset(sessions)}}, gridSheets(snap.TimeSlots, sections, sessions)...)
		payload, err = s.xlsx.Render(sheets)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := s.buildFilename(query.Section, format)
	s.logger.Sugar().Infow("timetable exported", "format", format, "sections", len(sections), "sessions", len(sessions), "bytes", len(payload))
	return &ExportFile{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ExportService) buildFilename(section string, format models.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "all"
	if strings.TrimSpace(section) != "" {
		scope = sanitizeFilename(section)
	}
	return fmt.Sprintf("timetable_%s_%s.%s", scope, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func filterSections(all []timetable.Section, id string) []timetable.Section {
	for _, sec := range all {
		if strings.EqualFold(sec.ID, id) {
			return []timetable.Section{sec}
		}
	}
	return nil
}

// sessionsOf orders sessions by section, then day, then slot position.
func sessionsOf(store *timetable.Store, sections []timetable.Section) []timetable.Session {
	var out []timetable.Session
	for _, sec := range sections {
		out = append(out, store.SessionsFor(sec.ID)...)
	}
	return out
}

func sessionDataset(sessions []timetable.Session) export.Dataset {
	rows := make([]map[string]string, 0, len(sessions))
	for _, sess := range sessions {
		rows = append(rows, map[string]string{
			"Section":    sess.Section,
			"Day":        sess.Day.String(),
			"Slot":       sess.Slot,
			"Subject":    sess.Subject,
			"Faculty":    sess.Faculty,
			"Room":       sess.Room,
			"Kind":       string(sess.Kind),
			"Session ID": sess.ID,
		})
	}
	return export.Dataset{Headers: sessionHeaders, Rows: rows}
}

// gridSheets lays each section out as rows of weekdays and columns of slots.
// A practical fills its start column and the one after it.
func gridSheets(slots []string, sections []timetable.Section, sessions []timetable.Session) []export.Sheet {
	headers := append([]string{"Day"}, slots...)
	position := make(map[string]int, len(slots))
	for i, label := range slots {
		position[label] = i
	}

	sheets := make([]export.Sheet, 0, len(sections))
	for _, sec := range sections {
		cells := make(map[timetable.Weekday]map[string]string, len(timetable.Weekdays))
		for _, sess := range sessions {
			if sess.Section != sec.ID {
				continue
			}
			pos, ok := position[sess.Slot]
			if !ok {
				continue
			}
			row := cells[sess.Day]
			if row == nil {
				row = map[string]string{}
				cells[sess.Day] = row
			}
			row[sess.Slot] = cellText(sess)
			if sess.Kind == timetable.Practical && pos+1 < len(slots) {
				row[slots[pos+1]] = "(cont.) " + sess.Subject
			}
		}

		rows := make([]map[string]string, 0, len(timetable.Weekdays))
		for _, day := range timetable.Weekdays {
			row := map[string]string{"Day": day.String()}
			for label, text := range cells[day] {
				row[label] = text
			}
			rows = append(rows, row)
		}
		name := sec.ID
		if sec.Track != "" && sec.Track != timetable.TrackNormal {
			name = fmt.Sprintf("%s (%s)", sec.ID, sec.Track)
		}
		sheets = append(sheets, export.Sheet{Name: name, Data: export.Dataset{Headers: headers, Rows: rows}})
	}
	return sheets
}

func cellText(sess timetable.Session) string {
	parts := []string{sess.Subject}
	if sess.Faculty != "" {
		parts = append(parts, sess.Faculty)
	}
	if sess.Room != "" {
		parts = append(parts, sess.Room)
	}
	return strings.Join(parts, " / ")
}
