package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type catalogRepository interface {
	ListFaculty(ctx context.Context) ([]models.FacultyRecord, error)
	CreateFaculty(ctx context.Context, record *models.FacultyRecord) error
	ListRooms(ctx context.Context) ([]models.RoomRecord, error)
	CreateRoom(ctx context.Context, record *models.RoomRecord) error
	ListSubjects(ctx context.Context) ([]models.SubjectRecord, error)
	CreateSubject(ctx context.Context, record *models.SubjectRecord) error
	ExistsByName(ctx context.Context, table, name string) (bool, error)
}

// CatalogService manages the stored subjects, faculty and rooms that feed the
// generator.
type CatalogService struct {
	repo      catalogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// ListFaculty returns all stored instructors.
func (s *CatalogService) ListFaculty(ctx context.Context) ([]models.FacultyRecord, error) {
	records, err := s.repo.ListFaculty(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return records, nil
}

// CreateFaculty stores an instructor. Names are unique case-insensitively.
func (s *CatalogService) CreateFaculty(ctx context.Context, req dto.FacultyPayload) (*models.FacultyRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	days, err := timetable.ParseWeekdays(req.AvailableDays)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUnique(ctx, "faculty", name); err != nil {
		return nil, err
	}
	record := &models.FacultyRecord{
		Name:          name,
		Subjects:      trimAll(req.Subjects),
		MaxPerDay:     req.MaxPerDay,
		MaxPerWeek:    req.MaxPerWeek,
		AvailableDays: dayNames(days),
	}
	if err := s.repo.CreateFaculty(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	s.logger.Sugar().Infow("faculty created", "id", record.ID, "name", record.Name)
	return record, nil
}

// ListRooms returns all stored rooms.
func (s *CatalogService) ListRooms(ctx context.Context) ([]models.RoomRecord, error) {
	records, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return records, nil
}

// CreateRoom stores a room. A blank type means classroom.
func (s *CatalogService) CreateRoom(ctx context.Context, req dto.RoomPayload) (*models.RoomRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUnique(ctx, "rooms", name); err != nil {
		return nil, err
	}
	record := &models.RoomRecord{
		Name:     name,
		RoomType: roomType(req.Type),
		Capacity: req.Capacity,
	}
	if err := s.repo.CreateRoom(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	s.logger.Sugar().Infow("room created", "id", record.ID, "name", record.Name, "type", record.RoomType)
	return record, nil
}

// ListSubjects returns all stored subjects.
func (s *CatalogService) ListSubjects(ctx context.Context) ([]models.SubjectRecord, error) {
	records, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return records, nil
}

// CreateSubject stores a subject.
func (s *CatalogService) CreateSubject(ctx context.Context, req dto.SubjectPayload) (*models.SubjectRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	kind, err := timetable.ParseKind(req.Kind)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUnique(ctx, "subjects", name); err != nil {
		return nil, err
	}
	record := &models.SubjectRecord{
		Name:            name,
		Kind:            string(kind),
		WeeklyFrequency: req.WeeklyFrequency,
		RoomType:        strings.ToLower(strings.TrimSpace(req.RoomType)),
		Faculty:         trimAll(req.Faculty),
		Sections:        trimAll(req.Sections),
	}
	if err := s.repo.CreateSubject(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Sugar().Infow("subject created", "id", record.ID, "name", record.Name, "kind", record.Kind)
	return record, nil
}

// Catalog assembles the stored records into generator input.
func (s *CatalogService) Catalog(ctx context.Context) (timetable.Catalog, error) {
	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		return timetable.Catalog{}, err
	}
	faculty, err := s.ListFaculty(ctx)
	if err != nil {
		return timetable.Catalog{}, err
	}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return timetable.Catalog{}, err
	}

	catalog := timetable.Catalog{
		Subjects: make([]timetable.Subject, 0, len(subjects)),
		Faculty:  make([]timetable.Faculty, 0, len(faculty)),
		Rooms:    make([]timetable.Room, 0, len(rooms)),
	}
	for _, rec := range subjects {
		kind, err := timetable.ParseKind(rec.Kind)
		if err != nil {
			return timetable.Catalog{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("stored subject %s is invalid", rec.Name))
		}
		catalog.Subjects = append(catalog.Subjects, timetable.Subject{
			Name:            rec.Name,
			Kind:            kind,
			WeeklyFrequency: rec.WeeklyFrequency,
			RoomType:        rec.RoomType,
			Faculty:         []string(rec.Faculty),
			Sections:        []string(rec.Sections),
		})
	}
	for _, rec := range faculty {
		days, err := timetable.ParseWeekdays(rec.AvailableDays)
		if err != nil {
			return timetable.Catalog{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("stored faculty %s is invalid", rec.Name))
		}
		catalog.Faculty = append(catalog.Faculty, timetable.Faculty{
			Name:          rec.Name,
			Subjects:      []string(rec.Subjects),
			MaxPerDay:     rec.MaxPerDay,
			MaxPerWeek:    rec.MaxPerWeek,
			AvailableDays: days,
		})
	}
	for _, rec := range rooms {
		catalog.Rooms = append(catalog.Rooms, timetable.Room{Name: rec.Name, Type: rec.RoomType, Capacity: rec.Capacity})
	}
	return catalog, nil
}

// ToCatalog converts an inline catalog payload into generator input.
func ToCatalog(payload dto.CatalogPayload) (timetable.Catalog, error) {
	catalog := timetable.Catalog{
		Subjects: make([]timetable.Subject, 0, len(payload.Subjects)),
		Faculty:  make([]timetable.Faculty, 0, len(payload.Faculty)),
		Rooms:    make([]timetable.Room, 0, len(payload.Rooms)),
	}
	for _, sub := range payload.Subjects {
		kind, err := timetable.ParseKind(sub.Kind)
		if err != nil {
			return timetable.Catalog{}, fmt.Errorf("subject %s: %w", sub.Name, err)
		}
		catalog.Subjects = append(catalog.Subjects, timetable.Subject{
			Name:            strings.TrimSpace(sub.Name),
			Kind:            kind,
			WeeklyFrequency: sub.WeeklyFrequency,
			RoomType:        strings.ToLower(strings.TrimSpace(sub.RoomType)),
			Faculty:         trimAll(sub.Faculty),
			Sections:        trimAll(sub.Sections),
		})
	}
	for _, f := range payload.Faculty {
		days, err := timetable.ParseWeekdays(f.AvailableDays)
		if err != nil {
			return timetable.Catalog{}, fmt.Errorf("faculty %s: %w", f.Name, err)
		}
		catalog.Faculty = append(catalog.Faculty, timetable.Faculty{
			Name:          strings.TrimSpace(f.Name),
			Subjects:      trimAll(f.Subjects),
			MaxPerDay:     f.MaxPerDay,
			MaxPerWeek:    f.MaxPerWeek,
			AvailableDays: days,
		})
	}
	for _, r := range payload.Rooms {
		catalog.Rooms = append(catalog.Rooms, timetable.Room{Name: strings.TrimSpace(r.Name), Type: roomType(r.Type), Capacity: r.Capacity})
	}
	return catalog, nil
}

func (s *CatalogService) ensureUnique(ctx context.Context, table, name string) error {
	exists, err := s.repo.ExistsByName(ctx, table, name)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check catalog names")
	}
	if exists {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrDuplicateLabel, fmt.Sprintf("%s already exists", name)), map[string]string{"label": name})
	}
	return nil
}

func roomType(raw string) string {
	if t := strings.ToLower(strings.TrimSpace(raw)); t != "" {
		return t
	}
	return timetable.RoomTypeClassroom
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dayNames(days []timetable.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.String())
	}
	return out
}
