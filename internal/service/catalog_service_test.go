package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type catalogRepoStub struct {
	faculty  []models.FacultyRecord
	rooms    []models.RoomRecord
	subjects []models.SubjectRecord
	listErr  error
}

func (s *catalogRepoStub) ListFaculty(context.Context) ([]models.FacultyRecord, error) {
	return s.faculty, s.listErr
}

func (s *catalogRepoStub) CreateFaculty(_ context.Context, record *models.FacultyRecord) error {
	record.ID = "faculty-" + record.Name
	s.faculty = append(s.faculty, *record)
	return nil
}

func (s *catalogRepoStub) ListRooms(context.Context) ([]models.RoomRecord, error) {
	return s.rooms, s.listErr
}

func (s *catalogRepoStub) CreateRoom(_ context.Context, record *models.RoomRecord) error {
	record.ID = "room-" + record.Name
	s.rooms = append(s.rooms, *record)
	return nil
}

func (s *catalogRepoStub) ListSubjects(context.Context) ([]models.SubjectRecord, error) {
	return s.subjects, s.listErr
}

func (s *catalogRepoStub) CreateSubject(_ context.Context, record *models.SubjectRecord) error {
	record.ID = "subject-" + record.Name
	s.subjects = append(s.subjects, *record)
	return nil
}

func (s *catalogRepoStub) ExistsByName(_ context.Context, table, name string) (bool, error) {
	switch table {
	case "faculty":
		for _, rec := range s.faculty {
			if strings.EqualFold(rec.Name, name) {
				return true, nil
			}
		}
	case "rooms":
		for _, rec := range s.rooms {
			if strings.EqualFold(rec.Name, name) {
				return true, nil
			}
		}
	case "subjects":
		for _, rec := range s.subjects {
			if strings.EqualFold(rec.Name, name) {
				return true, nil
			}
		}
	}
	return false, nil
}

func TestCatalogServiceCreateAndAssemble(t *testing.T) {
	repo := &catalogRepoStub{}
	svc := NewCatalogService(repo, nil, nil)
	ctx := context.Background()

	faculty, err := svc.CreateFaculty(ctx, dto.FacultyPayload{Name: " Dr.X ", Subjects: []string{"Math", " Physics Lab"}, MaxPerDay: 4, AvailableDays: []string{"mon", "Wed"}})
	require.NoError(t, err)
	assert.Equal(t, "Dr.X", faculty.Name)
	assert.Equal(t, []string{"Monday", "Wednesday"}, []string(faculty.AvailableDays))

	room, err := svc.CreateRoom(ctx, dto.RoomPayload{Name: "Lab1", Type: "LAB", Capacity: 30})
	require.NoError(t, err)
	assert.Equal(t, "lab", room.RoomType)

	_, err = svc.CreateRoom(ctx, dto.RoomPayload{Name: "R1", Capacity: 40})
	require.NoError(t, err)

	subject, err := svc.CreateSubject(ctx, dto.SubjectPayload{Name: "Physics Lab", Kind: "lab", WeeklyFrequency: 1})
	require.NoError(t, err)
	assert.Equal(t, "Practical", subject.Kind)

	catalog, err := svc.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog.Subjects, 1)
	assert.Equal(t, timetable.Practical, catalog.Subjects[0].Kind)
	require.Len(t, catalog.Faculty, 1)
	assert.Equal(t, []timetable.Weekday{timetable.Monday, timetable.Wednesday}, catalog.Faculty[0].AvailableDays)
	require.Len(t, catalog.Rooms, 2)
	assert.Equal(t, timetable.RoomTypeClassroom, catalog.Rooms[1].Type)
}

func TestCatalogServiceRejectsDuplicateNames(t *testing.T) {
	repo := &catalogRepoStub{rooms: []models.RoomRecord{{ID: "room-1", Name: "R1"}}}
	svc := NewCatalogService(repo, nil, nil)

	_, err := svc.CreateRoom(context.Background(), dto.RoomPayload{Name: "r1"})
	appErr := assertAppCode(t, err, appErrors.ErrDuplicateLabel.Code)
	assert.Equal(t, map[string]string{"label": "r1"}, appErr.Details)
	assert.Len(t, repo.rooms, 1)
}

func TestCatalogServiceValidation(t *testing.T) {
	svc := NewCatalogService(&catalogRepoStub{}, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateFaculty(ctx, dto.FacultyPayload{Name: "Dr.X"})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateFaculty(ctx, dto.FacultyPayload{Name: "Dr.X", Subjects: []string{"Math"}, AvailableDays: []string{"Sunday"}})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.CreateSubject(ctx, dto.SubjectPayload{Name: "Math", Kind: "seminar"})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestCatalogServiceListFailure(t *testing.T) {
	svc := NewCatalogService(&catalogRepoStub{listErr: errors.New("db down")}, nil, nil)

	_, err := svc.Catalog(context.Background())
	assertAppCode(t, err, appErrors.ErrInternal.Code)
}

func TestToCatalogConvertsInlinePayload(t *testing.T) {
	catalog, err := ToCatalog(dto.CatalogPayload{
		Subjects: []dto.SubjectPayload{{Name: "Math", WeeklyFrequency: 3, Faculty: []string{"Dr.Y", " "}}},
		Faculty:  []dto.FacultyPayload{{Name: "Dr.Y", Subjects: []string{"Math"}, AvailableDays: []string{"Tue"}}},
		Rooms:    []dto.RoomPayload{{Name: "R1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, timetable.Theory, catalog.Subjects[0].Kind)
	assert.Equal(t, []string{"Dr.Y"}, catalog.Subjects[0].Faculty)
	assert.Equal(t, []timetable.Weekday{timetable.Tuesday}, catalog.Faculty[0].AvailableDays)
	assert.Equal(t, timetable.RoomTypeClassroom, catalog.Rooms[0].Type)

	_, err = ToCatalog(dto.CatalogPayload{Subjects: []dto.SubjectPayload{{Name: "Math", Kind: "seminar"}}})
	assert.Error(t, err)
}
