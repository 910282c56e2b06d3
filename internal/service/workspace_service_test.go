package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type snapshotRepoStub struct {
	mu        sync.Mutex
	snapshots []models.ScheduleSnapshot
	createErr error
}

func (s *snapshotRepoStub) Create(_ context.Context, snapshot *models.ScheduleSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	snapshot.ID = fmt.Sprintf("snap-%d", len(s.snapshots)+1)
	snapshot.CreatedAt = time.Date(2024, 1, 1, 8, len(s.snapshots), 0, 0, time.UTC)
	s.snapshots = append(s.snapshots, *snapshot)
	return nil
}

func (s *snapshotRepoStub) Latest(context.Context) (*models.ScheduleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil, sql.ErrNoRows
	}
	latest := s.snapshots[len(s.snapshots)-1]
	return &latest, nil
}

func (s *snapshotRepoStub) FindByID(_ context.Context, id string) (*models.ScheduleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.snapshots {
		if snap.ID == id {
			found := snap
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *snapshotRepoStub) List(_ context.Context, filter models.SnapshotFilter) ([]models.ScheduleSnapshotSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleSnapshotSummary
	for _, snap := range s.snapshots {
		if filter.Name != "" && snap.Name != filter.Name {
			continue
		}
		out = append(out, models.ScheduleSnapshotSummary{ID: snap.ID, Name: snap.Name, CreatedAt: snap.CreatedAt})
	}
	return out, len(out), nil
}

type placementRecorderStub struct {
	outcomes []string
}

func (p *placementRecorderStub) RecordPlacement(outcome string) {
	p.outcomes = append(p.outcomes, outcome)
}

func newWorkspaceFixture(t *testing.T) (*WorkspaceService, *snapshotRepoStub, *placementRecorderStub) {
	t.Helper()
	repo := &snapshotRepoStub{}
	recorder := &placementRecorderStub{}
	n := 0
	svc := NewWorkspaceService(repo, recorder, nil, nil, WorkspaceConfig{
		DefaultTimeSlots: []string{"08:00-09:00", "09:00-10:00", "10:00-11:00"},
		IDGenerator: func() string {
			n++
			return fmt.Sprintf("s%d", n)
		},
	})
	ctx := context.Background()
	for _, id := range []string{"A", "B"} {
		_, err := svc.AddSection(ctx, dto.SectionRequest{ID: id})
		require.NoError(t, err)
	}
	return svc, repo, recorder
}

func assertAppCode(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected application error, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestWorkspaceLoadWithoutSavedSchedule(t *testing.T) {
	svc := NewWorkspaceService(&snapshotRepoStub{}, nil, nil, nil, WorkspaceConfig{DefaultTimeSlots: []string{"08:00", "09:00"}})

	resp, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, []string{"08:00", "09:00"}, resp.TimeSlots)
	assert.Empty(t, resp.Sessions)
	assert.False(t, resp.Dirty)
}

func TestWorkspacePlacementScenario(t *testing.T) {
	svc, _, recorder := newWorkspaceFixture(t)
	ctx := context.Background()

	lab, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{
		Section: "A", Day: "Monday", Slot: "08:00-09:00", Subject: "Physics", Faculty: "Dr.X", Room: "Lab1", Kind: "lab",
	}})
	require.NoError(t, err)
	assert.Equal(t, timetable.Practical, lab.Session.Kind)

	candidate := dto.PlacementRequest{Section: "B", Day: "Mon", Slot: "09:00-10:00", Subject: "Math", Faculty: "Dr.X", Room: "R2"}
	check, err := svc.Check(ctx, candidate)
	require.NoError(t, err)
	assert.False(t, check.Clear)
	require.Len(t, check.Conflicts, 1)
	assert.Equal(t, timetable.DimensionFaculty, check.Conflicts[0].Dimension)

	_, err = svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: candidate})
	appErr := assertAppCode(t, err, appErrors.ErrConflict.Code)
	assert.NotNil(t, appErr.Details)

	forced, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: candidate, OverrideConflicts: true})
	require.NoError(t, err)
	assert.Len(t, forced.Overridden, 1)

	report, err := svc.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	assert.Equal(t, []string{PlacementCommitted, PlacementConflict, PlacementOverridden}, recorder.outcomes)
}

func TestWorkspacePlaceRejectsBadInput(t *testing.T) {
	svc, _, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	_, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "A", Day: "Sunday", Slot: "08:00-09:00", Subject: "Math"}})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "A", Day: "Monday", Slot: "08:00-09:00"}})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "Z", Day: "Monday", Slot: "08:00-09:00", Subject: "Math"}})
	assertAppCode(t, err, appErrors.ErrUnknownReference.Code)

	_, err = svc.Place(ctx, dto.PlaceSessionRequest{
		PlacementRequest:  dto.PlacementRequest{Section: "A", Day: "Friday", Slot: "10:00-11:00", Subject: "Chem", Kind: "Practical"},
		OverrideConflicts: true,
	})
	assertAppCode(t, err, appErrors.ErrNoContinuationSlot.Code)
}

func TestWorkspaceSaveAndReload(t *testing.T) {
	svc, repo, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	_, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "A", Day: "Tuesday", Slot: "08:00-09:00", Subject: "Math"}})
	require.NoError(t, err)

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Dirty)

	saved, err := svc.Save(ctx, dto.SaveScheduleRequest{ScheduleDocument: loaded.ScheduleDocument})
	require.NoError(t, err)
	assert.Equal(t, "snap-1", saved.SnapshotID)
	require.Len(t, repo.snapshots, 1)
	assert.Equal(t, models.SnapshotNameWorkspace, repo.snapshots[0].Name)

	fresh := NewWorkspaceService(repo, nil, nil, nil, WorkspaceConfig{})
	reloaded, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded.Found)
	assert.False(t, reloaded.Dirty)
	assert.Equal(t, []string{"A", "B"}, reloaded.Sections)
	assert.Equal(t, "Normal", reloaded.Tracks["A"])
	require.Len(t, reloaded.Sessions, 1)
	assert.Equal(t, timetable.Tuesday, reloaded.Sessions[0].Day)
}

func TestWorkspaceSaveAcceptsConflictingDocument(t *testing.T) {
	svc, _, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	doc := dto.ScheduleDocument{
		Sections:  []string{"A", "B"},
		Tracks:    map[string]string{"B": "tpp"},
		TimeSlots: []string{"08:00"},
		Sessions: []timetable.Session{
			{ID: "1", Section: "A", Day: timetable.Monday, Slot: "08:00", Subject: "Math", Faculty: "Dr.Y"},
			{ID: "2", Section: "B", Day: timetable.Monday, Slot: "08:00", Subject: "Math", Faculty: "Dr.Y"},
		},
	}
	_, err := svc.Save(ctx, dto.SaveScheduleRequest{ScheduleDocument: doc, Name: "term-1"})
	require.NoError(t, err)

	report, err := svc.Validate(ctx)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, timetable.RuleFacultyExclusive, report.Violations[0].Rule)

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TPP", loaded.Tracks["B"])
}

func TestWorkspaceSaveRejectsUnknownTrack(t *testing.T) {
	svc, repo, _ := newWorkspaceFixture(t)

	_, err := svc.Save(context.Background(), dto.SaveScheduleRequest{ScheduleDocument: dto.ScheduleDocument{
		Sections: []string{"A"}, Tracks: map[string]string{"A": "evening"}, TimeSlots: []string{"08:00"},
	}})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, repo.snapshots)
}

func TestWorkspaceSaveRejectsSessionWithoutDay(t *testing.T) {
	svc, repo, _ := newWorkspaceFixture(t)

	_, err := svc.Save(context.Background(), dto.SaveScheduleRequest{ScheduleDocument: dto.ScheduleDocument{
		Sections:  []string{"A"},
		TimeSlots: []string{"08:00"},
		Sessions: []timetable.Session{
			{ID: "1", Section: "A", Slot: "08:00", Subject: "Math", Faculty: "Dr.Y"},
		},
	}})
	appErr := assertAppCode(t, err, appErrors.ErrValidation.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "invalid day")
	assert.Empty(t, repo.snapshots)

	loaded, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, loaded.Sections)
}

func TestWorkspaceSaveFailureKeepsWorkspace(t *testing.T) {
	svc, repo, _ := newWorkspaceFixture(t)
	repo.createErr = errors.New("db down")

	_, err := svc.Save(context.Background(), dto.SaveScheduleRequest{ScheduleDocument: dto.ScheduleDocument{
		Sections: []string{"Z"}, TimeSlots: []string{"08:00"},
	}})
	assertAppCode(t, err, appErrors.ErrInternal.Code)

	loaded, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, loaded.Sections)
}

func TestWorkspaceGridEditsBumpRevision(t *testing.T) {
	svc, _, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	_, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "A", Day: "Monday", Slot: "09:00-10:00", Subject: "Math"}})
	require.NoError(t, err)

	grid, err := svc.AddTimeSlot(ctx, dto.TimeSlotRequest{Label: "11:00-12:00"})
	require.NoError(t, err)
	assert.Len(t, grid.TimeSlots, 4)

	_, err = svc.AddTimeSlot(ctx, dto.TimeSlotRequest{Label: "11:00-12:00"})
	assertAppCode(t, err, appErrors.ErrDuplicateLabel.Code)

	_, err = svc.RenameTimeSlot(ctx, dto.RenameTimeSlotRequest{From: "09:00-10:00", To: "09:00-09:45"})
	require.NoError(t, err)

	cascade, err := svc.RemoveTimeSlot(ctx, "09:00-09:45")
	require.NoError(t, err)
	assert.Equal(t, 1, cascade.Destroyed)

	removed, err := svc.RemoveSection(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 0, removed.Destroyed)
	assert.Len(t, removed.Sections, 1)

	_, err = svc.RemoveSection(ctx, "B")
	assertAppCode(t, err, appErrors.ErrUnknownReference.Code)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, removed.Revision, stats.Revision)
	assert.Equal(t, 0, stats.Sessions)
}

func TestWorkspaceMoveAndRemove(t *testing.T) {
	svc, _, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	placed, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "A", Day: "Monday", Slot: "08:00-09:00", Subject: "Math", Faculty: "Dr.Y"}})
	require.NoError(t, err)

	moved, err := svc.Move(ctx, placed.Session.ID, dto.MoveSessionRequest{Day: "Wednesday", Slot: "10:00-11:00"})
	require.NoError(t, err)
	assert.Equal(t, placed.Session.ID, moved.Session.ID)
	assert.Equal(t, timetable.Wednesday, moved.Session.Day)

	res, err := svc.Remove(ctx, placed.Session.ID)
	require.NoError(t, err)
	assert.True(t, res.Removed)

	again, err := svc.Remove(ctx, placed.Session.ID)
	require.NoError(t, err)
	assert.False(t, again.Removed)
	assert.Equal(t, res.Revision, again.Revision)
}

func TestWorkspaceStats(t *testing.T) {
	svc, _, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	_, err := svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "A", Day: "Monday", Slot: "08:00-09:00", Subject: "Physics", Faculty: "Dr.X", Room: "Lab1", Kind: "Practical"}})
	require.NoError(t, err)
	_, err = svc.Place(ctx, dto.PlaceSessionRequest{PlacementRequest: dto.PlacementRequest{Section: "B", Day: "Monday", Slot: "08:00-09:00", Subject: "Math", Faculty: "dr.x", Room: "R1"}, OverrideConflicts: true})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sections)
	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 1, stats.Practicals)
	assert.Equal(t, 1, stats.Faculty)
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 1, stats.Violations)
	assert.Equal(t, 2*3*6-3, stats.FreeCells)
	assert.Equal(t, 1, stats.PerSection["A"])
}

func TestWorkspaceSaveGeneratedRespectsRevision(t *testing.T) {
	svc, repo, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	pinned, revision, err := svc.Pinned(ctx)
	require.NoError(t, err)
	_, err = pinned.Place(timetable.Candidate{Section: "A", Day: timetable.Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)

	_, err = svc.AddTimeSlot(ctx, dto.TimeSlotRequest{Label: "11:00-12:00"})
	require.NoError(t, err)

	id, applied, _, err := svc.SaveGenerated(ctx, pinned, map[string]int{"placed": 1}, true, revision)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NotEmpty(t, id)
	assert.Equal(t, models.SnapshotNameAutoSchedule, repo.snapshots[0].Name)
	assert.JSONEq(t, `{"placed":1}`, string(repo.snapshots[0].Result))

	pinned, revision, err = svc.Pinned(ctx)
	require.NoError(t, err)
	_, err = pinned.Place(timetable.Candidate{Section: "B", Day: timetable.Monday, Slot: "08:00-09:00", Subject: "Art"}, false)
	require.NoError(t, err)

	_, applied, newRevision, err := svc.SaveGenerated(ctx, pinned, nil, true, revision)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, revision+1, newRevision)

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Sessions, 1)
	assert.Equal(t, "Art", loaded.Sessions[0].Subject)
	assert.False(t, loaded.Dirty)
}

func TestWorkspaceSnapshots(t *testing.T) {
	svc, _, _ := newWorkspaceFixture(t)
	ctx := context.Background()

	saved, err := svc.Commit(ctx)
	require.NoError(t, err)

	items, pagination, err := svc.ListSnapshots(ctx, dto.SnapshotListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)

	snap, err := svc.GetSnapshot(ctx, saved.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, saved.SnapshotID, snap.ID)

	_, err = svc.GetSnapshot(ctx, "missing")
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}
