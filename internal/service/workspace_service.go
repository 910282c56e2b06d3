package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type snapshotRepository interface {
	Create(ctx context.Context, snapshot *models.ScheduleSnapshot) error
	Latest(ctx context.Context) (*models.ScheduleSnapshot, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleSnapshot, error)
	List(ctx context.Context, filter models.SnapshotFilter) ([]models.ScheduleSnapshotSummary, int, error)
}

type placementRecorder interface {
	RecordPlacement(outcome string)
}

// WorkspaceConfig tunes the workspace service.
type WorkspaceConfig struct {
	// DefaultTimeSlots seed the grid when no schedule has ever been saved.
	DefaultTimeSlots []string
	// IDGenerator overrides session ids, mainly for tests.
	IDGenerator func() string
}

// WorkspaceService owns the single live timetable. Every mutation runs under
// the write lock so two writers can never both pass the conflict check against
// a stale view; reads share the read lock.
type WorkspaceService struct {
	repo      snapshotRepository
	metrics   placementRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       WorkspaceConfig

	mu            sync.RWMutex
	loaded        bool
	store         *timetable.Store
	meta          map[string]interface{}
	revision      int64
	savedRevision int64
	snapshotID    string
	savedAt       *time.Time
}

// NewWorkspaceService constructs the service. The schedule is read lazily on
// first use.
func NewWorkspaceService(repo snapshotRepository, metrics placementRecorder, validate *validator.Validate, logger *zap.Logger, cfg WorkspaceConfig) *WorkspaceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceService{
		repo:      repo,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *WorkspaceService) storeOptions() []timetable.Option {
	if s.cfg.IDGenerator == nil {
		return nil
	}
	return []timetable.Option{timetable.WithIDGenerator(s.cfg.IDGenerator)}
}

// ensureLoaded reads the latest snapshot once. Callers must not hold the lock.
func (s *WorkspaceService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	snapshot, err := s.repo.Latest(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if snapshot == nil {
		s.store = timetable.NewStore(s.cfg.DefaultTimeSlots, s.storeOptions()...)
		s.loaded = true
		s.logger.Sugar().Infow("no saved schedule, starting empty", "time_slots", len(s.cfg.DefaultTimeSlots))
		return nil
	}

	store, meta, err := s.decodeSnapshot(snapshot)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule is unreadable")
	}
	s.store = store
	s.meta = meta
	s.snapshotID = snapshot.ID
	savedAt := snapshot.CreatedAt
	s.savedAt = &savedAt
	s.loaded = true
	s.logger.Sugar().Infow("schedule loaded", "snapshot_id", snapshot.ID, "sessions", len(store.Sessions()))
	return nil
}

func (s *WorkspaceService) decodeSnapshot(snapshot *models.ScheduleSnapshot) (*timetable.Store, map[string]interface{}, error) {
	var doc dto.ScheduleDocument
	if err := json.Unmarshal(snapshot.Payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode schedule payload: %w", err)
	}
	var meta map[string]interface{}
	if len(snapshot.Meta) > 0 {
		if err := json.Unmarshal(snapshot.Meta, &meta); err != nil {
			return nil, nil, fmt.Errorf("decode schedule meta: %w", err)
		}
	}
	if len(meta) == 0 {
		meta = doc.Meta
	}
	snap, err := DocumentToSnapshot(doc)
	if err != nil {
		return nil, nil, err
	}
	return timetable.FromSnapshot(snap, s.storeOptions()...), meta, nil
}

// Load returns the current workspace. Found stays false until the first save.
func (s *WorkspaceService) Load(ctx context.Context) (*dto.LoadScheduleResponse, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &dto.LoadScheduleResponse{
		Found:            s.snapshotID != "",
		ScheduleDocument: SnapshotToDocument(s.store.Snapshot(), s.meta),
		Revision:         s.revision,
		Dirty:            s.revision != s.savedRevision,
		SnapshotID:       s.snapshotID,
		SavedAt:          s.savedAt,
	}, nil
}

// Save persists the document verbatim as a new snapshot and makes it the
// workspace. Conflicting but well-formed documents are accepted.
func (s *WorkspaceService) Save(ctx context.Context, req dto.SaveScheduleRequest) (*dto.SaveScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	snap, err := DocumentToSnapshot(req.ScheduleDocument)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	store := timetable.FromSnapshot(snap, s.storeOptions()...)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = models.SnapshotNameWorkspace
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.persist(ctx, name, store, req.Meta, nil)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.meta = req.Meta
	s.loaded = true
	s.revision++
	s.markSaved(snapshot)

	return &dto.SaveScheduleResponse{SnapshotID: snapshot.ID, Revision: s.revision, SavedAt: snapshot.CreatedAt}, nil
}

// Commit persists the current workspace without changing it.
func (s *WorkspaceService) Commit(ctx context.Context) (*dto.SaveScheduleResponse, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.persist(ctx, models.SnapshotNameWorkspace, s.store, s.meta, nil)
	if err != nil {
		return nil, err
	}
	s.markSaved(snapshot)
	return &dto.SaveScheduleResponse{SnapshotID: snapshot.ID, Revision: s.revision, SavedAt: snapshot.CreatedAt}, nil
}

// persist writes a snapshot row. Callers hold the write lock.
func (s *WorkspaceService) persist(ctx context.Context, name string, store *timetable.Store, meta map[string]interface{}, result interface{}) (*models.ScheduleSnapshot, error) {
	doc := SnapshotToDocument(store.Snapshot(), nil)
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	snapshot := &models.ScheduleSnapshot{Name: name, Payload: types.JSONText(payload)}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "meta is not serialisable")
		}
		snapshot.Meta = types.JSONText(raw)
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation result")
		}
		snapshot.Result = types.JSONText(raw)
	}
	if err := s.repo.Create(ctx, snapshot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}
	s.logger.Sugar().Infow("schedule snapshot saved", "snapshot_id", snapshot.ID, "name", name, "sessions", len(doc.Sessions))
	return snapshot, nil
}

func (s *WorkspaceService) markSaved(snapshot *models.ScheduleSnapshot) {
	s.snapshotID = snapshot.ID
	savedAt := snapshot.CreatedAt
	s.savedAt = &savedAt
	s.savedRevision = s.revision
}

// read runs fn under the read lock after the workspace is loaded.
func (s *WorkspaceService) read(ctx context.Context, fn func(store *timetable.Store)) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.store)
	return nil
}

// write runs fn under the write lock and bumps the revision when fn changed
// the store.
func (s *WorkspaceService) write(ctx context.Context, fn func(store *timetable.Store) (bool, error)) (int64, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := fn(s.store)
	if err != nil {
		return s.revision, mapEngineError(err)
	}
	if changed {
		s.revision++
	}
	return s.revision, nil
}

// Check reports the conflicts a candidate would introduce without mutating anything.
func (s *WorkspaceService) Check(ctx context.Context, req dto.PlacementRequest) (*dto.CheckPlacementResponse, error) {
	candidate, err := s.candidate(req)
	if err != nil {
		return nil, err
	}
	var conflicts []timetable.Conflict
	var checkErr error
	if err := s.read(ctx, func(store *timetable.Store) {
		conflicts, checkErr = timetable.CheckPlacement(store, candidate)
	}); err != nil {
		return nil, err
	}
	if checkErr != nil {
		return nil, mapEngineError(checkErr)
	}
	if conflicts == nil {
		conflicts = []timetable.Conflict{}
	}
	return &dto.CheckPlacementResponse{Clear: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// Place commits a candidate. Conflicts block it unless OverrideConflicts is set.
func (s *WorkspaceService) Place(ctx context.Context, req dto.PlaceSessionRequest) (*dto.PlacementResponse, error) {
	candidate, err := s.candidate(req.PlacementRequest)
	if err != nil {
		return nil, err
	}
	var placement timetable.Placement
	revision, err := s.write(ctx, func(store *timetable.Store) (bool, error) {
		var placeErr error
		placement, placeErr = store.Place(candidate, req.OverrideConflicts)
		return placeErr == nil, placeErr
	})
	if err != nil {
		if isAppCode(err, appErrors.ErrConflict.Code) {
			s.recordPlacement(PlacementConflict)
		}
		return nil, err
	}
	s.recordOutcome(placement)
	s.logger.Sugar().Debugw("session placed", "session_id", placement.Session.ID, "section", placement.Session.Section,
		"replaced", len(placement.Replaced), "overridden", len(placement.Overridden))
	return &dto.PlacementResponse{
		Session:    placement.Session,
		Replaced:   placement.Replaced,
		Overridden: placement.Overridden,
		Revision:   revision,
	}, nil
}

// Move repositions a session keeping its id.
func (s *WorkspaceService) Move(ctx context.Context, id string, req dto.MoveSessionRequest) (*dto.PlacementResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	day, err := timetable.ParseWeekday(req.Day)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	var placement timetable.Placement
	revision, err := s.write(ctx, func(store *timetable.Store) (bool, error) {
		var moveErr error
		placement, moveErr = store.Move(id, day, req.Slot, req.OverrideConflicts)
		return moveErr == nil, moveErr
	})
	if err != nil {
		if isAppCode(err, appErrors.ErrConflict.Code) {
			s.recordPlacement(PlacementConflict)
		}
		return nil, err
	}
	s.recordOutcome(placement)
	return &dto.PlacementResponse{
		Session:    placement.Session,
		Replaced:   placement.Replaced,
		Overridden: placement.Overridden,
		Revision:   revision,
	}, nil
}

// Remove deletes a session. Unknown ids are not an error.
func (s *WorkspaceService) Remove(ctx context.Context, id string) (*dto.RemoveSessionResponse, error) {
	var removed bool
	revision, err := s.write(ctx, func(store *timetable.Store) (bool, error) {
		removed = store.Remove(id)
		return removed, nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.RemoveSessionResponse{Removed: removed, Revision: revision}, nil
}

// AddTimeSlot appends a column.
func (s *WorkspaceService) AddTimeSlot(ctx context.Context, req dto.TimeSlotRequest) (*dto.GridResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	return s.gridEdit(ctx, func(store *timetable.Store) ([]timetable.Session, error) {
		return nil, store.AddTimeSlot(req.Label)
	})
}

// RenameTimeSlot relabels a column, re-keying its sessions.
func (s *WorkspaceService) RenameTimeSlot(ctx context.Context, req dto.RenameTimeSlotRequest) (*dto.GridResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rename payload")
	}
	return s.gridEdit(ctx, func(store *timetable.Store) ([]timetable.Session, error) {
		return nil, store.RenameTimeSlot(req.From, req.To)
	})
}

// RemoveTimeSlot deletes a column and reports the sessions it destroyed.
func (s *WorkspaceService) RemoveTimeSlot(ctx context.Context, label string) (*dto.CascadeResponse, error) {
	if strings.TrimSpace(label) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "label is required")
	}
	return s.cascade(ctx, func(store *timetable.Store) ([]timetable.Session, error) {
		return store.RemoveTimeSlot(label)
	})
}

// AddSection registers a section.
func (s *WorkspaceService) AddSection(ctx context.Context, req dto.SectionRequest) (*dto.GridResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	track, err := timetable.ParseTrack(req.Track)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return s.gridEdit(ctx, func(store *timetable.Store) ([]timetable.Session, error) {
		_, err := store.AddSection(req.ID, track)
		return nil, err
	})
}

// RemoveSection deletes a section with all of its sessions.
func (s *WorkspaceService) RemoveSection(ctx context.Context, id string) (*dto.CascadeResponse, error) {
	return s.cascade(ctx, func(store *timetable.Store) ([]timetable.Session, error) {
		return store.RemoveSection(id)
	})
}

func (s *WorkspaceService) gridEdit(ctx context.Context, fn func(store *timetable.Store) ([]timetable.Session, error)) (*dto.GridResponse, error) {
	resp, err := s.cascade(ctx, fn)
	if err != nil {
		return nil, err
	}
	return &resp.GridResponse, nil
}

func (s *WorkspaceService) cascade(ctx context.Context, fn func(store *timetable.Store) ([]timetable.Session, error)) (*dto.CascadeResponse, error) {
	var destroyed []timetable.Session
	var grid dto.GridResponse
	revision, err := s.write(ctx, func(store *timetable.Store) (bool, error) {
		var err error
		destroyed, err = fn(store)
		if err != nil {
			return false, err
		}
		grid = dto.GridResponse{Sections: store.Sections(), TimeSlots: store.TimeSlots()}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	grid.Revision = revision
	if len(destroyed) > 0 {
		s.logger.Sugar().Infow("cascading delete", "destroyed", len(destroyed), "revision", revision)
	}
	return &dto.CascadeResponse{GridResponse: grid, Destroyed: len(destroyed), Sessions: destroyed}, nil
}

// Validate audits the workspace invariants without blocking anything.
func (s *WorkspaceService) Validate(ctx context.Context) (*dto.ValidateResponse, error) {
	var violations []timetable.Violation
	if err := s.read(ctx, func(store *timetable.Store) {
		violations = store.Validate()
	}); err != nil {
		return nil, err
	}
	if violations == nil {
		violations = []timetable.Violation{}
	}
	return &dto.ValidateResponse{Valid: len(violations) == 0, Violations: violations}, nil
}

// Stats summarises the workspace.
func (s *WorkspaceService) Stats(ctx context.Context) (*dto.ScheduleStats, error) {
	var stats dto.ScheduleStats
	if err := s.read(ctx, func(store *timetable.Store) {
		sessions := store.Sessions()
		sections := store.Sections()
		slots := store.TimeSlots()
		faculty := map[string]bool{}
		rooms := map[string]bool{}
		perSection := make(map[string]int, len(sections))
		occupied := 0
		for _, sec := range sections {
			perSection[sec.ID] = 0
		}
		for _, sess := range sessions {
			if name := strings.ToLower(strings.TrimSpace(sess.Faculty)); name != "" {
				faculty[name] = true
			}
			if name := strings.ToLower(strings.TrimSpace(sess.Room)); name != "" {
				rooms[name] = true
			}
			if sess.Kind == timetable.Practical {
				stats.Practicals++
				occupied += 2
			} else {
				occupied++
			}
			perSection[sess.Section]++
		}
		stats.Sections = len(sections)
		stats.TimeSlots = len(slots)
		stats.Sessions = len(sessions)
		stats.Faculty = len(faculty)
		stats.Rooms = len(rooms)
		stats.Violations = len(store.Validate())
		stats.FreeCells = len(sections)*len(slots)*len(timetable.Weekdays) - occupied
		if stats.FreeCells < 0 {
			stats.FreeCells = 0
		}
		stats.PerSection = perSection
		stats.Revision = s.revision
		stats.LastSavedAt = s.savedAt
		stats.LastSnapshot = s.snapshotID
	}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Pinned returns an independent copy of the workspace and its revision.
func (s *WorkspaceService) Pinned(ctx context.Context) (*timetable.Store, int64, error) {
	var clone *timetable.Store
	var revision int64
	if err := s.read(ctx, func(store *timetable.Store) {
		clone = store.Clone()
		revision = s.revision
	}); err != nil {
		return nil, 0, err
	}
	return clone, revision, nil
}

// SaveGenerated stores a generated schedule as its own snapshot. When apply is
// set and the workspace is still at expectedRevision it also becomes the
// workspace; a moved revision leaves the workspace untouched.
func (s *WorkspaceService) SaveGenerated(ctx context.Context, store *timetable.Store, result interface{}, apply bool, expectedRevision int64) (snapshotID string, applied bool, revision int64, err error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return "", false, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.persist(ctx, models.SnapshotNameAutoSchedule, store, s.meta, result)
	if err != nil {
		return "", false, s.revision, err
	}
	if !apply {
		return snapshot.ID, false, s.revision, nil
	}
	if s.revision != expectedRevision {
		s.logger.Sugar().Warnw("generated schedule not applied, workspace changed",
			"snapshot_id", snapshot.ID, "expected_revision", expectedRevision, "revision", s.revision)
		return snapshot.ID, false, s.revision, nil
	}
	s.store = store.Clone()
	s.revision++
	s.markSaved(snapshot)
	return snapshot.ID, true, s.revision, nil
}

// Dataset returns a read-only copy of the committed store for exports.
func (s *WorkspaceService) Dataset(ctx context.Context) (timetable.Snapshot, error) {
	var snap timetable.Snapshot
	err := s.read(ctx, func(store *timetable.Store) {
		snap = store.Snapshot()
	})
	return snap, err
}

// ListSnapshots pages through snapshot history.
func (s *WorkspaceService) ListSnapshots(ctx context.Context, query dto.SnapshotListQuery) ([]models.ScheduleSnapshotSummary, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	filter := models.SnapshotFilter{Name: query.Name, Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if items == nil {
		items = []models.ScheduleSnapshotSummary{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetSnapshot returns one stored snapshot.
func (s *WorkspaceService) GetSnapshot(ctx context.Context, id string) (*models.ScheduleSnapshot, error) {
	snapshot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule snapshot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule snapshot")
	}
	return snapshot, nil
}

func (s *WorkspaceService) candidate(req dto.PlacementRequest) (timetable.Candidate, error) {
	if err := s.validator.Struct(req); err != nil {
		return timetable.Candidate{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}
	day, err := timetable.ParseWeekday(req.Day)
	if err != nil {
		return timetable.Candidate{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	kind, err := timetable.ParseKind(req.Kind)
	if err != nil {
		return timetable.Candidate{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return timetable.Candidate{
		Section: req.Section,
		Day:     day,
		Slot:    req.Slot,
		Subject: req.Subject,
		Faculty: req.Faculty,
		Room:    req.Room,
		Kind:    kind,
	}, nil
}

func (s *WorkspaceService) recordOutcome(placement timetable.Placement) {
	if len(placement.Overridden) > 0 {
		s.recordPlacement(PlacementOverridden)
		return
	}
	s.recordPlacement(PlacementCommitted)
}

func (s *WorkspaceService) recordPlacement(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPlacement(outcome)
	}
}

func isAppCode(err error, code string) bool {
	var appErr *appErrors.Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// DocumentToSnapshot converts the wire document into engine form. Kinds accept
// the "lab" alias; tracks default to Normal. Every session needs a valid day.
func DocumentToSnapshot(doc dto.ScheduleDocument) (timetable.Snapshot, error) {
	snap := timetable.Snapshot{
		Sections:  make([]timetable.Section, 0, len(doc.Sections)),
		TimeSlots: make([]string, 0, len(doc.TimeSlots)),
		Sessions:  make([]timetable.Session, 0, len(doc.Sessions)),
	}
	for _, id := range doc.Sections {
		id = strings.TrimSpace(id)
		track, err := timetable.ParseTrack(doc.Tracks[id])
		if err != nil {
			return timetable.Snapshot{}, fmt.Errorf("section %s: %w", id, err)
		}
		snap.Sections = append(snap.Sections, timetable.Section{ID: id, Track: track})
	}
	for _, label := range doc.TimeSlots {
		snap.TimeSlots = append(snap.TimeSlots, strings.TrimSpace(label))
	}
	for _, sess := range doc.Sessions {
		if !sess.Day.Valid() {
			return timetable.Snapshot{}, fmt.Errorf("session %s: missing or invalid day", sess.ID)
		}
		kind, err := timetable.ParseKind(string(sess.Kind))
		if err != nil {
			return timetable.Snapshot{}, fmt.Errorf("session %s: %w", sess.ID, err)
		}
		sess.Kind = kind
		snap.Sessions = append(snap.Sessions, sess)
	}
	return snap, nil
}

// SnapshotToDocument renders a snapshot in wire form.
func SnapshotToDocument(snap timetable.Snapshot, meta map[string]interface{}) dto.ScheduleDocument {
	doc := dto.ScheduleDocument{
		Sections:  make([]string, 0, len(snap.Sections)),
		Tracks:    make(map[string]string, len(snap.Sections)),
		TimeSlots: snap.TimeSlots,
		Sessions:  snap.Sessions,
		Meta:      meta,
	}
	for _, sec := range snap.Sections {
		doc.Sections = append(doc.Sections, sec.ID)
		doc.Tracks[sec.ID] = string(sec.Track)
	}
	if doc.TimeSlots == nil {
		doc.TimeSlots = []string{}
	}
	if doc.Sessions == nil {
		doc.Sessions = []timetable.Session{}
	}
	return doc
}
