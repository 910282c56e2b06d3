package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CatalogRepository persists the faculty, room and subject records the
// generator reads.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListFaculty returns every instructor in insertion order.
func (r *CatalogRepository) ListFaculty(ctx context.Context) ([]models.FacultyRecord, error) {
	const query = `SELECT id, name, subjects, max_per_day, max_per_week, available_days, created_at FROM faculty ORDER BY created_at ASC, name ASC`
	var records []models.FacultyRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return records, nil
}

// CreateFaculty inserts an instructor.
func (r *CatalogRepository) CreateFaculty(ctx context.Context, record *models.FacultyRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO faculty (id, name, subjects, max_per_day, max_per_week, available_days, created_at)
VALUES (:id, :name, :subjects, :max_per_day, :max_per_week, :available_days, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// ListRooms returns every room in insertion order.
func (r *CatalogRepository) ListRooms(ctx context.Context) ([]models.RoomRecord, error) {
	const query = `SELECT id, name, room_type, capacity, created_at FROM rooms ORDER BY created_at ASC, name ASC`
	var records []models.RoomRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return records, nil
}

// CreateRoom inserts a room.
func (r *CatalogRepository) CreateRoom(ctx context.Context, record *models.RoomRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO rooms (id, name, room_type, capacity, created_at) VALUES (:id, :name, :room_type, :capacity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// ListSubjects returns every subject in insertion order.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.SubjectRecord, error) {
	const query = `SELECT id, name, kind, weekly_frequency, room_type, preferred_faculty, sections, created_at FROM subjects ORDER BY created_at ASC, name ASC`
	var records []models.SubjectRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return records, nil
}

// CreateSubject inserts a subject.
func (r *CatalogRepository) CreateSubject(ctx context.Context, record *models.SubjectRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, name, kind, weekly_frequency, room_type, preferred_faculty, sections, created_at)
VALUES (:id, :name, :kind, :weekly_frequency, :room_type, :preferred_faculty, :sections, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// ExistsByName checks case-insensitive name uniqueness within one catalog table.
func (r *CatalogRepository) ExistsByName(ctx context.Context, table, name string) (bool, error) {
	switch table {
	case "faculty", "rooms", "subjects":
	default:
		return false, fmt.Errorf("unknown catalog table %q", table)
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE LOWER(name) = LOWER($1) LIMIT 1", table)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s name: %w", table, err)
	}
	return true, nil
}
