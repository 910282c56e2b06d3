package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

const snapshotColumns = `id, name, payload, result, meta, created_at`

// ScheduleSnapshotRepository persists saved timetable versions.
type ScheduleSnapshotRepository struct {
	db *sqlx.DB
}

// NewScheduleSnapshotRepository constructs the repository.
func NewScheduleSnapshotRepository(db *sqlx.DB) *ScheduleSnapshotRepository {
	return &ScheduleSnapshotRepository{db: db}
}

// Create inserts a new snapshot row. Snapshots are append-only.
func (r *ScheduleSnapshotRepository) Create(ctx context.Context, snapshot *models.ScheduleSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	if len(snapshot.Payload) == 0 {
		snapshot.Payload = types.JSONText("{}")
	}
	if len(snapshot.Result) == 0 {
		snapshot.Result = types.JSONText("{}")
	}
	if len(snapshot.Meta) == 0 {
		snapshot.Meta = types.JSONText("{}")
	}

	const query = `INSERT INTO schedules (id, name, payload, result, meta, created_at)
VALUES (:id, :name, :payload, :result, :meta, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("create schedule snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently saved snapshot of any name, or sql.ErrNoRows.
func (r *ScheduleSnapshotRepository) Latest(ctx context.Context) (*models.ScheduleSnapshot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules ORDER BY created_at DESC LIMIT 1`, snapshotColumns)
	var snapshot models.ScheduleSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FindByID returns one snapshot including its payload.
func (r *ScheduleSnapshotRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSnapshot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, snapshotColumns)
	var snapshot models.ScheduleSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, id); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List pages through snapshot history newest first.
func (r *ScheduleSnapshotRepository) List(ctx context.Context, filter models.SnapshotFilter) ([]models.ScheduleSnapshotSummary, int, error) {
	base := "FROM schedules"
	var args []interface{}
	if filter.Name != "" {
		base += " WHERE name = $1"
		args = append(args, filter.Name)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, COALESCE(jsonb_array_length(payload->'sessions'), 0) AS sessions, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, size, offset)
	var summaries []models.ScheduleSnapshotSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule snapshots: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule snapshots: %w", err)
	}
	return summaries, total, nil
}
