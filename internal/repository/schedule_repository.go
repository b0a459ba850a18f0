package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rollcall-dev/rollcall-api/internal/models"
)

// ScheduleRepository persists per-weekday class session entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByClass returns a class's schedule entries in canonical Sunday-first
// order.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassSchedule, error) {
	const query = `SELECT id, class_id, day_of_week, start_time, end_time, created_at
FROM class_schedules WHERE class_id = $1`
	var entries []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list class schedules: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DayOfWeek.Index() < entries[j].DayOfWeek.Index()
	})
	return entries, nil
}

// FindByClassAndDay loads the single session entry for a weekday, if any.
// Callers treat sql.ErrNoRows as "no schedule for that day".
func (r *ScheduleRepository) FindByClassAndDay(ctx context.Context, classID string, day models.DayOfWeek) (*models.ClassSchedule, error) {
	const query = `SELECT id, class_id, day_of_week, start_time, end_time, created_at
FROM class_schedules WHERE class_id = $1 AND day_of_week = $2`
	var entry models.ClassSchedule
	if err := r.db.GetContext(ctx, &entry, query, classID, day); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Replace swaps a class's whole weekly schedule in one transaction. An
// empty slice clears the schedule, which closes the class to attendance.
func (r *ScheduleRepository) Replace(ctx context.Context, classID string, entries []models.ClassSchedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedules: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM class_schedules WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class schedules: %w", err)
	}

	const insert = `INSERT INTO class_schedules (id, class_id, day_of_week, start_time, end_time, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.ClassID = classID
		entry.CreatedAt = now
		if _, err := tx.ExecContext(ctx, insert, entry.ID, entry.ClassID, entry.DayOfWeek, entry.StartTime, entry.EndTime, entry.CreatedAt); err != nil {
			return fmt.Errorf("insert class schedule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedules: %w", err)
	}
	committed = true
	return nil
}
