package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rollcall-dev/rollcall-api/internal/models"
)

// ClassRepository handles persistence for teacher-owned classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListByTeacher returns all classes owned by a teacher, ordered by name.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	const query = `SELECT id, teacher_id, name, unit_code, created_at, updated_at
FROM classes WHERE teacher_id = $1 ORDER BY name, id`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindForTeacher loads a class only when it belongs to the given teacher.
// Callers treat sql.ErrNoRows as "not found or not yours".
func (r *ClassRepository) FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error) {
	const query = `SELECT id, teacher_id, name, unit_code, created_at, updated_at
FROM classes WHERE id = $1 AND teacher_id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, teacherID); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	now := time.Now().UTC()
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, teacher_id, name, unit_code, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.TeacherID, class.Name, class.UnitCode, class.CreatedAt, class.UpdatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies name and unit code for a teacher-owned class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = $1, unit_code = $2, updated_at = $3
WHERE id = $4 AND teacher_id = $5`
	res, err := r.db.ExecContext(ctx, query, class.Name, class.UnitCode, class.UpdatedAt, class.ID, class.TeacherID)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a class and explicitly cascades to schedules, enrollments
// and attendance records in one transaction. Referential cleanup is a
// stated invariant here, not a storage-layer side effect.
func (r *ClassRepository) Delete(ctx context.Context, id, teacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var owned bool
	if err := tx.GetContext(ctx, &owned, `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1 AND teacher_id = $2)`, id, teacherID); err != nil {
		return fmt.Errorf("check class ownership: %w", err)
	}
	if !owned {
		return sql.ErrNoRows
	}

	steps := []string{
		`DELETE FROM attendance_records WHERE class_id = $1`,
		`DELETE FROM class_enrollment WHERE class_id = $1`,
		`DELETE FROM class_schedules WHERE class_id = $1`,
		`DELETE FROM classes WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	committed = true
	return nil
}

// CountEnrolled returns the roster size for a class.
func (r *ClassRepository) CountEnrolled(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_enrollment WHERE class_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return count, nil
}
